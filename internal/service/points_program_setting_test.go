package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupSettingServiceTest(t *testing.T) *SettingService {
	t.Helper()

	dsn := fmt.Sprintf("file:setting_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewSettingService(repository.NewSettingRepository(db))
}

func TestNormalizePointsProgramSettingClamps(t *testing.T) {
	normalized := NormalizePointsProgramSetting(PointsProgramSetting{
		SilverReferrals: -10,
		SilverPoints:    tierThresholdMax + 1,
		GoldReferrals:   20,
	})
	if normalized.SilverReferrals != 0 {
		t.Fatalf("negative threshold should clamp to 0, got %d", normalized.SilverReferrals)
	}
	if normalized.SilverPoints != tierThresholdMax {
		t.Fatalf("oversized threshold should clamp to %d, got %d", tierThresholdMax, normalized.SilverPoints)
	}
	if normalized.GoldReferrals != 20 {
		t.Fatalf("in-range threshold must pass through, got %d", normalized.GoldReferrals)
	}
}

func TestValidatePointsProgramSettingOrdering(t *testing.T) {
	valid := PointsProgramDefaultSetting()
	if err := ValidatePointsProgramSetting(valid); err != nil {
		t.Fatalf("default setting should validate: %v", err)
	}

	badReferrals := valid
	badReferrals.GoldReferrals = valid.SilverReferrals - 1
	if err := ValidatePointsProgramSetting(badReferrals); !errors.Is(err, ErrSettingInvalid) {
		t.Fatalf("decreasing referral thresholds want ErrSettingInvalid got %v", err)
	}

	badPoints := valid
	badPoints.PlatinumPoints = valid.GoldPoints - 1
	if err := ValidatePointsProgramSetting(badPoints); !errors.Is(err, ErrSettingInvalid) {
		t.Fatalf("decreasing points thresholds want ErrSettingInvalid got %v", err)
	}
}

func TestPointsProgramSettingRoundTrip(t *testing.T) {
	svc := setupSettingServiceTest(t)

	// 未配置时回退默认值
	setting, err := svc.GetPointsProgramSetting()
	if err != nil {
		t.Fatalf("get default failed: %v", err)
	}
	if !setting.Enabled || setting.SilverReferrals != PointsProgramDefaultSetting().SilverReferrals {
		t.Fatalf("missing row should fall back to defaults, got %+v", setting)
	}

	updated := PointsProgramDefaultSetting()
	updated.Enabled = false
	updated.SilverReferrals = 3
	updated.GoldReferrals = 12
	updated.PlatinumReferrals = 40
	if _, err := svc.UpdatePointsProgramSetting(updated); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	reloaded, err := svc.GetPointsProgramSetting()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Enabled {
		t.Fatalf("enabled flag should persist as false")
	}
	if reloaded.SilverReferrals != 3 || reloaded.GoldReferrals != 12 || reloaded.PlatinumReferrals != 40 {
		t.Fatalf("thresholds should persist, got %+v", reloaded)
	}

	invalid := updated
	invalid.GoldPoints = updated.SilverPoints - 1
	if _, err := svc.UpdatePointsProgramSetting(invalid); !errors.Is(err, ErrSettingInvalid) {
		t.Fatalf("invalid update want ErrSettingInvalid got %v", err)
	}
}
