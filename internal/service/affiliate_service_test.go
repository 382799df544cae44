package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAffiliateServiceTest(t *testing.T) (*AffiliateService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:affiliate_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Affiliate{},
		&models.AffiliateReferral{},
		&models.AffiliateLinkClick{},
		&models.PointsTransaction{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	svc := NewAffiliateService(
		repository.NewAffiliateRepository(db),
		repository.NewUserRepository(db),
		nil,
		repository.NewPointsRepository(db),
		NewSettingService(repository.NewSettingRepository(db)),
	)
	return svc, db
}

func createAffiliateTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()

	row := models.User{
		Email:        email,
		PasswordHash: "hash",
		DisplayName:  "tester",
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return row
}

func createTestAffiliate(t *testing.T, svc *AffiliateService, db *gorm.DB, email string) *models.Affiliate {
	t.Helper()

	user := createAffiliateTestUser(t, db, email)
	affiliate, err := svc.GetOrCreateAffiliate(user.ID)
	if err != nil {
		t.Fatalf("get or create affiliate failed: %v", err)
	}
	return affiliate
}

func TestGetOrCreateAffiliateIdempotent(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	user := createAffiliateTestUser(t, db, "promoter@example.com")

	first, err := svc.GetOrCreateAffiliate(user.ID)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if len(first.AffiliateCode) != affiliateCodeLength {
		t.Fatalf("affiliate code length want %d got %q", affiliateCodeLength, first.AffiliateCode)
	}

	second, err := svc.GetOrCreateAffiliate(user.ID)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if second.ID != first.ID || second.AffiliateCode != first.AffiliateCode {
		t.Fatalf("repeat call must return the same account: %d/%s vs %d/%s",
			first.ID, first.AffiliateCode, second.ID, second.AffiliateCode)
	}
}

func TestTrackClickDedupeWindow(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, db, "clicks@example.com")

	input := AffiliateTrackClickInput{
		AffiliateCode: affiliate.AffiliateCode,
		VisitorKey:    "visitor-1",
		LandingPath:   "/products/bio-gel",
		ClientIP:      "198.51.100.7",
	}
	if err := svc.TrackClick(input); err != nil {
		t.Fatalf("first click failed: %v", err)
	}
	if err := svc.TrackClick(input); err != nil {
		t.Fatalf("duplicate click failed: %v", err)
	}

	var count int64
	db.Model(&models.AffiliateLinkClick{}).Where("affiliate_id = ?", affiliate.ID).Count(&count)
	if count != 1 {
		t.Fatalf("same visitor and landing path within the window must dedupe, want 1 got %d", count)
	}

	other := input
	other.LandingPath = "/products/evo-gel"
	if err := svc.TrackClick(other); err != nil {
		t.Fatalf("different landing path click failed: %v", err)
	}
	db.Model(&models.AffiliateLinkClick{}).Where("affiliate_id = ?", affiliate.ID).Count(&count)
	if count != 2 {
		t.Fatalf("different landing path should record, want 2 got %d", count)
	}
}

func TestTrackClickUnknownOrInactiveCode(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, db, "disabled-code@example.com")

	if err := svc.TrackClick(AffiliateTrackClickInput{AffiliateCode: "NOPE1234", VisitorKey: "v"}); err != nil {
		t.Fatalf("unknown code should be silent: %v", err)
	}

	if err := db.Model(&models.Affiliate{}).Where("id = ?", affiliate.ID).
		Update("status", constants.AffiliateStatusDisabled).Error; err != nil {
		t.Fatalf("disable affiliate failed: %v", err)
	}
	if err := svc.TrackClick(AffiliateTrackClickInput{AffiliateCode: affiliate.AffiliateCode, VisitorKey: "v"}); err != nil {
		t.Fatalf("disabled affiliate click should be silent: %v", err)
	}

	var count int64
	db.Model(&models.AffiliateLinkClick{}).Count(&count)
	if count != 0 {
		t.Fatalf("no clicks should be stored, got %d", count)
	}
}

func TestResolveReferrerPrefersLatestClick(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	older := createTestAffiliate(t, svc, db, "older@example.com")
	newer := createTestAffiliate(t, svc, db, "newer@example.com")

	now := time.Now()
	clicks := []models.AffiliateLinkClick{
		{AffiliateID: older.ID, VisitorKey: "visitor-attr", CreatedAt: now.Add(-2 * time.Hour)},
		{AffiliateID: newer.ID, VisitorKey: "visitor-attr", CreatedAt: now.Add(-time.Hour)},
	}
	for i := range clicks {
		if err := db.Create(&clicks[i]).Error; err != nil {
			t.Fatalf("create click failed: %v", err)
		}
	}

	// 访客点击优先于注册时填写的推广码
	resolved, err := svc.ResolveReferrer(0, older.AffiliateCode, "visitor-attr")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved == nil || resolved.ID != newer.ID {
		t.Fatalf("want latest-click affiliate %d got %+v", newer.ID, resolved)
	}
}

func TestResolveReferrerFallsBackToCode(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, db, "codeonly@example.com")

	resolved, err := svc.ResolveReferrer(0, "  "+affiliate.AffiliateCode+"  ", "unseen-visitor")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved == nil || resolved.ID != affiliate.ID {
		t.Fatalf("want code affiliate %d got %+v", affiliate.ID, resolved)
	}
}

func TestResolveReferrerSkipsSelfReferral(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, db, "selfref@example.com")

	resolved, err := svc.ResolveReferrer(affiliate.UserID, affiliate.AffiliateCode, "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != nil {
		t.Fatalf("self referral must resolve to nil, got %+v", resolved)
	}
}

func TestResolveReferrerIgnoresExpiredClicks(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, db, "stale@example.com")

	stale := models.AffiliateLinkClick{
		AffiliateID: affiliate.ID,
		VisitorKey:  "stale-visitor",
		CreatedAt:   time.Now().Add(-affiliateAttributionWindow - time.Hour),
	}
	if err := db.Create(&stale).Error; err != nil {
		t.Fatalf("create click failed: %v", err)
	}

	resolved, err := svc.ResolveReferrer(0, "", "stale-visitor")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != nil {
		t.Fatalf("click outside the attribution window must not attribute, got %+v", resolved)
	}
}

func TestCreateReferralDuplicateAndSelf(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, db, "referrer@example.com")
	other := createTestAffiliate(t, svc, db, "competitor@example.com")
	referred := createAffiliateTestUser(t, db, "referred@example.com")

	referral, err := svc.CreateReferral(affiliate.ID, referred.ID)
	if err != nil {
		t.Fatalf("create referral failed: %v", err)
	}
	if referral == nil || referral.Status != constants.ReferralStatusPending {
		t.Fatalf("want pending referral got %+v", referral)
	}

	// 重复推荐返回既有关系，不换归属
	duplicate, err := svc.CreateReferral(other.ID, referred.ID)
	if err != nil {
		t.Fatalf("duplicate referral failed: %v", err)
	}
	if duplicate == nil || duplicate.AffiliateID != affiliate.ID {
		t.Fatalf("duplicate must keep original affiliate %d got %+v", affiliate.ID, duplicate)
	}

	selfReferral, err := svc.CreateReferral(affiliate.ID, affiliate.UserID)
	if err != nil {
		t.Fatalf("self referral failed: %v", err)
	}
	if selfReferral != nil {
		t.Fatalf("self referral must be skipped, got %+v", selfReferral)
	}
}

func TestActivateReferralOnlyOnce(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, db, "activator@example.com")
	referred := createAffiliateTestUser(t, db, "buyer@example.com")

	referral, err := svc.CreateReferral(affiliate.ID, referred.ID)
	if err != nil {
		t.Fatalf("create referral failed: %v", err)
	}

	activated, err := svc.ActivateReferral(referral.ID, 101)
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if !activated {
		t.Fatalf("first activation should report activated")
	}

	again, err := svc.ActivateReferral(referral.ID, 202)
	if err != nil {
		t.Fatalf("second activate failed: %v", err)
	}
	if again {
		t.Fatalf("second activation must be a no-op")
	}

	var row models.AffiliateReferral
	if err := db.First(&row, referral.ID).Error; err != nil {
		t.Fatalf("load referral failed: %v", err)
	}
	if row.Status != constants.ReferralStatusActive {
		t.Fatalf("referral status want active got %s", row.Status)
	}
	if row.FirstOrderID == nil || *row.FirstOrderID != 101 {
		t.Fatalf("first order id must stay at the activating order, got %+v", row.FirstOrderID)
	}
}

func TestConvertClicksMarksWindowOnly(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, db, "converter@example.com")
	user := createAffiliateTestUser(t, db, "signup@example.com")

	now := time.Now()
	recent := models.AffiliateLinkClick{AffiliateID: affiliate.ID, VisitorKey: "conv-visitor", CreatedAt: now.Add(-time.Hour)}
	stale := models.AffiliateLinkClick{AffiliateID: affiliate.ID, VisitorKey: "conv-visitor", CreatedAt: now.Add(-affiliateAttributionWindow - time.Hour)}
	for _, click := range []*models.AffiliateLinkClick{&recent, &stale} {
		if err := db.Create(click).Error; err != nil {
			t.Fatalf("create click failed: %v", err)
		}
	}

	converted, err := svc.ConvertClicks("conv-visitor", user.ID)
	if err != nil {
		t.Fatalf("convert clicks failed: %v", err)
	}
	if converted != 1 {
		t.Fatalf("only the in-window click converts, want 1 got %d", converted)
	}

	var row models.AffiliateLinkClick
	if err := db.First(&row, recent.ID).Error; err != nil {
		t.Fatalf("load click failed: %v", err)
	}
	if !row.Converted || row.ConvertedUserID == nil || *row.ConvertedUserID != user.ID {
		t.Fatalf("converted click should carry the user, got %+v", row)
	}
}

func TestAutoPromoteOnlyMovesUp(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, db, "climber@example.com")

	referred := make([]models.User, 0, 5)
	for i := 0; i < 5; i++ {
		referred = append(referred, createAffiliateTestUser(t, db, fmt.Sprintf("climber-ref-%d@example.com", i)))
	}
	for i, user := range referred {
		referral, err := svc.CreateReferral(affiliate.ID, user.ID)
		if err != nil {
			t.Fatalf("create referral failed: %v", err)
		}
		if _, err := svc.ActivateReferral(referral.ID, uint(1000+i)); err != nil {
			t.Fatalf("activate referral failed: %v", err)
		}
	}
	if err := db.Model(&models.Affiliate{}).Where("id = ?", affiliate.ID).
		Update("total_points_earned", 600).Error; err != nil {
		t.Fatalf("seed earned points failed: %v", err)
	}

	tier, err := svc.AutoPromote(affiliate.ID)
	if err != nil {
		t.Fatalf("auto promote failed: %v", err)
	}
	if tier != constants.AffiliateTierSilver {
		t.Fatalf("5 active referrals and 600 points want silver got %s", tier)
	}

	// 已是更高等级时不会降级
	if err := db.Model(&models.Affiliate{}).Where("id = ?", affiliate.ID).
		Update("tier", constants.AffiliateTierGold).Error; err != nil {
		t.Fatalf("seed tier failed: %v", err)
	}
	tier, err = svc.AutoPromote(affiliate.ID)
	if err != nil {
		t.Fatalf("auto promote failed: %v", err)
	}
	if tier != constants.AffiliateTierGold {
		t.Fatalf("promotion must never demote, want gold got %s", tier)
	}
}

func TestUpdateAffiliateStatusValidation(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, db, "moderated@example.com")

	if _, err := svc.UpdateAffiliateStatus(affiliate.ID, "frozen"); !errors.Is(err, ErrAffiliateStatusInvalid) {
		t.Fatalf("unknown status want ErrAffiliateStatusInvalid got %v", err)
	}

	updated, err := svc.UpdateAffiliateStatus(affiliate.ID, constants.AffiliateStatusDisabled)
	if err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if updated.Status != constants.AffiliateStatusDisabled {
		t.Fatalf("status want disabled got %s", updated.Status)
	}
}
