package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bionail-next/internal/config"
	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupUserAuthServiceTest(t *testing.T) (*UserAuthService, *AffiliateService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:user_auth_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		&models.PointsConfig{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{
		UserJWT: config.JWTConfig{SecretKey: "user-auth-test-secret", ExpireHours: 24},
		Security: config.SecurityConfig{
			PasswordPolicy: config.PasswordPolicyConfig{
				MinLength:     8,
				RequireUpper:  true,
				RequireLower:  true,
				RequireNumber: true,
			},
		},
	}

	affiliateRepo := repository.NewAffiliateRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	userRepo := repository.NewUserRepository(db)
	settingService := NewSettingService(repository.NewSettingRepository(db))
	affiliateService := NewAffiliateService(affiliateRepo, userRepo, nil, pointsRepo, settingService)
	pointsService := NewPointsService(pointsRepo, affiliateRepo, userRepo)
	awardService := NewPointsAwardService(affiliateRepo, pointsRepo, repository.NewOrderRepository(db), affiliateService, pointsService, settingService)

	svc := NewUserAuthService(cfg, userRepo, affiliateService, awardService, nil)
	return svc, affiliateService, db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := setupUserAuthServiceTest(t)

	user, token, expiresAt, err := svc.Register(RegisterInput{
		Email:    " Nails@Example.COM ",
		Password: "Str0ngPass",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "nails@example.com" {
		t.Fatalf("email should normalize, got %s", user.Email)
	}
	if user.DisplayName != "nails" {
		t.Fatalf("display name should derive from email, got %s", user.DisplayName)
	}
	if token == "" || expiresAt.Before(time.Now()) {
		t.Fatalf("register should issue a valid token")
	}

	claims, err := svc.ParseUserJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Fatalf("claims mismatch, got %+v", claims)
	}

	logged, _, _, err := svc.Login("nails@example.com", "Str0ngPass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("login user id want %d got %d", user.ID, logged.ID)
	}
	if _, _, _, err := svc.Login("nails@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password want ErrInvalidCredentials got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := setupUserAuthServiceTest(t)

	if _, _, _, err := svc.Register(RegisterInput{Email: "not-an-email", Password: "Str0ngPass"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("bad email want ErrInvalidEmail got %v", err)
	}
	if _, _, _, err := svc.Register(RegisterInput{Email: "weak@example.com", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak password want ErrWeakPassword got %v", err)
	}
	if _, _, _, err := svc.Register(RegisterInput{Email: "weak@example.com", Password: "alllowercase1"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("policy violation want ErrWeakPassword got %v", err)
	}

	if _, _, _, err := svc.Register(RegisterInput{Email: "dupe@example.com", Password: "Str0ngPass"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, _, _, err := svc.Register(RegisterInput{Email: "DUPE@example.com", Password: "Str0ngPass"}); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate email want ErrEmailExists got %v", err)
	}
}

func TestRegisterWithReferralCode(t *testing.T) {
	svc, affiliateService, db := setupUserAuthServiceTest(t)

	signupConfig := models.PointsConfig{ActionType: constants.PointsActionReferralSignup, PointsAmount: 100, IsActive: true}
	if err := db.Create(&signupConfig).Error; err != nil {
		t.Fatalf("seed points config failed: %v", err)
	}

	referrer, _, _, err := svc.Register(RegisterInput{Email: "referrer@example.com", Password: "Str0ngPass"})
	if err != nil {
		t.Fatalf("register referrer failed: %v", err)
	}
	affiliate, err := affiliateService.GetOrCreateAffiliate(referrer.ID)
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}

	referred, _, _, err := svc.Register(RegisterInput{
		Email:        "friend@example.com",
		Password:     "Str0ngPass",
		ReferralCode: affiliate.AffiliateCode,
	})
	if err != nil {
		t.Fatalf("register referred failed: %v", err)
	}

	var referral models.AffiliateReferral
	if err := db.Where("referred_user_id = ?", referred.ID).First(&referral).Error; err != nil {
		t.Fatalf("referral should exist: %v", err)
	}
	if referral.AffiliateID != affiliate.ID || referral.Status != constants.ReferralStatusPending {
		t.Fatalf("referral should be pending under the referrer, got %+v", referral)
	}

	// 队列未启用时注册奖励内联发放
	var txn models.PointsTransaction
	if err := db.Where("reference = ?", fmt.Sprintf("referral:%d:signup", referral.ID)).First(&txn).Error; err != nil {
		t.Fatalf("signup award transaction missing: %v", err)
	}
	if txn.UserID != referrer.ID || txn.Amount != 100 {
		t.Fatalf("signup award want 100 for referrer, got %+v", txn)
	}
}

func TestRegisterWithVisitorKeyConvertsClicks(t *testing.T) {
	svc, affiliateService, db := setupUserAuthServiceTest(t)

	referrer, _, _, err := svc.Register(RegisterInput{Email: "tracker@example.com", Password: "Str0ngPass"})
	if err != nil {
		t.Fatalf("register referrer failed: %v", err)
	}
	affiliate, err := affiliateService.GetOrCreateAffiliate(referrer.ID)
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	if err := affiliateService.TrackClick(AffiliateTrackClickInput{
		AffiliateCode: affiliate.AffiliateCode,
		VisitorKey:    "visitor-reg",
		LandingPath:   "/products/bio-gel",
	}); err != nil {
		t.Fatalf("track click failed: %v", err)
	}

	referred, _, _, err := svc.Register(RegisterInput{
		Email:      "clicked@example.com",
		Password:   "Str0ngPass",
		VisitorKey: "visitor-reg",
	})
	if err != nil {
		t.Fatalf("register referred failed: %v", err)
	}

	var referral models.AffiliateReferral
	if err := db.Where("referred_user_id = ?", referred.ID).First(&referral).Error; err != nil {
		t.Fatalf("click attribution should create a referral: %v", err)
	}
	var click models.AffiliateLinkClick
	if err := db.Where("visitor_key = ?", "visitor-reg").First(&click).Error; err != nil {
		t.Fatalf("load click failed: %v", err)
	}
	if !click.Converted || click.ConvertedUserID == nil || *click.ConvertedUserID != referred.ID {
		t.Fatalf("click should convert to the new user, got %+v", click)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := setupUserAuthServiceTest(t)

	user, _, _, err := svc.Register(RegisterInput{Email: "rotate@example.com", Password: "Str0ngPass"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ChangePassword(user.ID, "wrong", "N3wStrongPass"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong old password want ErrInvalidPassword got %v", err)
	}
	if err := svc.ChangePassword(user.ID, "Str0ngPass", "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak new password want ErrWeakPassword got %v", err)
	}
	if err := svc.ChangePassword(user.ID, "Str0ngPass", "N3wStrongPass"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	if _, _, _, err := svc.Login("rotate@example.com", "Str0ngPass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should stop working, got %v", err)
	}
	if _, _, _, err := svc.Login("rotate@example.com", "N3wStrongPass"); err != nil {
		t.Fatalf("new password login failed: %v", err)
	}
}

func TestLoginDisabledUser(t *testing.T) {
	svc, _, db := setupUserAuthServiceTest(t)

	user, _, _, err := svc.Register(RegisterInput{Email: "banned@example.com", Password: "Str0ngPass"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}

	if _, _, _, err := svc.Login("banned@example.com", "Str0ngPass"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("disabled user want ErrUserDisabled got %v", err)
	}
}
