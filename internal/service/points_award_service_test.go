package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupPointsAwardServiceTest(t *testing.T) (*PointsAwardService, *AffiliateService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:points_award_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		&models.Order{},
		&models.OrderItem{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	affiliateRepo := repository.NewAffiliateRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	settingService := NewSettingService(repository.NewSettingRepository(db))
	affiliateService := NewAffiliateService(affiliateRepo, userRepo, orderRepo, pointsRepo, settingService)
	pointsService := NewPointsService(pointsRepo, affiliateRepo, userRepo)

	svc := NewPointsAwardService(affiliateRepo, pointsRepo, orderRepo, affiliateService, pointsService, settingService)
	return svc, affiliateService, db
}

func seedAwardPointsConfigs(t *testing.T, db *gorm.DB) {
	t.Helper()

	configs := []models.PointsConfig{
		{ActionType: constants.PointsActionReferralSignup, PointsAmount: 100, IsActive: true},
		{
			ActionType:       constants.PointsActionReferralFirstOrder,
			TieredConfigJSON: `[{"min_value":"0","max_value":"50","points":200},{"min_value":"50","points":400}]`,
			IsActive:         true,
		},
		{ActionType: constants.PointsActionReferralRepeatOrder, PointsAmount: 100, IsActive: true},
		{ActionType: constants.PointsActionOwnPurchase, PointsAmount: 10, IsActive: true},
	}
	for i := range configs {
		if err := db.Create(&configs[i]).Error; err != nil {
			t.Fatalf("seed points config failed: %v", err)
		}
	}
}

func createAwardTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()

	row := models.User{
		Email:        email,
		PasswordHash: "hash",
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return row
}

func createPaidTestOrder(t *testing.T, db *gorm.DB, userID uint, total string) models.Order {
	t.Helper()

	now := time.Now()
	order := models.Order{
		OrderNo:     fmt.Sprintf("BN%d", time.Now().UnixNano()),
		UserID:      userID,
		Status:      constants.OrderStatusPaid,
		Currency:    "EUR",
		TotalAmount: moneyFromString(t, total),
		PaidAt:      &now,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func sumUserPoints(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()

	var total int64
	if err := db.Model(&models.PointsTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		t.Fatalf("sum points failed: %v", err)
	}
	return total
}

func TestHandleSignupAwardIdempotent(t *testing.T) {
	svc, affiliateService, db := setupPointsAwardServiceTest(t)
	seedAwardPointsConfigs(t, db)

	referrer := createAwardTestUser(t, db, "signup-referrer@example.com")
	referred := createAwardTestUser(t, db, "signup-referred@example.com")
	affiliate, err := affiliateService.GetOrCreateAffiliate(referrer.ID)
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	referral, err := affiliateService.CreateReferral(affiliate.ID, referred.ID)
	if err != nil {
		t.Fatalf("create referral failed: %v", err)
	}

	if err := svc.HandleSignupAward(referral.ID); err != nil {
		t.Fatalf("signup award failed: %v", err)
	}
	if err := svc.HandleSignupAward(referral.ID); err != nil {
		t.Fatalf("replayed signup award failed: %v", err)
	}

	if got := sumUserPoints(t, db, referrer.ID); got != 100 {
		t.Fatalf("signup award must pay once, want 100 got %d", got)
	}
}

func TestHandleSignupAwardSkipsWhenDisabled(t *testing.T) {
	svc, affiliateService, db := setupPointsAwardServiceTest(t)
	seedAwardPointsConfigs(t, db)

	referrer := createAwardTestUser(t, db, "disabled-referrer@example.com")
	referred := createAwardTestUser(t, db, "disabled-referred@example.com")
	affiliate, err := affiliateService.GetOrCreateAffiliate(referrer.ID)
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	referral, err := affiliateService.CreateReferral(affiliate.ID, referred.ID)
	if err != nil {
		t.Fatalf("create referral failed: %v", err)
	}

	setting := PointsProgramDefaultSetting()
	setting.Enabled = false
	settingService := NewSettingService(repository.NewSettingRepository(db))
	if _, err := settingService.UpdatePointsProgramSetting(setting); err != nil {
		t.Fatalf("disable program failed: %v", err)
	}

	if err := svc.HandleSignupAward(referral.ID); err != nil {
		t.Fatalf("signup award failed: %v", err)
	}
	if got := sumUserPoints(t, db, referrer.ID); got != 0 {
		t.Fatalf("disabled program must not pay, got %d", got)
	}
}

func TestHandleOrderAwardsFirstOrder(t *testing.T) {
	svc, affiliateService, db := setupPointsAwardServiceTest(t)
	seedAwardPointsConfigs(t, db)

	referrer := createAwardTestUser(t, db, "first-referrer@example.com")
	buyer := createAwardTestUser(t, db, "first-buyer@example.com")
	affiliate, err := affiliateService.GetOrCreateAffiliate(referrer.ID)
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	referral, err := affiliateService.CreateReferral(affiliate.ID, buyer.ID)
	if err != nil {
		t.Fatalf("create referral failed: %v", err)
	}

	order := createPaidTestOrder(t, db, buyer.ID, "80")
	if err := svc.HandleOrderAwards(order.ID); err != nil {
		t.Fatalf("order awards failed: %v", err)
	}

	// 首单落在 50+ 档 -> 推荐人 400 分；买家按订单金额得消费积分
	if got := sumUserPoints(t, db, referrer.ID); got != 400 {
		t.Fatalf("referrer first-order award want 400 got %d", got)
	}
	if got := sumUserPoints(t, db, buyer.ID); got != 10 {
		t.Fatalf("buyer own-purchase award want 10 got %d", got)
	}

	var row models.AffiliateReferral
	if err := db.First(&row, referral.ID).Error; err != nil {
		t.Fatalf("load referral failed: %v", err)
	}
	if row.Status != constants.ReferralStatusActive || row.FirstOrderID == nil || *row.FirstOrderID != order.ID {
		t.Fatalf("first order must activate the referral, got %+v", row)
	}
}

func TestHandleOrderAwardsRetryAfterActivation(t *testing.T) {
	svc, affiliateService, db := setupPointsAwardServiceTest(t)
	seedAwardPointsConfigs(t, db)

	referrer := createAwardTestUser(t, db, "retry-referrer@example.com")
	buyer := createAwardTestUser(t, db, "retry-buyer@example.com")
	affiliate, err := affiliateService.GetOrCreateAffiliate(referrer.ID)
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	if _, err := affiliateService.CreateReferral(affiliate.ID, buyer.ID); err != nil {
		t.Fatalf("create referral failed: %v", err)
	}

	order := createPaidTestOrder(t, db, buyer.ID, "30")
	if err := svc.HandleOrderAwards(order.ID); err != nil {
		t.Fatalf("order awards failed: %v", err)
	}
	if err := svc.HandleOrderAwards(order.ID); err != nil {
		t.Fatalf("replayed order awards failed: %v", err)
	}

	// 重放走首单奖励引用，幂等不重复记账
	if got := sumUserPoints(t, db, referrer.ID); got != 200 {
		t.Fatalf("referrer award must not double on replay, want 200 got %d", got)
	}
	if got := sumUserPoints(t, db, buyer.ID); got != 10 {
		t.Fatalf("buyer award must not double on replay, want 10 got %d", got)
	}
}

func TestHandleOrderAwardsRepeatOrder(t *testing.T) {
	svc, affiliateService, db := setupPointsAwardServiceTest(t)
	seedAwardPointsConfigs(t, db)

	referrer := createAwardTestUser(t, db, "repeat-referrer@example.com")
	buyer := createAwardTestUser(t, db, "repeat-buyer@example.com")
	affiliate, err := affiliateService.GetOrCreateAffiliate(referrer.ID)
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	if _, err := affiliateService.CreateReferral(affiliate.ID, buyer.ID); err != nil {
		t.Fatalf("create referral failed: %v", err)
	}

	first := createPaidTestOrder(t, db, buyer.ID, "40")
	if err := svc.HandleOrderAwards(first.ID); err != nil {
		t.Fatalf("first order awards failed: %v", err)
	}
	second := createPaidTestOrder(t, db, buyer.ID, "40")
	if err := svc.HandleOrderAwards(second.ID); err != nil {
		t.Fatalf("second order awards failed: %v", err)
	}

	// 首单 200 + 复购 100
	if got := sumUserPoints(t, db, referrer.ID); got != 300 {
		t.Fatalf("referrer first+repeat want 300 got %d", got)
	}
	if got := sumUserPoints(t, db, buyer.ID); got != 20 {
		t.Fatalf("buyer two purchases want 20 got %d", got)
	}
}

func TestHandleOrderAwardsWithoutReferral(t *testing.T) {
	svc, _, db := setupPointsAwardServiceTest(t)
	seedAwardPointsConfigs(t, db)

	buyer := createAwardTestUser(t, db, "organic-buyer@example.com")
	order := createPaidTestOrder(t, db, buyer.ID, "60")
	if err := svc.HandleOrderAwards(order.ID); err != nil {
		t.Fatalf("order awards failed: %v", err)
	}

	if got := sumUserPoints(t, db, buyer.ID); got != 10 {
		t.Fatalf("organic buyer still earns own-purchase points, want 10 got %d", got)
	}
}

func TestHandleOrderAwardsUnpaidOrderSkipped(t *testing.T) {
	svc, _, db := setupPointsAwardServiceTest(t)
	seedAwardPointsConfigs(t, db)

	buyer := createAwardTestUser(t, db, "window-shopper@example.com")
	order := models.Order{
		OrderNo:     fmt.Sprintf("BN%d", time.Now().UnixNano()),
		UserID:      buyer.ID,
		Status:      constants.OrderStatusPendingPayment,
		Currency:    "EUR",
		TotalAmount: moneyFromString(t, "60"),
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if err := svc.HandleOrderAwards(order.ID); err != nil {
		t.Fatalf("order awards failed: %v", err)
	}
	if got := sumUserPoints(t, db, buyer.ID); got != 0 {
		t.Fatalf("unpaid order must not pay points, got %d", got)
	}
}
