package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRewardServiceTest(t *testing.T) (*RewardService, *PointsService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:reward_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Affiliate{},
		&models.PointsTransaction{},
		&models.PointsRedemption{},
		&models.Reward{},
		&models.Coupon{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	pointsRepo := repository.NewPointsRepository(db)
	pointsService := NewPointsService(pointsRepo, repository.NewAffiliateRepository(db), repository.NewUserRepository(db))
	svc := NewRewardService(repository.NewRewardRepository(db), pointsRepo, repository.NewCouponRepository(db), pointsService)
	return svc, pointsService, db
}

func createRewardTestUser(t *testing.T, db *gorm.DB, email string) models.User {
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

func createTestReward(t *testing.T, svc *RewardService, pointsCost int64) *models.Reward {
	t.Helper()

	reward, err := svc.CreateReward(RewardInput{
		Name:          fmt.Sprintf("%d 积分兑 5 欧代金券", pointsCost),
		PointsCost:    pointsCost,
		DiscountType:  constants.RewardDiscountFixed,
		DiscountValue: moneyFromString(t, "5"),
		ValidityDays:  30,
	})
	if err != nil {
		t.Fatalf("create reward failed: %v", err)
	}
	return reward
}

func TestRedeemIssuesCouponAndDeductsPoints(t *testing.T) {
	svc, pointsService, db := setupRewardServiceTest(t)
	user := createRewardTestUser(t, db, "redeemer@example.com")
	reward := createTestReward(t, svc, 500)

	if _, err := pointsService.AwardPoints(PointsAwardInput{
		UserID:    user.ID,
		Amount:    800,
		Type:      constants.PointsTxnTypeReferral,
		Reference: "referral:1:signup",
	}); err != nil {
		t.Fatalf("seed points failed: %v", err)
	}

	redemption, err := svc.Redeem(user.ID, reward.ID)
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if redemption.Status != constants.RedemptionStatusIssued {
		t.Fatalf("redemption status want issued got %s", redemption.Status)
	}
	if redemption.PointsCost != 500 {
		t.Fatalf("points cost want 500 got %d", redemption.PointsCost)
	}
	if !strings.HasPrefix(redemption.CouponCode, redemptionCouponPrefix) {
		t.Fatalf("coupon code want %s prefix got %s", redemptionCouponPrefix, redemption.CouponCode)
	}

	balance, err := pointsService.GetBalance(user.ID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if balance.CurrentBalance != 300 {
		t.Fatalf("balance after redeem want 300 got %d", balance.CurrentBalance)
	}

	var coupon models.Coupon
	if err := db.Where("code = ?", redemption.CouponCode).First(&coupon).Error; err != nil {
		t.Fatalf("issued coupon missing: %v", err)
	}
	if coupon.UserID == nil || *coupon.UserID != user.ID {
		t.Fatalf("coupon must bind to the redeeming user, got %+v", coupon.UserID)
	}
	if coupon.UsageLimit != 1 || coupon.PerUserLimit != 1 {
		t.Fatalf("redemption coupon must be single-use, got limit=%d per_user=%d", coupon.UsageLimit, coupon.PerUserLimit)
	}
	if coupon.Source != constants.CouponSourceRedemption {
		t.Fatalf("coupon source want redemption got %s", coupon.Source)
	}
	if coupon.EndsAt == nil {
		t.Fatalf("redemption coupon must expire")
	}
}

func TestRedeemInsufficientBalanceNoSideEffects(t *testing.T) {
	svc, pointsService, db := setupRewardServiceTest(t)
	user := createRewardTestUser(t, db, "broke@example.com")
	reward := createTestReward(t, svc, 500)

	if _, err := pointsService.AwardPoints(PointsAwardInput{
		UserID:    user.ID,
		Amount:    100,
		Type:      constants.PointsTxnTypeReferral,
		Reference: "referral:2:signup",
	}); err != nil {
		t.Fatalf("seed points failed: %v", err)
	}

	if _, err := svc.Redeem(user.ID, reward.ID); !errors.Is(err, ErrPointsInsufficient) {
		t.Fatalf("want ErrPointsInsufficient got %v", err)
	}

	var couponCount, redemptionCount int64
	db.Model(&models.Coupon{}).Count(&couponCount)
	db.Model(&models.PointsRedemption{}).Count(&redemptionCount)
	if couponCount != 0 || redemptionCount != 0 {
		t.Fatalf("failed redeem must roll back, got coupons=%d redemptions=%d", couponCount, redemptionCount)
	}
	balance, err := pointsService.GetBalance(user.ID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if balance.CurrentBalance != 100 {
		t.Fatalf("balance must be untouched, want 100 got %d", balance.CurrentBalance)
	}
}

func TestRedeemInactiveReward(t *testing.T) {
	svc, _, db := setupRewardServiceTest(t)
	user := createRewardTestUser(t, db, "latecomer@example.com")
	reward := createTestReward(t, svc, 500)

	inactive := false
	if _, err := svc.UpdateReward(reward.ID, RewardInput{
		Name:          reward.Name,
		PointsCost:    reward.PointsCost,
		DiscountType:  reward.DiscountType,
		DiscountValue: reward.DiscountValue,
		IsActive:      &inactive,
	}); err != nil {
		t.Fatalf("deactivate reward failed: %v", err)
	}

	if _, err := svc.Redeem(user.ID, reward.ID); !errors.Is(err, ErrRewardInactive) {
		t.Fatalf("want ErrRewardInactive got %v", err)
	}
	if _, err := svc.Redeem(user.ID, reward.ID+100); !errors.Is(err, ErrRewardNotFound) {
		t.Fatalf("want ErrRewardNotFound got %v", err)
	}
}

func TestMarkRedemptionUsedOnlyOnce(t *testing.T) {
	svc, pointsService, db := setupRewardServiceTest(t)
	user := createRewardTestUser(t, db, "spender@example.com")
	reward := createTestReward(t, svc, 300)

	if _, err := pointsService.AwardPoints(PointsAwardInput{
		UserID:    user.ID,
		Amount:    300,
		Type:      constants.PointsTxnTypeReferral,
		Reference: "referral:3:signup",
	}); err != nil {
		t.Fatalf("seed points failed: %v", err)
	}
	redemption, err := svc.Redeem(user.ID, reward.ID)
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	if err := svc.MarkRedemptionUsedTx(db, redemption.CouponCode); err != nil {
		t.Fatalf("mark used failed: %v", err)
	}
	var row models.PointsRedemption
	if err := db.First(&row, redemption.ID).Error; err != nil {
		t.Fatalf("load redemption failed: %v", err)
	}
	if row.Status != constants.RedemptionStatusUsed || row.UsedAt == nil {
		t.Fatalf("redemption should be used with timestamp, got %+v", row)
	}
	firstUsedAt := *row.UsedAt

	if err := svc.MarkRedemptionUsedTx(db, redemption.CouponCode); err != nil {
		t.Fatalf("second mark used failed: %v", err)
	}
	if err := db.First(&row, redemption.ID).Error; err != nil {
		t.Fatalf("reload redemption failed: %v", err)
	}
	if !row.UsedAt.Equal(firstUsedAt) {
		t.Fatalf("second mark must not move used_at")
	}
}

func TestValidateRewardInput(t *testing.T) {
	cases := []struct {
		name  string
		input RewardInput
	}{
		{"blank_name", RewardInput{PointsCost: 100, DiscountType: constants.RewardDiscountFixed, DiscountValue: models.Money{}}},
		{"zero_cost", RewardInput{Name: "r", PointsCost: 0, DiscountType: constants.RewardDiscountFixed}},
		{"bad_type", RewardInput{Name: "r", PointsCost: 100, DiscountType: "cashback"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateRewardInput(tc.input); !errors.Is(err, ErrPointsConfigInvalid) {
				t.Fatalf("want ErrPointsConfigInvalid got %v", err)
			}
		})
	}

	percentTooHigh := RewardInput{
		Name:          "percent",
		PointsCost:    100,
		DiscountType:  constants.RewardDiscountPercent,
		DiscountValue: moneyFromString(t, "120"),
	}
	if err := validateRewardInput(percentTooHigh); !errors.Is(err, ErrPointsConfigInvalid) {
		t.Fatalf("percent above 100 want ErrPointsConfigInvalid got %v", err)
	}
}
