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

type orderServiceFixture struct {
	orderService  *OrderService
	rewardService *RewardService
	pointsService *PointsService
	db            *gorm.DB
}

func setupOrderServiceTest(t *testing.T) orderServiceFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:order_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		&models.PointsRedemption{},
		&models.Reward{},
		&models.Category{},
		&models.Product{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Order{},
		&models.OrderItem{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	usageRepo := repository.NewCouponUsageRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	userRepo := repository.NewUserRepository(db)
	settingService := NewSettingService(repository.NewSettingRepository(db))

	pointsService := NewPointsService(pointsRepo, affiliateRepo, userRepo)
	affiliateService := NewAffiliateService(affiliateRepo, userRepo, orderRepo, pointsRepo, settingService)
	couponService := NewCouponService(couponRepo, usageRepo)
	rewardService := NewRewardService(repository.NewRewardRepository(db), pointsRepo, couponRepo, pointsService)
	awardService := NewPointsAwardService(affiliateRepo, pointsRepo, orderRepo, affiliateService, pointsService, settingService)

	orderService := NewOrderService(orderRepo, productRepo, couponRepo, usageRepo, couponService, rewardService, awardService, nil)
	return orderServiceFixture{
		orderService:  orderService,
		rewardService: rewardService,
		pointsService: pointsService,
		db:            db,
	}
}

func createOrderTestUser(t *testing.T, db *gorm.DB, email string) models.User {
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

func createOrderTestProduct(t *testing.T, db *gorm.DB, slug, price string, active bool) models.Product {
	t.Helper()

	category := models.Category{Slug: slug + "-cat", Name: slug}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	product := models.Product{
		CategoryID:  category.ID,
		Slug:        slug,
		Name:        slug,
		PriceAmount: moneyFromString(t, price),
		IsActive:    active,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestCreateOrderComputesTotals(t *testing.T) {
	fixture := setupOrderServiceTest(t)
	user := createOrderTestUser(t, fixture.db, "shopper@example.com")
	gel := createOrderTestProduct(t, fixture.db, "bio-gel-base", "24.50", true)
	polish := createOrderTestProduct(t, fixture.db, "gemini-polish-red", "12.00", true)

	order, err := fixture.orderService.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items: []OrderItemInput{
			{ProductID: gel.ID, Quantity: 2},
			{ProductID: polish.ID, Quantity: 1},
		},
		ClientIP: "203.0.113.4",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if order.Status != constants.OrderStatusPaid || order.PaidAt == nil {
		t.Fatalf("order should be created paid, got status=%s paid_at=%v", order.Status, order.PaidAt)
	}
	if order.Currency != "EUR" {
		t.Fatalf("currency want EUR got %s", order.Currency)
	}
	if !order.OriginalAmount.Decimal.Equal(moneyFromString(t, "61.00").Decimal) {
		t.Fatalf("original amount want 61.00 got %s", order.OriginalAmount.Decimal)
	}
	if !order.TotalAmount.Decimal.Equal(order.OriginalAmount.Decimal) {
		t.Fatalf("no coupon order total must equal original, got %s", order.TotalAmount.Decimal)
	}
	if len(order.Items) != 2 {
		t.Fatalf("order items want 2 got %d", len(order.Items))
	}
	for _, item := range order.Items {
		if item.ProductName == "" || item.CategoryID == 0 {
			t.Fatalf("order item must snapshot product data, got %+v", item)
		}
	}
}

func TestCreateOrderAppliesCoupon(t *testing.T) {
	fixture := setupOrderServiceTest(t)
	user := createOrderTestUser(t, fixture.db, "coupon-shopper@example.com")
	product := createOrderTestProduct(t, fixture.db, "evo-gel-kit", "80.00", true)

	coupon := models.Coupon{
		Code:     "WELCOME10",
		Type:     constants.CouponTypeFixed,
		Value:    moneyFromString(t, "10"),
		IsActive: true,
	}
	if err := fixture.db.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	order, err := fixture.orderService.CreateOrder(CreateOrderInput{
		UserID:     user.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
		CouponCode: "welcome10",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if !order.DiscountAmount.Decimal.Equal(moneyFromString(t, "10").Decimal) {
		t.Fatalf("discount want 10 got %s", order.DiscountAmount.Decimal)
	}
	if !order.TotalAmount.Decimal.Equal(moneyFromString(t, "70.00").Decimal) {
		t.Fatalf("total want 70.00 got %s", order.TotalAmount.Decimal)
	}
	if order.CouponID == nil || *order.CouponID != coupon.ID {
		t.Fatalf("order should reference the coupon, got %+v", order.CouponID)
	}

	var reloaded models.Coupon
	if err := fixture.db.First(&reloaded, coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if reloaded.UsedCount != 1 {
		t.Fatalf("coupon used count want 1 got %d", reloaded.UsedCount)
	}
	var usageCount int64
	fixture.db.Model(&models.CouponUsage{}).Where("coupon_id = ? AND user_id = ?", coupon.ID, user.ID).Count(&usageCount)
	if usageCount != 1 {
		t.Fatalf("coupon usage record want 1 got %d", usageCount)
	}
}

func TestCreateOrderMarksRedemptionUsed(t *testing.T) {
	fixture := setupOrderServiceTest(t)
	user := createOrderTestUser(t, fixture.db, "redeem-shopper@example.com")
	product := createOrderTestProduct(t, fixture.db, "ethos-hand-cream", "40.00", true)

	reward, err := fixture.rewardService.CreateReward(RewardInput{
		Name:          "500 积分兑 5 欧",
		PointsCost:    500,
		DiscountType:  constants.RewardDiscountFixed,
		DiscountValue: moneyFromString(t, "5"),
	})
	if err != nil {
		t.Fatalf("create reward failed: %v", err)
	}
	if _, err := fixture.pointsService.AwardPoints(PointsAwardInput{
		UserID:    user.ID,
		Amount:    500,
		Type:      constants.PointsTxnTypeReferral,
		Reference: "referral:50:signup",
	}); err != nil {
		t.Fatalf("seed points failed: %v", err)
	}
	redemption, err := fixture.rewardService.Redeem(user.ID, reward.ID)
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	order, err := fixture.orderService.CreateOrder(CreateOrderInput{
		UserID:     user.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
		CouponCode: redemption.CouponCode,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !order.TotalAmount.Decimal.Equal(moneyFromString(t, "35.00").Decimal) {
		t.Fatalf("total after redemption coupon want 35.00 got %s", order.TotalAmount.Decimal)
	}

	var row models.PointsRedemption
	if err := fixture.db.First(&row, redemption.ID).Error; err != nil {
		t.Fatalf("load redemption failed: %v", err)
	}
	if row.Status != constants.RedemptionStatusUsed || row.UsedAt == nil {
		t.Fatalf("redemption should be marked used, got %+v", row)
	}

	// 单次券用过后再下单必须拒绝
	if _, err := fixture.orderService.CreateOrder(CreateOrderInput{
		UserID:     user.ID,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
		CouponCode: redemption.CouponCode,
	}); !errors.Is(err, ErrCouponUsageLimit) && !errors.Is(err, ErrCouponPerUserLimit) {
		t.Fatalf("reused redemption coupon want usage limit error got %v", err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	fixture := setupOrderServiceTest(t)
	user := createOrderTestUser(t, fixture.db, "strict-shopper@example.com")
	inactive := createOrderTestProduct(t, fixture.db, "retired-color", "10.00", false)

	if _, err := fixture.orderService.CreateOrder(CreateOrderInput{UserID: user.ID}); !errors.Is(err, ErrOrderEmpty) {
		t.Fatalf("empty cart want ErrOrderEmpty got %v", err)
	}
	if _, err := fixture.orderService.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []OrderItemInput{{ProductID: inactive.ID, Quantity: 1}},
	}); !errors.Is(err, ErrProductInactive) {
		t.Fatalf("inactive product want ErrProductInactive got %v", err)
	}
	if _, err := fixture.orderService.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []OrderItemInput{{ProductID: 9999, Quantity: 1}},
	}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("unknown product want ErrProductNotFound got %v", err)
	}
	if _, err := fixture.orderService.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []OrderItemInput{{ProductID: inactive.ID, Quantity: 0}},
	}); !errors.Is(err, ErrOrderEmpty) {
		t.Fatalf("zero quantity want ErrOrderEmpty got %v", err)
	}

	var count int64
	fixture.db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("failed orders must not persist, got %d", count)
	}
}

func TestCreateOrderAwardsOwnPurchasePoints(t *testing.T) {
	fixture := setupOrderServiceTest(t)
	user := createOrderTestUser(t, fixture.db, "points-shopper@example.com")
	product := createOrderTestProduct(t, fixture.db, "spa-foot-soak", "30.00", true)

	config := models.PointsConfig{ActionType: constants.PointsActionOwnPurchase, PointsAmount: 15, IsActive: true}
	if err := fixture.db.Create(&config).Error; err != nil {
		t.Fatalf("seed points config failed: %v", err)
	}

	order, err := fixture.orderService.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 队列未启用时积分内联结算
	var txn models.PointsTransaction
	if err := fixture.db.Where("reference = ?", fmt.Sprintf("order:%d:own_purchase", order.ID)).
		First(&txn).Error; err != nil {
		t.Fatalf("own purchase transaction missing: %v", err)
	}
	if txn.Amount != 15 || txn.UserID != user.ID {
		t.Fatalf("own purchase award want 15 for user %d got %+v", user.ID, txn)
	}
}

func TestGetUserOrderScoped(t *testing.T) {
	fixture := setupOrderServiceTest(t)
	owner := createOrderTestUser(t, fixture.db, "owner@example.com")
	stranger := createOrderTestUser(t, fixture.db, "stranger@example.com")
	product := createOrderTestProduct(t, fixture.db, "bio-gel-top", "20.00", true)

	order, err := fixture.orderService.CreateOrder(CreateOrderInput{
		UserID: owner.ID,
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := fixture.orderService.GetUserOrder(owner.ID, order.ID); err != nil {
		t.Fatalf("owner should read own order: %v", err)
	}
	if _, err := fixture.orderService.GetUserOrder(stranger.ID, order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("foreign order want ErrOrderNotFound got %v", err)
	}
}
