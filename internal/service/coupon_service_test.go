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

func setupCouponServiceTest(t *testing.T) (*CouponService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:coupon_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Coupon{}, &models.CouponUsage{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	svc := NewCouponService(repository.NewCouponRepository(db), repository.NewCouponUsageRepository(db))
	return svc, db
}

func createTestCoupon(t *testing.T, db *gorm.DB, coupon models.Coupon) models.Coupon {
	t.Helper()

	if coupon.Type == "" {
		coupon.Type = constants.CouponTypeFixed
	}
	coupon.IsActive = true
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return coupon
}

func orderItems(t *testing.T, prices map[uint]string) []models.OrderItem {
	t.Helper()

	items := make([]models.OrderItem, 0, len(prices))
	for productID, price := range prices {
		items = append(items, models.OrderItem{
			ProductID:  productID,
			CategoryID: productID * 10,
			TotalPrice: moneyFromString(t, price),
		})
	}
	return items
}

func TestApplyCouponFixedDiscount(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	coupon := createTestCoupon(t, db, models.Coupon{
		Code:  "SPRING10",
		Value: moneyFromString(t, "10"),
	})

	discount, applied, err := svc.ApplyCoupon(coupon.Code, 1, orderItems(t, map[uint]string{1: "60"}))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if applied.ID != coupon.ID {
		t.Fatalf("applied coupon id want %d got %d", coupon.ID, applied.ID)
	}
	if !discount.Decimal.Equal(moneyFromString(t, "10").Decimal) {
		t.Fatalf("fixed discount want 10 got %s", discount.Decimal)
	}
}

func TestApplyCouponPercentWithCap(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	coupon := createTestCoupon(t, db, models.Coupon{
		Code:        "TENOFF",
		Type:        constants.CouponTypePercent,
		Value:       moneyFromString(t, "10"),
		MaxDiscount: moneyFromString(t, "15"),
	})

	discount, _, err := svc.ApplyCoupon(coupon.Code, 1, orderItems(t, map[uint]string{1: "100"}))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !discount.Decimal.Equal(moneyFromString(t, "10").Decimal) {
		t.Fatalf("10%% of 100 want 10 got %s", discount.Decimal)
	}

	discount, _, err = svc.ApplyCoupon(coupon.Code, 1, orderItems(t, map[uint]string{1: "400"}))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !discount.Decimal.Equal(moneyFromString(t, "15").Decimal) {
		t.Fatalf("discount should cap at max_discount, want 15 got %s", discount.Decimal)
	}
}

func TestApplyCouponDiscountNeverExceedsSubtotal(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	coupon := createTestCoupon(t, db, models.Coupon{
		Code:  "BIGFIXED",
		Value: moneyFromString(t, "50"),
	})

	discount, _, err := svc.ApplyCoupon(coupon.Code, 1, orderItems(t, map[uint]string{1: "30"}))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !discount.Decimal.Equal(moneyFromString(t, "30").Decimal) {
		t.Fatalf("discount must clamp to subtotal, want 30 got %s", discount.Decimal)
	}
}

func TestApplyCouponMinPurchase(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	coupon := createTestCoupon(t, db, models.Coupon{
		Code:        "MIN50",
		Value:       moneyFromString(t, "5"),
		MinPurchase: moneyFromString(t, "50"),
	})

	if _, _, err := svc.ApplyCoupon(coupon.Code, 1, orderItems(t, map[uint]string{1: "49.99"})); !errors.Is(err, ErrCouponMinPurchase) {
		t.Fatalf("below min purchase want ErrCouponMinPurchase got %v", err)
	}
	if _, _, err := svc.ApplyCoupon(coupon.Code, 1, orderItems(t, map[uint]string{1: "50"})); err != nil {
		t.Fatalf("at min purchase should apply: %v", err)
	}
}

func TestApplyCouponLifecycleErrors(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := createTestCoupon(t, db, models.Coupon{Code: "GONE", Value: moneyFromString(t, "5"), EndsAt: &past})
	upcoming := createTestCoupon(t, db, models.Coupon{Code: "SOON", Value: moneyFromString(t, "5"), StartsAt: &future})
	exhausted := createTestCoupon(t, db, models.Coupon{Code: "USEDUP", Value: moneyFromString(t, "5"), UsageLimit: 1, UsedCount: 1})

	items := orderItems(t, map[uint]string{1: "100"})
	if _, _, err := svc.ApplyCoupon("MISSING", 1, items); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("unknown code want ErrCouponNotFound got %v", err)
	}
	if _, _, err := svc.ApplyCoupon(expired.Code, 1, items); !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("expired want ErrCouponExpired got %v", err)
	}
	if _, _, err := svc.ApplyCoupon(upcoming.Code, 1, items); !errors.Is(err, ErrCouponNotStarted) {
		t.Fatalf("not started want ErrCouponNotStarted got %v", err)
	}
	if _, _, err := svc.ApplyCoupon(exhausted.Code, 1, items); !errors.Is(err, ErrCouponUsageLimit) {
		t.Fatalf("exhausted want ErrCouponUsageLimit got %v", err)
	}
}

func TestApplyCouponUserBinding(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	owner := uint(7)
	coupon := createTestCoupon(t, db, models.Coupon{
		Code:   "RW-PERSONAL",
		Source: constants.CouponSourceRedemption,
		UserID: &owner,
		Value:  moneyFromString(t, "5"),
	})

	items := orderItems(t, map[uint]string{1: "100"})
	if _, _, err := svc.ApplyCoupon(coupon.Code, 8, items); !errors.Is(err, ErrCouponNotOwned) {
		t.Fatalf("foreign user want ErrCouponNotOwned got %v", err)
	}
	if _, _, err := svc.ApplyCoupon(coupon.Code, owner, items); err != nil {
		t.Fatalf("owner should apply: %v", err)
	}
}

func TestApplyCouponPerUserLimit(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	coupon := createTestCoupon(t, db, models.Coupon{
		Code:         "ONCEEACH",
		Value:        moneyFromString(t, "5"),
		UsageLimit:   100,
		PerUserLimit: 1,
	})
	if err := db.Create(&models.CouponUsage{CouponID: coupon.ID, UserID: 9, OrderID: 1}).Error; err != nil {
		t.Fatalf("seed usage failed: %v", err)
	}

	items := orderItems(t, map[uint]string{1: "100"})
	if _, _, err := svc.ApplyCoupon(coupon.Code, 9, items); !errors.Is(err, ErrCouponPerUserLimit) {
		t.Fatalf("per-user limit want ErrCouponPerUserLimit got %v", err)
	}
	if _, _, err := svc.ApplyCoupon(coupon.Code, 10, items); err != nil {
		t.Fatalf("fresh user should apply: %v", err)
	}
}

func TestApplyCouponScopeRules(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	scoped := createTestCoupon(t, db, models.Coupon{
		Code:        "GELONLY",
		Type:        constants.CouponTypePercent,
		Value:       moneyFromString(t, "50"),
		IncludedIDs: models.UintArray{1},
	})
	excluding := createTestCoupon(t, db, models.Coupon{
		Code:        "NOTSPA",
		Value:       moneyFromString(t, "5"),
		ExcludedIDs: models.UintArray{2},
	})

	// 折扣只按名单内商品小计计算
	discount, _, err := svc.ApplyCoupon(scoped.Code, 1, orderItems(t, map[uint]string{1: "40", 2: "60"}))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !discount.Decimal.Equal(moneyFromString(t, "20").Decimal) {
		t.Fatalf("50%% of eligible 40 want 20 got %s", discount.Decimal)
	}

	if _, _, err := svc.ApplyCoupon(scoped.Code, 1, orderItems(t, map[uint]string{2: "60"})); !errors.Is(err, ErrCouponScopeInvalid) {
		t.Fatalf("no eligible items want ErrCouponScopeInvalid got %v", err)
	}
	if _, _, err := svc.ApplyCoupon(excluding.Code, 1, orderItems(t, map[uint]string{2: "60"})); !errors.Is(err, ErrCouponScopeInvalid) {
		t.Fatalf("all items excluded want ErrCouponScopeInvalid got %v", err)
	}
}
