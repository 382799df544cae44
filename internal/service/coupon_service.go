package service

import (
	"strings"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"

	"github.com/shopspring/decimal"
)

// CouponService 优惠券服务
type CouponService struct {
	couponRepo repository.CouponRepository
	usageRepo  repository.CouponUsageRepository
}

// NewCouponService 创建优惠券服务
func NewCouponService(couponRepo repository.CouponRepository, usageRepo repository.CouponUsageRepository) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
	}
}

// ApplyCoupon 计算优惠券折扣金额
func (s *CouponService) ApplyCoupon(code string, userID uint, items []models.OrderItem) (models.Money, *models.Coupon, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return models.Money{}, nil, ErrCouponInvalid
	}

	coupon, err := s.couponRepo.GetByCode(trimmed)
	if err != nil {
		return models.Money{}, nil, err
	}
	if coupon == nil {
		return models.Money{}, nil, ErrCouponNotFound
	}
	if !coupon.IsActive {
		return models.Money{}, coupon, ErrCouponInactive
	}
	if coupon.UserID != nil && *coupon.UserID != userID {
		return models.Money{}, coupon, ErrCouponNotOwned
	}

	now := time.Now()
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return models.Money{}, coupon, ErrCouponNotStarted
	}
	if coupon.EndsAt != nil && now.After(*coupon.EndsAt) {
		return models.Money{}, coupon, ErrCouponExpired
	}

	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return models.Money{}, coupon, ErrCouponUsageLimit
	}

	if coupon.PerUserLimit > 0 && userID != 0 {
		count, err := s.usageRepo.CountByCouponAndUser(coupon.ID, userID)
		if err != nil {
			return models.Money{}, coupon, err
		}
		if int(count) >= coupon.PerUserLimit {
			return models.Money{}, coupon, ErrCouponPerUserLimit
		}
	}

	eligibleSubtotal, err := resolveEligibleSubtotal(coupon, items)
	if err != nil {
		return models.Money{}, coupon, err
	}

	if eligibleSubtotal.Decimal.Cmp(coupon.MinPurchase.Decimal) < 0 {
		return models.Money{}, coupon, ErrCouponMinPurchase
	}

	discount, err := calculateCouponDiscount(coupon, eligibleSubtotal)
	if err != nil {
		return models.Money{}, coupon, err
	}

	if coupon.MaxDiscount.Decimal.GreaterThan(decimal.Zero) && discount.Decimal.GreaterThan(coupon.MaxDiscount.Decimal) {
		discount = models.NewMoneyFromDecimal(coupon.MaxDiscount.Decimal)
	}
	if discount.Decimal.GreaterThan(eligibleSubtotal.Decimal) {
		discount = models.NewMoneyFromDecimal(eligibleSubtotal.Decimal)
	}

	return discount, coupon, nil
}

// resolveEligibleSubtotal 计算订单内参与优惠的商品小计。
// 有包含名单时仅名单内商品/分类参与，排除名单始终生效。
func resolveEligibleSubtotal(coupon *models.Coupon, items []models.OrderItem) (models.Money, error) {
	hasInclusion := len(coupon.IncludedIDs) > 0 || len(coupon.IncludedCatIDs) > 0

	eligible := decimal.Zero
	for _, item := range items {
		if coupon.ExcludedIDs.Contains(item.ProductID) {
			continue
		}
		if hasInclusion &&
			!coupon.IncludedIDs.Contains(item.ProductID) &&
			!coupon.IncludedCatIDs.Contains(item.CategoryID) {
			continue
		}
		eligible = eligible.Add(item.TotalPrice.Decimal)
	}

	if eligible.IsZero() {
		return models.Money{}, ErrCouponScopeInvalid
	}
	return models.NewMoneyFromDecimal(eligible), nil
}

func calculateCouponDiscount(coupon *models.Coupon, eligibleSubtotal models.Money) (models.Money, error) {
	switch strings.ToLower(strings.TrimSpace(coupon.Type)) {
	case constants.CouponTypeFixed:
		if coupon.Value.Decimal.LessThanOrEqual(decimal.Zero) {
			return models.Money{}, ErrCouponInvalid
		}
		return models.NewMoneyFromDecimal(coupon.Value.Decimal), nil
	case constants.CouponTypePercent:
		if coupon.Value.Decimal.LessThanOrEqual(decimal.Zero) {
			return models.Money{}, ErrCouponInvalid
		}
		percent := coupon.Value.Decimal.Div(decimal.NewFromInt(100))
		discount := eligibleSubtotal.Decimal.Mul(percent)
		return models.NewMoneyFromDecimal(discount), nil
	default:
		return models.Money{}, ErrCouponInvalid
	}
}
