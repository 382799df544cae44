package service

import (
	"strings"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"

	"github.com/shopspring/decimal"
)

// CouponAdminService 优惠券管理服务
type CouponAdminService struct {
	repo repository.CouponRepository
}

// NewCouponAdminService 创建优惠券管理服务
func NewCouponAdminService(repo repository.CouponRepository) *CouponAdminService {
	return &CouponAdminService{repo: repo}
}

// CouponInput 创建/更新优惠券输入
type CouponInput struct {
	Code           string
	Type           string
	Value          models.Money
	MinPurchase    models.Money
	MaxDiscount    models.Money
	UsageLimit     int
	PerUserLimit   int
	UserID         *uint
	IncludedIDs    []uint
	ExcludedIDs    []uint
	IncludedCatIDs []uint
	StartsAt       *time.Time
	EndsAt         *time.Time
	IsActive       *bool
}

func validateCouponInput(input CouponInput) (string, string, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return "", "", ErrCouponInvalid
	}
	couponType := strings.ToLower(strings.TrimSpace(input.Type))
	if couponType != constants.CouponTypeFixed && couponType != constants.CouponTypePercent {
		return "", "", ErrCouponInvalid
	}
	if input.Value.Decimal.LessThanOrEqual(decimal.Zero) {
		return "", "", ErrCouponInvalid
	}
	if couponType == constants.CouponTypePercent && input.Value.Decimal.GreaterThan(decimal.NewFromInt(100)) {
		return "", "", ErrCouponInvalid
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return "", "", ErrCouponInvalid
	}
	return code, couponType, nil
}

// Create 创建优惠券
func (s *CouponAdminService) Create(input CouponInput) (*models.Coupon, error) {
	code, couponType, err := validateCouponInput(input)
	if err != nil {
		return nil, err
	}

	exist, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrCouponInvalid
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	coupon := &models.Coupon{
		Code:           code,
		Source:         constants.CouponSourceAdmin,
		UserID:         input.UserID,
		Type:           couponType,
		Value:          input.Value,
		MinPurchase:    input.MinPurchase,
		MaxDiscount:    input.MaxDiscount,
		UsageLimit:     input.UsageLimit,
		UsedCount:      0,
		PerUserLimit:   input.PerUserLimit,
		IncludedIDs:    models.UintArray(input.IncludedIDs),
		ExcludedIDs:    models.UintArray(input.ExcludedIDs),
		IncludedCatIDs: models.UintArray(input.IncludedCatIDs),
		StartsAt:       input.StartsAt,
		EndsAt:         input.EndsAt,
		IsActive:       isActive,
	}

	if err := s.repo.Create(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Update 更新优惠券
func (s *CouponAdminService) Update(id uint, input CouponInput) (*models.Coupon, error) {
	if id == 0 {
		return nil, ErrCouponInvalid
	}
	coupon, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	code, couponType, err := validateCouponInput(input)
	if err != nil {
		return nil, err
	}
	if code != coupon.Code {
		exist, err := s.repo.GetByCode(code)
		if err != nil {
			return nil, err
		}
		if exist != nil && exist.ID != coupon.ID {
			return nil, ErrCouponInvalid
		}
	}

	coupon.Code = code
	coupon.Type = couponType
	coupon.Value = input.Value
	coupon.MinPurchase = input.MinPurchase
	coupon.MaxDiscount = input.MaxDiscount
	coupon.UsageLimit = input.UsageLimit
	coupon.PerUserLimit = input.PerUserLimit
	coupon.UserID = input.UserID
	coupon.IncludedIDs = models.UintArray(input.IncludedIDs)
	coupon.ExcludedIDs = models.UintArray(input.ExcludedIDs)
	coupon.IncludedCatIDs = models.UintArray(input.IncludedCatIDs)
	coupon.StartsAt = input.StartsAt
	coupon.EndsAt = input.EndsAt
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}

	if err := s.repo.Update(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Delete 删除优惠券
func (s *CouponAdminService) Delete(id uint) error {
	if id == 0 {
		return ErrCouponNotFound
	}
	coupon, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	return s.repo.Delete(id)
}

// List 查询优惠券列表
func (s *CouponAdminService) List(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	return s.repo.List(filter)
}

// Get 查询优惠券详情
func (s *CouponAdminService) Get(id uint) (*models.Coupon, error) {
	coupon, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}
