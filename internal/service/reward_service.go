package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/logger"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	redemptionCouponPrefix    = "RW-"
	defaultRewardValidityDays = 30
)

// RewardService 积分奖励与兑换服务
type RewardService struct {
	rewardRepo    repository.RewardRepository
	pointsRepo    repository.PointsRepository
	couponRepo    repository.CouponRepository
	pointsService *PointsService
}

// NewRewardService 创建积分奖励服务
func NewRewardService(
	rewardRepo repository.RewardRepository,
	pointsRepo repository.PointsRepository,
	couponRepo repository.CouponRepository,
	pointsService *PointsService,
) *RewardService {
	return &RewardService{
		rewardRepo:    rewardRepo,
		pointsRepo:    pointsRepo,
		couponRepo:    couponRepo,
		pointsService: pointsService,
	}
}

// RewardInput 创建/更新奖励项输入
type RewardInput struct {
	Name          string
	Description   string
	PointsCost    int64
	DiscountType  string
	DiscountValue models.Money
	MinPurchase   models.Money
	MaxDiscount   models.Money
	ValidityDays  int
	IsActive      *bool
	SortOrder     int
}

// ListActiveRewards 查询商城可兑换的奖励项
func (s *RewardService) ListActiveRewards(page, pageSize int) ([]models.Reward, int64, error) {
	if s.rewardRepo == nil {
		return nil, 0, ErrNotFound
	}
	return s.rewardRepo.List(repository.RewardListFilter{
		Page:       page,
		PageSize:   pageSize,
		OnlyActive: true,
	})
}

// Redeem 积分兑换奖励。余额不足时无任何副作用；
// 成功时在同一事务内完成扣分、发券、兑换记录三步。
func (s *RewardService) Redeem(userID, rewardID uint) (*models.PointsRedemption, error) {
	if userID == 0 || s.rewardRepo == nil || s.pointsRepo == nil || s.couponRepo == nil || s.pointsService == nil {
		return nil, ErrNotFound
	}

	reward, err := s.rewardRepo.GetByID(rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	if !reward.IsActive {
		return nil, ErrRewardInactive
	}
	if reward.PointsCost <= 0 {
		return nil, ErrPointsConfigInvalid
	}

	var result *models.PointsRedemption
	if err := s.pointsRepo.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		reference := fmt.Sprintf("redemption:%d:%d:%d", userID, reward.ID, now.UnixNano())

		txn, err := s.pointsService.AwardPointsTx(tx, PointsAwardInput{
			UserID:          userID,
			Amount:          -reward.PointsCost,
			Type:            constants.PointsTxnTypeRedemption,
			Description:     fmt.Sprintf("兑换奖励：%s", reward.Name),
			Reference:       reference,
			RelatedEntityID: &reward.ID,
		})
		if err != nil {
			return err
		}

		couponRepo := s.couponRepo.WithTx(tx)
		validityDays := reward.ValidityDays
		if validityDays <= 0 {
			validityDays = defaultRewardValidityDays
		}
		endsAt := now.Add(time.Duration(validityDays) * 24 * time.Hour)

		var coupon *models.Coupon
		const maxRetry = 8
		for i := 0; i < maxRetry; i++ {
			code, genErr := generateRedemptionCouponCode()
			if genErr != nil {
				return genErr
			}
			candidate := &models.Coupon{
				Code:         code,
				Source:       constants.CouponSourceRedemption,
				UserID:       &userID,
				Type:         reward.DiscountType,
				Value:        reward.DiscountValue,
				MinPurchase:  reward.MinPurchase,
				MaxDiscount:  reward.MaxDiscount,
				UsageLimit:   1,
				PerUserLimit: 1,
				StartsAt:     &now,
				EndsAt:       &endsAt,
				IsActive:     true,
			}
			if err := couponRepo.Create(candidate); err != nil {
				if isUniqueViolation(err) {
					continue
				}
				return err
			}
			coupon = candidate
			break
		}
		if coupon == nil {
			return ErrCouponInvalid
		}

		redemption := &models.PointsRedemption{
			UserID:     userID,
			RewardID:   reward.ID,
			PointsCost: reward.PointsCost,
			CouponID:   coupon.ID,
			CouponCode: coupon.Code,
			Status:     constants.RedemptionStatusIssued,
		}
		if err := s.pointsRepo.WithTx(tx).CreateRedemption(redemption); err != nil {
			return err
		}

		logger.Infow("reward_redeemed",
			"user_id", userID,
			"reward_id", reward.ID,
			"points_cost", reward.PointsCost,
			"coupon_code", coupon.Code,
			"balance_after", txn.BalanceAfter,
		)
		result = redemption
		return nil
	}); err != nil {
		return nil, err
	}
	return s.pointsRepo.GetRedemptionByID(result.ID)
}

// MarkRedemptionUsedTx 订单使用兑换券后将兑换记录置为已使用
func (s *RewardService) MarkRedemptionUsedTx(tx *gorm.DB, couponCode string) error {
	if s.pointsRepo == nil {
		return nil
	}
	repo := s.pointsRepo.WithTx(tx)
	redemption, err := repo.GetRedemptionByCouponCode(couponCode)
	if err != nil {
		return err
	}
	if redemption == nil || redemption.Status == constants.RedemptionStatusUsed {
		return nil
	}
	now := time.Now()
	redemption.Status = constants.RedemptionStatusUsed
	redemption.UsedAt = &now
	return repo.UpdateRedemption(redemption)
}

// ListUserRedemptions 查询用户兑换记录
func (s *RewardService) ListUserRedemptions(userID uint, page, pageSize int) ([]models.PointsRedemption, int64, error) {
	if userID == 0 || s.pointsRepo == nil {
		return nil, 0, ErrNotFound
	}
	return s.pointsRepo.ListRedemptions(repository.RedemptionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
	})
}

// CreateReward 管理端创建奖励项
func (s *RewardService) CreateReward(input RewardInput) (*models.Reward, error) {
	if err := validateRewardInput(input); err != nil {
		return nil, err
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	validityDays := input.ValidityDays
	if validityDays <= 0 {
		validityDays = defaultRewardValidityDays
	}
	reward := &models.Reward{
		Name:          strings.TrimSpace(input.Name),
		Description:   strings.TrimSpace(input.Description),
		PointsCost:    input.PointsCost,
		DiscountType:  strings.ToLower(strings.TrimSpace(input.DiscountType)),
		DiscountValue: input.DiscountValue,
		MinPurchase:   input.MinPurchase,
		MaxDiscount:   input.MaxDiscount,
		ValidityDays:  validityDays,
		IsActive:      isActive,
		SortOrder:     input.SortOrder,
	}
	if err := s.rewardRepo.Create(reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// UpdateReward 管理端更新奖励项
func (s *RewardService) UpdateReward(id uint, input RewardInput) (*models.Reward, error) {
	reward, err := s.rewardRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	if err := validateRewardInput(input); err != nil {
		return nil, err
	}

	reward.Name = strings.TrimSpace(input.Name)
	reward.Description = strings.TrimSpace(input.Description)
	reward.PointsCost = input.PointsCost
	reward.DiscountType = strings.ToLower(strings.TrimSpace(input.DiscountType))
	reward.DiscountValue = input.DiscountValue
	reward.MinPurchase = input.MinPurchase
	reward.MaxDiscount = input.MaxDiscount
	if input.ValidityDays > 0 {
		reward.ValidityDays = input.ValidityDays
	}
	if input.IsActive != nil {
		reward.IsActive = *input.IsActive
	}
	reward.SortOrder = input.SortOrder

	if err := s.rewardRepo.Update(reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// DeleteReward 管理端删除奖励项
func (s *RewardService) DeleteReward(id uint) error {
	reward, err := s.rewardRepo.GetByID(id)
	if err != nil {
		return err
	}
	if reward == nil {
		return ErrRewardNotFound
	}
	return s.rewardRepo.Delete(id)
}

// ListAdminRewards 管理端奖励项列表
func (s *RewardService) ListAdminRewards(filter repository.RewardListFilter) ([]models.Reward, int64, error) {
	return s.rewardRepo.List(filter)
}

func validateRewardInput(input RewardInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrPointsConfigInvalid
	}
	if input.PointsCost <= 0 {
		return ErrPointsConfigInvalid
	}
	discountType := strings.ToLower(strings.TrimSpace(input.DiscountType))
	if discountType != constants.RewardDiscountFixed && discountType != constants.RewardDiscountPercent {
		return ErrPointsConfigInvalid
	}
	if input.DiscountValue.Decimal.LessThanOrEqual(decimal.Zero) {
		return ErrPointsConfigInvalid
	}
	if discountType == constants.RewardDiscountPercent && input.DiscountValue.Decimal.GreaterThan(decimal.NewFromInt(100)) {
		return ErrPointsConfigInvalid
	}
	return nil
}

func generateRedemptionCouponCode() (string, error) {
	suffix, err := generateAffiliateCode()
	if err != nil {
		return "", err
	}
	return redemptionCouponPrefix + suffix, nil
}
