package service

import (
	"fmt"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/logger"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"

	"github.com/shopspring/decimal"
)

// PointsAwardService 积分发放编排服务。
// 注册奖励与订单奖励的入口，队列消费与内联降级共用同一套幂等实现。
type PointsAwardService struct {
	affiliateRepo    repository.AffiliateRepository
	pointsRepo       repository.PointsRepository
	orderRepo        repository.OrderRepository
	affiliateService *AffiliateService
	pointsService    *PointsService
	settingService   *SettingService
}

// NewPointsAwardService 创建积分发放编排服务
func NewPointsAwardService(
	affiliateRepo repository.AffiliateRepository,
	pointsRepo repository.PointsRepository,
	orderRepo repository.OrderRepository,
	affiliateService *AffiliateService,
	pointsService *PointsService,
	settingService *SettingService,
) *PointsAwardService {
	return &PointsAwardService{
		affiliateRepo:    affiliateRepo,
		pointsRepo:       pointsRepo,
		orderRepo:        orderRepo,
		affiliateService: affiliateService,
		pointsService:    pointsService,
		settingService:   settingService,
	}
}

// HandleSignupAward 发放注册推荐奖励。按 reference 幂等，可安全重试。
func (s *PointsAwardService) HandleSignupAward(referralID uint) error {
	if referralID == 0 || s.affiliateRepo == nil || s.pointsRepo == nil {
		return nil
	}
	enabled, err := s.programEnabled()
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	referral, err := s.affiliateRepo.GetReferralByID(referralID)
	if err != nil {
		return err
	}
	if referral == nil {
		logger.Debugw("signup_award_skip_referral_not_found", "referral_id", referralID)
		return nil
	}
	affiliate, err := s.affiliateRepo.GetByID(referral.AffiliateID)
	if err != nil {
		return err
	}
	if affiliate == nil || affiliate.Status != constants.AffiliateStatusActive {
		logger.Debugw("signup_award_skip_affiliate_unavailable", "referral_id", referralID)
		return nil
	}

	points, err := s.resolvePoints(constants.PointsActionReferralSignup, decimal.Zero)
	if err != nil {
		return err
	}
	if points > 0 {
		if _, err := s.pointsService.AwardPoints(PointsAwardInput{
			UserID:          affiliate.UserID,
			Amount:          points,
			Type:            constants.PointsTxnTypeReferral,
			Description:     "推荐注册奖励",
			Reference:       fmt.Sprintf("referral:%d:signup", referral.ID),
			RelatedEntityID: &referral.ID,
		}); err != nil {
			return err
		}
	}

	s.promoteBestEffort(affiliate.ID)
	return nil
}

// HandleOrderAwards 发放订单相关积分（推荐首单/复购 + 本人消费）。
// 每笔奖励都带唯一 reference，重复消费不会重复记账。
func (s *PointsAwardService) HandleOrderAwards(orderID uint) error {
	if orderID == 0 || s.orderRepo == nil {
		return nil
	}
	enabled, err := s.programEnabled()
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil || order.UserID == 0 || order.PaidAt == nil {
		logger.Debugw("order_award_skip_order_unavailable", "order_id", orderID)
		return nil
	}
	orderValue := order.TotalAmount.Decimal

	if err := s.awardReferralForOrder(order, orderValue); err != nil {
		return err
	}

	// 本人消费积分
	points, err := s.resolvePoints(constants.PointsActionOwnPurchase, orderValue)
	if err != nil {
		return err
	}
	if points > 0 {
		if _, err := s.pointsService.AwardPoints(PointsAwardInput{
			UserID:          order.UserID,
			Amount:          points,
			Type:            constants.PointsTxnTypePurchase,
			Description:     fmt.Sprintf("消费积分（订单 %s）", order.OrderNo),
			Reference:       fmt.Sprintf("order:%d:own_purchase", order.ID),
			RelatedEntityID: &order.ID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *PointsAwardService) awardReferralForOrder(order *models.Order, orderValue decimal.Decimal) error {
	referral, err := s.affiliateRepo.GetReferralByReferredUserID(order.UserID)
	if err != nil {
		return err
	}
	if referral == nil {
		return nil
	}
	affiliate, err := s.affiliateRepo.GetByID(referral.AffiliateID)
	if err != nil {
		return err
	}
	if affiliate == nil || affiliate.Status != constants.AffiliateStatusActive {
		return nil
	}

	action := constants.PointsActionReferralRepeatOrder
	reference := fmt.Sprintf("order:%d:referral_repeat_order", order.ID)
	description := fmt.Sprintf("推荐复购奖励（订单 %s）", order.OrderNo)

	if referral.Status == constants.ReferralStatusPending {
		activated, err := s.affiliateService.ActivateReferral(referral.ID, order.ID)
		if err != nil {
			return err
		}
		if activated {
			action = constants.PointsActionReferralFirstOrder
			reference = fmt.Sprintf("order:%d:referral_first_order", order.ID)
			description = fmt.Sprintf("推荐首单奖励（订单 %s）", order.OrderNo)
		}
	} else if referral.FirstOrderID != nil && *referral.FirstOrderID == order.ID {
		// 激活已写入但奖励此前未落账的重试路径
		action = constants.PointsActionReferralFirstOrder
		reference = fmt.Sprintf("order:%d:referral_first_order", order.ID)
		description = fmt.Sprintf("推荐首单奖励（订单 %s）", order.OrderNo)
	} else if referral.Status != constants.ReferralStatusActive {
		return nil
	}

	points, err := s.resolvePoints(action, orderValue)
	if err != nil {
		return err
	}
	if points > 0 {
		if _, err := s.pointsService.AwardPoints(PointsAwardInput{
			UserID:          affiliate.UserID,
			Amount:          points,
			Type:            constants.PointsTxnTypeReferral,
			Description:     description,
			Reference:       reference,
			RelatedEntityID: &order.ID,
		}); err != nil {
			return err
		}
	}

	s.promoteBestEffort(affiliate.ID)
	return nil
}

// HandlePromotion 队列触发的等级晋升
func (s *PointsAwardService) HandlePromotion(affiliateID uint) error {
	if s.affiliateService == nil {
		return nil
	}
	_, err := s.affiliateService.AutoPromote(affiliateID)
	return err
}

func (s *PointsAwardService) resolvePoints(action string, orderValue decimal.Decimal) (int64, error) {
	config, err := s.pointsRepo.GetActiveConfigForAction(action, time.Now())
	if err != nil {
		return 0, err
	}
	return CalculatePoints(config, orderValue, time.Now()), nil
}

func (s *PointsAwardService) programEnabled() (bool, error) {
	setting, err := s.settingService.GetPointsProgramSetting()
	if err != nil {
		return false, err
	}
	return setting.Enabled, nil
}

func (s *PointsAwardService) promoteBestEffort(affiliateID uint) {
	if s.affiliateService == nil {
		return
	}
	if _, err := s.affiliateService.AutoPromote(affiliateID); err != nil {
		logger.Warnw("affiliate_auto_promote_failed", "affiliate_id", affiliateID, "error", err)
	}
}
