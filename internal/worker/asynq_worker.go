package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bionail-next/internal/logger"
	"github.com/bionail-next/internal/provider"
	"github.com/bionail-next/internal/queue"
	"github.com/bionail-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPointsSignupAward, c.handleSignupAward)
	mux.HandleFunc(queue.TaskPointsOrderAward, c.handleOrderAward)
	mux.HandleFunc(queue.TaskAffiliatePromote, c.handlePromote)
}

func (c *Consumer) handleSignupAward(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_signup_award_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SignupAwardPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_signup_award_unmarshal_failed", "error", err)
		return err
	}
	if payload.ReferralID == 0 {
		logger.Debugw("worker_signup_award_skip_invalid_payload", "referral_id", payload.ReferralID)
		return nil
	}
	if c.PointsAwardService == nil {
		logger.Warnw("worker_signup_award_skip_service_nil", "referral_id", payload.ReferralID)
		return nil
	}
	if err := c.PointsAwardService.HandleSignupAward(payload.ReferralID); err != nil {
		if errors.Is(err, service.ErrPointsProgramDisabled) {
			logger.Debugw("worker_signup_award_skip_program_disabled", "referral_id", payload.ReferralID)
			return nil
		}
		logger.Warnw("worker_signup_award_failed", "referral_id", payload.ReferralID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderAward(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_award_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderAwardPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_award_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_award_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.PointsAwardService == nil {
		logger.Warnw("worker_order_award_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.PointsAwardService.HandleOrderAwards(payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrPointsProgramDisabled):
			logger.Debugw("worker_order_award_skip_program_disabled", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_award_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_order_award_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handlePromote(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_promote_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PromotePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_promote_unmarshal_failed", "error", err)
		return err
	}
	if payload.AffiliateID == 0 {
		logger.Debugw("worker_promote_skip_invalid_payload", "affiliate_id", payload.AffiliateID)
		return nil
	}
	if c.PointsAwardService == nil {
		logger.Warnw("worker_promote_skip_service_nil", "affiliate_id", payload.AffiliateID)
		return nil
	}
	if err := c.PointsAwardService.HandlePromotion(payload.AffiliateID); err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			logger.Debugw("worker_promote_skip_affiliate_not_found", "affiliate_id", payload.AffiliateID)
			return nil
		}
		logger.Warnw("worker_promote_failed", "affiliate_id", payload.AffiliateID, "error", err)
		return err
	}
	return nil
}
