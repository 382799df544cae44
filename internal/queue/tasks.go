package queue

import (
	"encoding/json"

	"github.com/bionail-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPointsSignupAward 注册推荐奖励任务
	TaskPointsSignupAward = constants.TaskPointsSignupAward
	// TaskPointsOrderAward 订单积分奖励任务
	TaskPointsOrderAward = constants.TaskPointsOrderAward
	// TaskAffiliatePromote 推广账户晋升任务
	TaskAffiliatePromote = constants.TaskAffiliatePromote
)

// SignupAwardPayload 注册推荐奖励任务载荷
type SignupAwardPayload struct {
	UserID     uint `json:"user_id"`
	ReferralID uint `json:"referral_id"`
}

// OrderAwardPayload 订单积分奖励任务载荷
type OrderAwardPayload struct {
	OrderID uint `json:"order_id"`
}

// PromotePayload 推广账户晋升任务载荷
type PromotePayload struct {
	AffiliateID uint `json:"affiliate_id"`
}

// NewSignupAwardTask 创建注册推荐奖励任务
func NewSignupAwardTask(payload SignupAwardPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPointsSignupAward, body), nil
}

// NewOrderAwardTask 创建订单积分奖励任务
func NewOrderAwardTask(payload OrderAwardPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPointsOrderAward, body), nil
}

// NewPromoteTask 创建推广账户晋升任务
func NewPromoteTask(payload PromotePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAffiliatePromote, body), nil
}
