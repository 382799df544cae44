package models

import (
	"time"

	"gorm.io/gorm"
)

// PointsRedemption 积分兑换记录
type PointsRedemption struct {
	ID         uint           `gorm:"primarykey" json:"id"`                           // 主键
	UserID     uint           `gorm:"not null;index" json:"user_id"`                  // 用户ID
	RewardID   uint           `gorm:"not null;index" json:"reward_id"`                // 奖励ID
	PointsCost int64          `gorm:"not null" json:"points_cost"`                    // 消耗积分数
	CouponID   uint           `gorm:"not null;index" json:"coupon_id"`                // 生成的优惠券ID
	CouponCode string         `gorm:"type:varchar(64);uniqueIndex" json:"coupon_code"` // 优惠券码
	Status     string         `gorm:"type:varchar(20);not null;index" json:"status"`  // 状态（issued/used）
	UsedAt     *time.Time     `gorm:"index" json:"used_at,omitempty"`                 // 核销时间
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt  time.Time      `gorm:"index" json:"updated_at"`                        // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                                 // 软删除时间

	Reward Reward `gorm:"foreignKey:RewardID" json:"reward,omitempty"` // 奖励信息
	Coupon Coupon `gorm:"foreignKey:CouponID" json:"coupon,omitempty"` // 优惠券信息
}

// TableName 指定表名
func (PointsRedemption) TableName() string {
	return "points_redemptions"
}
