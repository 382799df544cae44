package models

import (
	"time"

	"gorm.io/gorm"
)

// Reward 可兑换奖励（兑换后生成单次使用优惠券）
type Reward struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                        // 主键
	Name          string         `gorm:"type:varchar(128);not null" json:"name"`                      // 奖励名称
	Description   string         `gorm:"type:varchar(512)" json:"description"`                        // 奖励说明
	PointsCost    int64          `gorm:"not null" json:"points_cost"`                                 // 兑换所需积分
	DiscountType  string         `gorm:"type:varchar(20);not null" json:"discount_type"`              // 折扣类型（percentage/fixed）
	DiscountValue Money          `gorm:"type:decimal(20,2);not null" json:"discount_value"`           // 折扣数值
	MinPurchase   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_purchase"`   // 使用门槛
	MaxDiscount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"max_discount"`   // 最大优惠金额（0 表示不限制）
	ValidityDays  int            `gorm:"not null;default:30" json:"validity_days"`                    // 兑换后优惠券有效天数
	IsActive      bool           `gorm:"not null;default:true;index" json:"is_active"`                // 是否可兑换
	SortOrder     int            `gorm:"default:0;index" json:"sort_order"`                           // 排序权重
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                                     // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间
}

// TableName 指定表名
func (Reward) TableName() string {
	return "rewards"
}
