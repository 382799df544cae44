package models

import (
	"time"

	"gorm.io/gorm"
)

// PointsConfig 积分规则配置（同一动作类型可存在多条，按有效期窗口选取）
type PointsConfig struct {
	ID                     uint           `gorm:"primarykey" json:"id"`                                      // 主键
	ActionType             string         `gorm:"type:varchar(32);not null;index" json:"action_type"`        // 动作类型
	PointsAmount           int64          `gorm:"not null;default:0" json:"points_amount"`                   // 固定积分数（优先于阶梯配置）
	TieredConfigJSON       string         `gorm:"type:text" json:"tiered_config"`                            // 阶梯配置（JSON 数组，按订单金额分档）
	MinOrderValue          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_order_value"` // 最低订单金额门槛
	MaxPointsPerTransaction int64         `gorm:"not null;default:0" json:"max_points_per_transaction"`      // 单次积分上限（0 表示不限制）
	IsActive               bool           `gorm:"not null;default:true;index" json:"is_active"`              // 是否启用
	ValidFrom              *time.Time     `gorm:"index" json:"valid_from,omitempty"`                         // 生效时间
	ValidUntil             *time.Time     `gorm:"index" json:"valid_until,omitempty"`                        // 失效时间
	CreatedAt              time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt              time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间
}

// TableName 指定表名
func (PointsConfig) TableName() string {
	return "points_configs"
}
