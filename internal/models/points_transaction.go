package models

import "time"

// PointsTransaction 积分流水（只追加，写入后不可修改）
type PointsTransaction struct {
	ID              uint      `gorm:"primarykey" json:"id"`                            // 主键
	UserID          uint      `gorm:"not null;index" json:"user_id"`                   // 用户ID
	Amount          int64     `gorm:"not null" json:"amount"`                          // 积分变动（正为入账，负为扣减）
	Type            string    `gorm:"type:varchar(32);not null;index" json:"type"`     // 流水类型
	BalanceBefore   int64     `gorm:"not null" json:"balance_before"`                  // 变动前余额
	BalanceAfter    int64     `gorm:"not null" json:"balance_after"`                   // 变动后余额
	Description     string    `gorm:"type:varchar(255)" json:"description"`            // 说明
	Reference       string    `gorm:"type:varchar(128);uniqueIndex" json:"reference"`  // 幂等参考号
	RelatedEntityID *uint     `gorm:"index" json:"related_entity_id,omitempty"`        // 关联实体ID（订单或推荐记录）
	CreatedAt       time.Time `gorm:"index;not null" json:"created_at"`                // 创建时间
}

// TableName 指定表名
func (PointsTransaction) TableName() string {
	return "points_transactions"
}
