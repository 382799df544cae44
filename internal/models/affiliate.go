package models

import (
	"time"

	"gorm.io/gorm"
)

// Affiliate 推广账户（每个用户最多一条，只停用不删除）
type Affiliate struct {
	ID                   uint           `gorm:"primarykey" json:"id"`                              // 主键
	UserID               uint           `gorm:"not null;uniqueIndex" json:"user_id"`               // 用户ID
	AffiliateCode        string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"` // 推广码
	Status               string         `gorm:"type:varchar(20);not null;index" json:"status"`     // 状态
	Tier                 string         `gorm:"type:varchar(20);not null;index" json:"tier"`       // 推广等级
	TotalPointsEarned    int64          `gorm:"not null;default:0" json:"total_points_earned"`     // 累计获得积分（只增不减）
	CurrentPointsBalance int64          `gorm:"not null;default:0" json:"current_points_balance"`  // 当前可用积分
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt            time.Time      `gorm:"index" json:"updated_at"`                           // 更新时间
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`                                    // 软删除时间

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"` // 用户信息
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}
