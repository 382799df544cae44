package models

import (
	"time"

	"gorm.io/gorm"
)

// AffiliateReferral 推荐关系（每个被推荐用户最多一条，先到先得）
type AffiliateReferral struct {
	ID             uint           `gorm:"primarykey" json:"id"`                          // 主键
	AffiliateID    uint           `gorm:"not null;index" json:"affiliate_id"`            // 推广账户ID
	ReferredUserID uint           `gorm:"not null;uniqueIndex" json:"referred_user_id"`  // 被推荐用户ID
	Status         string         `gorm:"type:varchar(20);not null;index" json:"status"` // 状态（pending/active/inactive）
	ReferralDate   time.Time      `gorm:"index;not null" json:"referral_date"`           // 推荐时间
	FirstOrderID   *uint          `gorm:"index" json:"first_order_id,omitempty"`         // 首单订单ID（激活时写入且只写一次）
	ActivatedAt    *time.Time     `gorm:"index" json:"activated_at,omitempty"`           // 激活时间
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                       // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间

	Affiliate    Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"`    // 推广账户
	ReferredUser User      `gorm:"foreignKey:ReferredUserID" json:"referred_user,omitempty"` // 被推荐用户
}

// TableName 指定表名
func (AffiliateReferral) TableName() string {
	return "affiliate_referrals"
}
