package models

import "time"

// AffiliateLinkClick 推广链接点击记录（只追加，转化标记不回退）
type AffiliateLinkClick struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                       // 主键
	AffiliateID     uint       `gorm:"not null;index" json:"affiliate_id"`                         // 推广账户ID
	VisitorKey      string     `gorm:"type:varchar(128);index" json:"visitor_key"`                 // 访客标识
	LandingPath     string     `gorm:"type:varchar(512)" json:"landing_path"`                      // 落地页面路径
	Referrer        string     `gorm:"type:varchar(1024)" json:"referrer"`                         // 来源地址
	ClientIP        string     `gorm:"type:varchar(64)" json:"client_ip"`                          // 客户端IP
	UserAgent       string     `gorm:"type:varchar(1024)" json:"user_agent"`                       // 客户端UA
	Converted       bool       `gorm:"not null;default:false;index" json:"converted"`              // 是否已转化
	ConvertedAt     *time.Time `gorm:"index" json:"converted_at,omitempty"`                        // 转化时间
	ConvertedUserID *uint      `gorm:"index" json:"converted_user_id,omitempty"`                   // 转化归属用户ID
	CreatedAt       time.Time  `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"` // 创建时间

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广账户
}

// TableName 指定表名
func (AffiliateLinkClick) TableName() string {
	return "affiliate_link_clicks"
}
