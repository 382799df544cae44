package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page         int
	PageSize     int
	CategoryID   uint
	Search       string
	OnlyActive   bool
	WithCategory bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CouponUsageListFilter 查询优惠券使用记录列表的过滤条件
type CouponUsageListFilter struct {
	Page     int
	PageSize int
	CouponID uint
	UserID   uint
}

// AffiliateListFilter 查询推广账户列表的过滤条件
type AffiliateListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Code     string
	Status   string
	Tier     string
	Keyword  string
}

// ReferralListFilter 查询推荐关系列表的过滤条件
type ReferralListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PointsTransactionListFilter 查询积分流水列表的过滤条件
type PointsTransactionListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Type        string
	Reference   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PointsConfigListFilter 查询积分规则列表的过滤条件
type PointsConfigListFilter struct {
	Page       int
	PageSize   int
	ActionType string
	OnlyActive bool
}

// RewardListFilter 查询奖励项列表的过滤条件
type RewardListFilter struct {
	Page       int
	PageSize   int
	OnlyActive bool
	Search     string
}

// RedemptionListFilter 查询积分兑换记录列表的过滤条件
type RedemptionListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	RewardID uint
	Status   string
}

// CouponListFilter 查询优惠券列表的过滤条件
type CouponListFilter struct {
	Page     int
	PageSize int
	Code     string
	Source   string
	UserID   uint
	IsActive *bool
}

// AffiliateFunnelAggregate 推广转化漏斗统计结果
type AffiliateFunnelAggregate struct {
	ClickCount     int64
	ConvertedCount int64
	SignupCount    int64
	ActivatedCount int64
}
