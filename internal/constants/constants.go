package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusCompleted      = "completed"
	OrderStatusCanceled       = "canceled"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 推广账户状态常量
const (
	AffiliateStatusActive   = "active"
	AffiliateStatusDisabled = "disabled"
)

// 推广等级常量（按晋升顺序排列）
const (
	AffiliateTierBronze   = "bronze"
	AffiliateTierSilver   = "silver"
	AffiliateTierGold     = "gold"
	AffiliateTierPlatinum = "platinum"
)

// 推荐关系状态常量
const (
	ReferralStatusPending  = "pending"
	ReferralStatusActive   = "active"
	ReferralStatusInactive = "inactive"
)

// 积分流水类型常量
const (
	PointsTxnTypeReferral    = "affiliate_referral"
	PointsTxnTypePurchase    = "affiliate_purchase"
	PointsTxnTypeRedemption  = "redemption"
	PointsTxnTypeAdminAdjust = "manual_adjustment"
)

// 积分规则动作类型常量
const (
	PointsActionReferralSignup      = "referral_signup"
	PointsActionReferralFirstOrder  = "referral_first_order"
	PointsActionReferralRepeatOrder = "referral_repeat_order"
	PointsActionOwnPurchase         = "own_purchase"
)

// 积分兑换状态常量
const (
	RedemptionStatusIssued = "issued"
	RedemptionStatusUsed   = "used"
)

// 优惠券类型常量
const (
	CouponTypeFixed   = "fixed"
	CouponTypePercent = "percentage"
)

// 优惠券来源常量
const (
	CouponSourceAdmin      = "admin"
	CouponSourceRedemption = "redemption"
)

// 奖励折扣类型常量
const (
	RewardDiscountFixed   = "fixed"
	RewardDiscountPercent = "percentage"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskPointsSignupAward = "points:signup_award"
	TaskPointsOrderAward  = "points:order_award"
	TaskAffiliatePromote  = "affiliate:promote"
)

// 设置键常量
const (
	SettingKeySiteConfig    = "site_config"
	SettingKeyPointsProgram = "points_program"
)
