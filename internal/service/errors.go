package service

import "errors"

// 业务统一哨兵错误，handler 层据此映射状态码
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("password too weak")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailExists        = errors.New("email already registered")
	ErrUserDisabled       = errors.New("user disabled")

	ErrAffiliateDisabled      = errors.New("affiliate program disabled")
	ErrAffiliateNotFound      = errors.New("affiliate not found")
	ErrAffiliateInactive      = errors.New("affiliate inactive")
	ErrAffiliateCodeConflict  = errors.New("affiliate code conflict")
	ErrAffiliateStatusInvalid = errors.New("affiliate status invalid")

	ErrPointsAmountZero      = errors.New("points amount must be non-zero")
	ErrPointsInsufficient    = errors.New("insufficient points balance")
	ErrPointsConfigInvalid   = errors.New("points config invalid")
	ErrPointsProgramDisabled = errors.New("points program disabled")

	ErrRewardNotFound = errors.New("reward not found")
	ErrRewardInactive = errors.New("reward inactive")

	ErrCouponInvalid      = errors.New("coupon invalid")
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponInactive     = errors.New("coupon inactive")
	ErrCouponNotStarted   = errors.New("coupon not started")
	ErrCouponExpired      = errors.New("coupon expired")
	ErrCouponUsageLimit   = errors.New("coupon usage limit reached")
	ErrCouponPerUserLimit = errors.New("coupon per-user limit reached")
	ErrCouponMinPurchase  = errors.New("order amount below coupon minimum")
	ErrCouponNotOwned     = errors.New("coupon bound to another user")
	ErrCouponScopeInvalid = errors.New("coupon not applicable to order items")

	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderEmpty         = errors.New("order has no items")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductInactive    = errors.New("product inactive")
	ErrProductInvalid     = errors.New("product invalid")
	ErrProductSlugExists  = errors.New("product slug already exists")
	ErrCategorySlugExists = errors.New("category slug already exists")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryInvalid    = errors.New("category invalid")
	ErrOrderCreateFailed  = errors.New("order create failed")
	ErrSettingInvalid     = errors.New("setting invalid")
	ErrRedemptionNotFound = errors.New("redemption not found")
)
