package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bionail-next/internal/http/response"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"
	"github.com/bionail-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CouponRequest 优惠券请求
type CouponRequest struct {
	Code           string       `json:"code" binding:"required"`
	Type           string       `json:"type" binding:"required"`
	Value          models.Money `json:"value"`
	MinPurchase    models.Money `json:"min_purchase"`
	MaxDiscount    models.Money `json:"max_discount"`
	UsageLimit     int          `json:"usage_limit"`
	PerUserLimit   int          `json:"per_user_limit"`
	UserID         *uint        `json:"user_id"`
	IncludedIDs    []uint       `json:"included_product_ids"`
	ExcludedIDs    []uint       `json:"excluded_product_ids"`
	IncludedCatIDs []uint       `json:"included_category_ids"`
	StartsAt       *time.Time   `json:"starts_at"`
	EndsAt         *time.Time   `json:"ends_at"`
	IsActive       *bool        `json:"is_active"`
}

func (r CouponRequest) toInput() service.CouponInput {
	return service.CouponInput{
		Code:           r.Code,
		Type:           r.Type,
		Value:          r.Value,
		MinPurchase:    r.MinPurchase,
		MaxDiscount:    r.MaxDiscount,
		UsageLimit:     r.UsageLimit,
		PerUserLimit:   r.PerUserLimit,
		UserID:         r.UserID,
		IncludedIDs:    r.IncludedIDs,
		ExcludedIDs:    r.ExcludedIDs,
		IncludedCatIDs: r.IncludedCatIDs,
		StartsAt:       r.StartsAt,
		EndsAt:         r.EndsAt,
		IsActive:       r.IsActive,
	}
}

// GetAdminCoupons 优惠券列表 (Admin)
func (h *Handler) GetAdminCoupons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	filter := repository.CouponListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     strings.TrimSpace(c.Query("code")),
		Source:   strings.TrimSpace(c.Query("source")),
		UserID:   uint(userID),
	}
	if raw := c.Query("is_active"); raw != "" {
		active := raw == "true" || raw == "1"
		filter.IsActive = &active
	}
	coupons, total, err := h.CouponAdminService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "coupon fetch failed", err)
		return
	}
	response.SuccessWithPage(c, coupons, buildPagination(page, pageSize, total))
}

// GetAdminCoupon 优惠券详情 (Admin)
func (h *Handler) GetAdminCoupon(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid coupon id", nil)
		return
	}
	coupon, err := h.CouponAdminService.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			respondError(c, response.CodeNotFound, "coupon not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "coupon fetch failed", err)
		return
	}
	response.Success(c, coupon)
}

// CreateAdminCoupon 创建优惠券 (Admin)
func (h *Handler) CreateAdminCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	coupon, err := h.CouponAdminService.Create(req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrCouponInvalid) {
			respondError(c, response.CodeBadRequest, "coupon data invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "coupon create failed", err)
		return
	}
	response.Success(c, coupon)
}

// UpdateAdminCoupon 更新优惠券 (Admin)
func (h *Handler) UpdateAdminCoupon(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid coupon id", nil)
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	coupon, err := h.CouponAdminService.Update(uint(id), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCouponNotFound):
			respondError(c, response.CodeNotFound, "coupon not found", nil)
		case errors.Is(err, service.ErrCouponInvalid):
			respondError(c, response.CodeBadRequest, "coupon data invalid", nil)
		default:
			respondError(c, response.CodeInternal, "coupon update failed", err)
		}
		return
	}
	response.Success(c, coupon)
}

// DeleteAdminCoupon 删除优惠券 (Admin)
func (h *Handler) DeleteAdminCoupon(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid coupon id", nil)
		return
	}
	if err := h.CouponAdminService.Delete(uint(id)); err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			respondError(c, response.CodeNotFound, "coupon not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "coupon delete failed", err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
