package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bionail-next/internal/http/response"
	"github.com/bionail-next/internal/repository"
	"github.com/bionail-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminAffiliates 推广账户列表 (Admin)
func (h *Handler) GetAdminAffiliates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	affiliates, total, err := h.AffiliateService.ListAdminAffiliates(repository.AffiliateListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     strings.TrimSpace(c.Query("code")),
		Status:   strings.TrimSpace(c.Query("status")),
		Tier:     strings.TrimSpace(c.Query("tier")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "affiliate fetch failed", err)
		return
	}
	response.SuccessWithPage(c, affiliates, buildPagination(page, pageSize, total))
}

// GetAdminAffiliate 推广账户详情 (Admin)
func (h *Handler) GetAdminAffiliate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid affiliate id", nil)
		return
	}

	affiliate, analytics, err := h.AffiliateService.GetAdminAffiliate(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "affiliate fetch failed", err)
		return
	}
	response.Success(c, gin.H{
		"affiliate": affiliate,
		"analytics": analytics,
	})
}

// UpdateAffiliateStatusRequest 推广账户状态变更请求
type UpdateAffiliateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAdminAffiliateStatus 启用/停用推广账户 (Admin)
func (h *Handler) UpdateAdminAffiliateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid affiliate id", nil)
		return
	}
	var req UpdateAffiliateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	affiliate, err := h.AffiliateService.UpdateAffiliateStatus(uint(id), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		case errors.Is(err, service.ErrAffiliateStatusInvalid):
			respondError(c, response.CodeBadRequest, "invalid affiliate status", nil)
		default:
			respondError(c, response.CodeInternal, "affiliate update failed", err)
		}
		return
	}
	response.Success(c, affiliate)
}

// AdjustPointsRequest 手工积分调整请求
type AdjustPointsRequest struct {
	UserID      uint   `json:"user_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// AdjustAdminPoints 手工调整用户积分 (Admin)
func (h *Handler) AdjustAdminPoints(c *gin.Context) {
	var req AdjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	txn, err := h.PointsService.AdminAdjust(req.UserID, req.Amount, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPointsAmountZero):
			respondError(c, response.CodeBadRequest, "amount must be non-zero", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "user not found", nil)
		default:
			respondError(c, response.CodeInternal, "points adjust failed", err)
		}
		return
	}
	response.Success(c, txn)
}

// GetAdminReferrals 推荐关系列表 (Admin)
func (h *Handler) GetAdminReferrals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	affiliateID, _ := strconv.ParseUint(c.Query("affiliate_id"), 10, 64)
	referrals, total, err := h.AffiliateRepo.ListReferrals(repository.ReferralListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: uint(affiliateID),
		Status:      strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "referral fetch failed", err)
		return
	}
	response.SuccessWithPage(c, referrals, buildPagination(page, pageSize, total))
}
