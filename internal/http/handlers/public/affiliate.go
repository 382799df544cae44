package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bionail-next/internal/http/response"
	"github.com/bionail-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AffiliateTrackClickRequest 推广点击上报请求
type AffiliateTrackClickRequest struct {
	Code        string `json:"code" binding:"required"`
	VisitorKey  string `json:"visitor_key" binding:"required"`
	LandingPath string `json:"landing_path"`
	Referrer    string `json:"referrer"`
}

// TrackAffiliateClick 记录推广链接点击（公开接口）
func (h *Handler) TrackAffiliateClick(c *gin.Context) {
	var req AffiliateTrackClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	err := h.AffiliateService.TrackClick(service.AffiliateTrackClickInput{
		AffiliateCode: req.Code,
		VisitorKey:    req.VisitorKey,
		LandingPath:   req.LandingPath,
		Referrer:      req.Referrer,
		ClientIP:      c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPointsProgramDisabled):
			respondError(c, response.CodeBadRequest, "referral program disabled", nil)
		case errors.Is(err, service.ErrAffiliateNotFound):
			respondError(c, response.CodeNotFound, "affiliate code not found", nil)
		case errors.Is(err, service.ErrAffiliateInactive):
			respondError(c, response.CodeBadRequest, "affiliate inactive", nil)
		default:
			respondError(c, response.CodeInternal, "click track failed", err)
		}
		return
	}
	response.Success(c, gin.H{"tracked": true})
}

// GetAffiliateDashboard 推广用户中心
func (h *Handler) GetAffiliateDashboard(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	dashboard, err := h.AffiliateService.GetUserDashboard(userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "user not found", nil)
		case errors.Is(err, service.ErrUserDisabled):
			respondError(c, response.CodeBadRequest, "account disabled", nil)
		default:
			respondError(c, response.CodeInternal, "dashboard fetch failed", err)
		}
		return
	}
	response.Success(c, dashboard)
}

// GetAffiliateReferrals 推荐关系列表
func (h *Handler) GetAffiliateReferrals(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	status := strings.TrimSpace(c.Query("status"))

	items, total, err := h.AffiliateService.ListUserReferrals(userID, page, pageSize, status)
	if err != nil {
		respondError(c, response.CodeInternal, "referral fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, buildPagination(page, pageSize, total))
}

// GetAffiliateAnalytics 推广转化漏斗
func (h *Handler) GetAffiliateAnalytics(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	analytics, err := h.AffiliateService.GetUserAnalytics(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "analytics fetch failed", err)
		return
	}
	response.Success(c, analytics)
}
