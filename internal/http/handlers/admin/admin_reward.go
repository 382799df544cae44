package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bionail-next/internal/http/response"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"
	"github.com/bionail-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RewardRequest 奖励项请求
type RewardRequest struct {
	Name          string       `json:"name" binding:"required"`
	Description   string       `json:"description"`
	PointsCost    int64        `json:"points_cost"`
	DiscountType  string       `json:"discount_type" binding:"required"`
	DiscountValue models.Money `json:"discount_value"`
	MinPurchase   models.Money `json:"min_purchase"`
	MaxDiscount   models.Money `json:"max_discount"`
	ValidityDays  int          `json:"validity_days"`
	IsActive      *bool        `json:"is_active"`
	SortOrder     int          `json:"sort_order"`
}

func (r RewardRequest) toInput() service.RewardInput {
	return service.RewardInput{
		Name:          r.Name,
		Description:   r.Description,
		PointsCost:    r.PointsCost,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue,
		MinPurchase:   r.MinPurchase,
		MaxDiscount:   r.MaxDiscount,
		ValidityDays:  r.ValidityDays,
		IsActive:      r.IsActive,
		SortOrder:     r.SortOrder,
	}
}

// GetAdminRewards 奖励项列表 (Admin)
func (h *Handler) GetAdminRewards(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	rewards, total, err := h.RewardService.ListAdminRewards(repository.RewardListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "reward fetch failed", err)
		return
	}
	response.SuccessWithPage(c, rewards, buildPagination(page, pageSize, total))
}

// CreateAdminReward 创建奖励项 (Admin)
func (h *Handler) CreateAdminReward(c *gin.Context) {
	var req RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	reward, err := h.RewardService.CreateReward(req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrPointsConfigInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "reward create failed", err)
		return
	}
	response.Success(c, reward)
}

// UpdateAdminReward 更新奖励项 (Admin)
func (h *Handler) UpdateAdminReward(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid reward id", nil)
		return
	}
	var req RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	reward, err := h.RewardService.UpdateReward(uint(id), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			respondError(c, response.CodeNotFound, "reward not found", nil)
		case errors.Is(err, service.ErrPointsConfigInvalid):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "reward update failed", err)
		}
		return
	}
	response.Success(c, reward)
}

// DeleteAdminReward 删除奖励项 (Admin)
func (h *Handler) DeleteAdminReward(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid reward id", nil)
		return
	}
	if err := h.RewardService.DeleteReward(uint(id)); err != nil {
		if errors.Is(err, service.ErrRewardNotFound) {
			respondError(c, response.CodeNotFound, "reward not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "reward delete failed", err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// GetAdminRedemptions 兑换记录列表 (Admin)
func (h *Handler) GetAdminRedemptions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	rewardID, _ := strconv.ParseUint(c.Query("reward_id"), 10, 64)
	redemptions, total, err := h.PointsRepo.ListRedemptions(repository.RedemptionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uint(userID),
		RewardID: uint(rewardID),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "redemption fetch failed", err)
		return
	}
	response.SuccessWithPage(c, redemptions, buildPagination(page, pageSize, total))
}
