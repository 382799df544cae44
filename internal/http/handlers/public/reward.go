package public

import (
	"errors"
	"strconv"

	"github.com/bionail-next/internal/http/response"
	"github.com/bionail-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetRewards 奖励商城列表
func (h *Handler) GetRewards(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	rewards, total, err := h.RewardService.ListActiveRewards(page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "reward fetch failed", err)
		return
	}
	response.SuccessWithPage(c, rewards, buildPagination(page, pageSize, total))
}

// RedeemRewardRequest 兑换请求
type RedeemRewardRequest struct {
	RewardID uint `json:"reward_id" binding:"required"`
}

// RedeemReward 积分兑换奖励
func (h *Handler) RedeemReward(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req RedeemRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	redemption, err := h.RewardService.Redeem(userID, req.RewardID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			respondError(c, response.CodeNotFound, "reward not found", nil)
		case errors.Is(err, service.ErrRewardInactive):
			respondError(c, response.CodeBadRequest, "reward inactive", nil)
		case errors.Is(err, service.ErrPointsInsufficient):
			respondError(c, response.CodeBadRequest, "insufficient points balance", nil)
		default:
			respondError(c, response.CodeInternal, "redeem failed", err)
		}
		return
	}
	response.Success(c, redemption)
}

// GetMyRedemptions 查询兑换记录
func (h *Handler) GetMyRedemptions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	redemptions, total, err := h.RewardService.ListUserRedemptions(userID, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "redemption fetch failed", err)
		return
	}
	response.SuccessWithPage(c, redemptions, buildPagination(page, pageSize, total))
}
