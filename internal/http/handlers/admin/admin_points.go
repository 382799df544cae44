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

// GetAdminPointsTransactions 积分流水列表 (Admin)
func (h *Handler) GetAdminPointsTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	transactions, total, err := h.PointsService.ListTransactions(repository.PointsTransactionListFilter{
		Page:      page,
		PageSize:  pageSize,
		UserID:    uint(userID),
		Type:      strings.TrimSpace(c.Query("type")),
		Reference: strings.TrimSpace(c.Query("reference")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "transaction fetch failed", err)
		return
	}
	response.SuccessWithPage(c, transactions, buildPagination(page, pageSize, total))
}

// PointsConfigRequest 积分规则请求
type PointsConfigRequest struct {
	ActionType              string       `json:"action_type" binding:"required"`
	PointsAmount            int64        `json:"points_amount"`
	TieredConfigJSON        string       `json:"tiered_config_json"`
	MinOrderValue           models.Money `json:"min_order_value"`
	MaxPointsPerTransaction int64        `json:"max_points_per_transaction"`
	IsActive                *bool        `json:"is_active"`
	ValidFrom               *time.Time   `json:"valid_from"`
	ValidUntil              *time.Time   `json:"valid_until"`
}

func (r PointsConfigRequest) toInput() service.PointsConfigInput {
	return service.PointsConfigInput{
		ActionType:              r.ActionType,
		PointsAmount:            r.PointsAmount,
		TieredConfigJSON:        r.TieredConfigJSON,
		MinOrderValue:           r.MinOrderValue,
		MaxPointsPerTransaction: r.MaxPointsPerTransaction,
		IsActive:                r.IsActive,
		ValidFrom:               r.ValidFrom,
		ValidUntil:              r.ValidUntil,
	}
}

// GetAdminPointsConfigs 积分规则列表 (Admin)
func (h *Handler) GetAdminPointsConfigs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	configs, total, err := h.PointsConfigService.List(repository.PointsConfigListFilter{
		Page:       page,
		PageSize:   pageSize,
		ActionType: strings.TrimSpace(c.Query("action_type")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "points config fetch failed", err)
		return
	}
	response.SuccessWithPage(c, configs, buildPagination(page, pageSize, total))
}

// CreateAdminPointsConfig 创建积分规则 (Admin)
func (h *Handler) CreateAdminPointsConfig(c *gin.Context) {
	var req PointsConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	config, err := h.PointsConfigService.Create(req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrPointsConfigInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "points config create failed", err)
		return
	}
	response.Success(c, config)
}

// UpdateAdminPointsConfig 更新积分规则 (Admin)
func (h *Handler) UpdateAdminPointsConfig(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid config id", nil)
		return
	}
	var req PointsConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	config, err := h.PointsConfigService.Update(uint(id), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "points config not found", nil)
		case errors.Is(err, service.ErrPointsConfigInvalid):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "points config update failed", err)
		}
		return
	}
	response.Success(c, config)
}

// DeleteAdminPointsConfig 删除积分规则 (Admin)
func (h *Handler) DeleteAdminPointsConfig(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid config id", nil)
		return
	}
	if err := h.PointsConfigService.Delete(uint(id)); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "points config not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "points config delete failed", err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
