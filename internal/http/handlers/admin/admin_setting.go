package admin

import (
	"errors"

	"github.com/bionail-next/internal/http/response"
	"github.com/bionail-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminPointsProgram 查询积分计划配置 (Admin)
func (h *Handler) GetAdminPointsProgram(c *gin.Context) {
	setting, err := h.SettingService.GetPointsProgramSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "setting fetch failed", err)
		return
	}
	response.Success(c, setting)
}

// UpdateAdminPointsProgram 更新积分计划配置 (Admin)
func (h *Handler) UpdateAdminPointsProgram(c *gin.Context) {
	var setting service.PointsProgramSetting
	if err := c.ShouldBindJSON(&setting); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	updated, err := h.SettingService.UpdatePointsProgramSetting(setting)
	if err != nil {
		if errors.Is(err, service.ErrSettingInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "setting update failed", err)
		return
	}
	response.Success(c, updated)
}
