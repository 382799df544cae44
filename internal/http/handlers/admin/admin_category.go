package admin

import (
	"errors"
	"strconv"

	"github.com/bionail-next/internal/http/response"
	"github.com/bionail-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminCategories 分类列表 (Admin)
func (h *Handler) GetAdminCategories(c *gin.Context) {
	categories, err := h.CategoryService.ListAll()
	if err != nil {
		respondError(c, response.CodeInternal, "category fetch failed", err)
		return
	}
	response.Success(c, categories)
}

// CreateAdminCategory 创建分类 (Admin)
func (h *Handler) CreateAdminCategory(c *gin.Context) {
	var input service.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	category, err := h.CategoryService.Create(input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCategorySlugExists):
			respondError(c, response.CodeBadRequest, "category slug already exists", nil)
		case errors.Is(err, service.ErrCategoryInvalid):
			respondError(c, response.CodeBadRequest, "category slug and name are required", nil)
		default:
			respondError(c, response.CodeInternal, "category create failed", err)
		}
		return
	}
	response.Success(c, category)
}

// UpdateAdminCategory 更新分类 (Admin)
func (h *Handler) UpdateAdminCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid category id", nil)
		return
	}
	var input service.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	category, err := h.CategoryService.Update(uint(id), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, response.CodeNotFound, "category not found", nil)
		case errors.Is(err, service.ErrCategorySlugExists):
			respondError(c, response.CodeBadRequest, "category slug already exists", nil)
		case errors.Is(err, service.ErrCategoryInvalid):
			respondError(c, response.CodeBadRequest, "category slug and name are required", nil)
		default:
			respondError(c, response.CodeInternal, "category update failed", err)
		}
		return
	}
	response.Success(c, category)
}

// DeleteAdminCategory 删除分类 (Admin)
func (h *Handler) DeleteAdminCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid category id", nil)
		return
	}
	if err := h.CategoryService.Delete(uint(id)); err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, response.CodeNotFound, "category not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "category delete failed", err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
