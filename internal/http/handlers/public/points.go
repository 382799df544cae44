package public

import (
	"strconv"
	"strings"

	"github.com/bionail-next/internal/http/response"
	"github.com/bionail-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetPointsBalance 查询积分余额
func (h *Handler) GetPointsBalance(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	balance, err := h.PointsService.GetBalance(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "balance fetch failed", err)
		return
	}
	response.Success(c, balance)
}

// GetPointsTransactions 查询积分流水
func (h *Handler) GetPointsTransactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	transactions, total, err := h.PointsService.ListTransactions(repository.PointsTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Type:     strings.TrimSpace(c.Query("type")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "transaction fetch failed", err)
		return
	}
	response.SuccessWithPage(c, transactions, buildPagination(page, pageSize, total))
}
