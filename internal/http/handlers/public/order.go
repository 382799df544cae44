package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bionail-next/internal/http/response"
	"github.com/bionail-next/internal/service"

	"github.com/gin-gonic/gin"
)

var orderCouponErrorRules = []struct {
	target error
	msg    string
}{
	{service.ErrCouponInvalid, "coupon invalid"},
	{service.ErrCouponNotFound, "coupon not found"},
	{service.ErrCouponInactive, "coupon inactive"},
	{service.ErrCouponNotStarted, "coupon not started"},
	{service.ErrCouponExpired, "coupon expired"},
	{service.ErrCouponUsageLimit, "coupon usage limit reached"},
	{service.ErrCouponPerUserLimit, "coupon per-user limit reached"},
	{service.ErrCouponMinPurchase, "order amount below coupon minimum"},
	{service.ErrCouponNotOwned, "coupon bound to another user"},
	{service.ErrCouponScopeInvalid, "coupon not applicable to order items"},
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	Items      []service.OrderItemInput `json:"items" binding:"required"`
	CouponCode string                   `json:"coupon_code"`
}

// CreateOrder 创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	order, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		UserID:     userID,
		Items:      req.Items,
		CouponCode: req.CouponCode,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		for _, rule := range orderCouponErrorRules {
			if errors.Is(err, rule.target) {
				respondError(c, response.CodeBadRequest, rule.msg, nil)
				return
			}
		}
		switch {
		case errors.Is(err, service.ErrOrderEmpty):
			respondError(c, response.CodeBadRequest, "order has no valid items", nil)
		case errors.Is(err, service.ErrProductNotFound):
			respondError(c, response.CodeBadRequest, "product not found", nil)
		case errors.Is(err, service.ErrProductInactive):
			respondError(c, response.CodeBadRequest, "product not available", nil)
		default:
			respondError(c, response.CodeInternal, "order create failed", err)
		}
		return
	}
	response.Success(c, order)
}

// GetMyOrders 查询用户订单列表
func (h *Handler) GetMyOrders(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	status := strings.TrimSpace(c.Query("status"))

	orders, total, err := h.OrderService.ListUserOrders(userID, page, pageSize, status)
	if err != nil {
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}
	response.SuccessWithPage(c, orders, buildPagination(page, pageSize, total))
}

// GetMyOrder 查询用户订单详情
func (h *Handler) GetMyOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid order id", nil)
		return
	}

	order, err := h.OrderService.GetUserOrder(userID, uint(orderID))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}
	response.Success(c, order)
}
