package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/logger"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/queue"
	"github.com/bionail-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 订单服务
type OrderService struct {
	orderRepo     repository.OrderRepository
	productRepo   repository.ProductRepository
	couponRepo    repository.CouponRepository
	usageRepo     repository.CouponUsageRepository
	couponService *CouponService
	rewardService *RewardService
	awardService  *PointsAwardService
	queueClient   *queue.Client
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	couponRepo repository.CouponRepository,
	usageRepo repository.CouponUsageRepository,
	couponService *CouponService,
	rewardService *RewardService,
	awardService *PointsAwardService,
	queueClient *queue.Client,
) *OrderService {
	return &OrderService{
		orderRepo:     orderRepo,
		productRepo:   productRepo,
		couponRepo:    couponRepo,
		usageRepo:     usageRepo,
		couponService: couponService,
		rewardService: rewardService,
		awardService:  awardService,
		queueClient:   queueClient,
	}
}

// OrderItemInput 下单商品项
type OrderItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CreateOrderInput 下单参数
type CreateOrderInput struct {
	UserID     uint
	Items      []OrderItemInput
	CouponCode string
	ClientIP   string
}

// CreateOrder 创建并结算订单
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.UserID == 0 {
		return nil, ErrNotFound
	}
	if len(input.Items) == 0 {
		return nil, ErrOrderEmpty
	}

	items, originalAmount, err := s.buildOrderItems(input.Items)
	if err != nil {
		return nil, err
	}

	var couponID *uint
	couponCode := strings.ToUpper(strings.TrimSpace(input.CouponCode))
	discount := models.Money{}
	if couponCode != "" {
		d, coupon, err := s.couponService.ApplyCoupon(couponCode, input.UserID, items)
		if err != nil {
			return nil, err
		}
		discount = d
		couponID = &coupon.ID
	}

	total := originalAmount.Sub(discount.Decimal)
	if total.IsNegative() {
		total = decimal.Zero
	}

	now := time.Now()
	order := &models.Order{
		OrderNo:        generateOrderNo(),
		UserID:         input.UserID,
		Status:         constants.OrderStatusPaid,
		Currency:       "EUR",
		OriginalAmount: models.NewMoneyFromDecimal(originalAmount),
		DiscountAmount: discount,
		TotalAmount:    models.NewMoneyFromDecimal(total),
		CouponID:       couponID,
		CouponCode:     couponCode,
		ClientIP:       input.ClientIP,
		PaidAt:         &now,
		Items:          items,
	}

	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		if err := orderRepo.Create(order); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
		}
		if couponID != nil {
			usage := &models.CouponUsage{
				CouponID:       *couponID,
				UserID:         input.UserID,
				OrderID:        order.ID,
				DiscountAmount: discount,
			}
			if err := s.usageRepo.WithTx(tx).Create(usage); err != nil {
				return err
			}
			if err := s.couponRepo.WithTx(tx).IncrementUsedCount(*couponID, 1); err != nil {
				return err
			}
			if err := s.rewardService.MarkRedemptionUsedTx(tx, couponCode); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchOrderAwards(order.ID)

	return s.orderRepo.GetByID(order.ID)
}

// buildOrderItems 校验商品并生成订单项快照
func (s *OrderService) buildOrderItems(inputs []OrderItemInput) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]uint, 0, len(inputs))
	for _, item := range inputs {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return nil, decimal.Zero, ErrOrderEmpty
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.GetByIDs(ids)
	if err != nil {
		return nil, decimal.Zero, err
	}
	productMap := make(map[uint]models.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(inputs))
	originalAmount := decimal.Zero
	for _, input := range inputs {
		product, ok := productMap[input.ProductID]
		if !ok {
			return nil, decimal.Zero, ErrProductNotFound
		}
		if !product.IsActive {
			return nil, decimal.Zero, ErrProductInactive
		}
		lineTotal := product.PriceAmount.Mul(decimal.NewFromInt(int64(input.Quantity)))
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			CategoryID:  product.CategoryID,
			ProductName: product.Name,
			UnitPrice:   product.PriceAmount,
			Quantity:    input.Quantity,
			TotalPrice:  models.NewMoneyFromDecimal(lineTotal),
		})
		originalAmount = originalAmount.Add(lineTotal)
	}
	return items, originalAmount, nil
}

// dispatchOrderAwards 订单落库后派发积分结算（队列优先，未启用则同步执行）
func (s *OrderService) dispatchOrderAwards(orderID uint) {
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueOrderAward(queue.OrderAwardPayload{OrderID: orderID})
		if err == nil {
			return
		}
		logger.Warnw("order_award_enqueue_failed", "order_id", orderID, "error", err)
	}
	if s.awardService == nil {
		return
	}
	if err := s.awardService.HandleOrderAwards(orderID); err != nil {
		logger.Warnw("order_award_inline_failed", "order_id", orderID, "error", err)
	}
}

// GetUserOrder 查询用户本人订单
func (s *OrderService) GetUserOrder(userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListUserOrders 查询用户订单列表
func (s *OrderService) ListUserOrders(userID uint, page, pageSize int, status string) ([]models.Order, int64, error) {
	return s.orderRepo.List(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   status,
	})
}

// ListAdminOrders 管理端订单列表
func (s *OrderService) ListAdminOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// GetAdminOrder 管理端订单详情
func (s *OrderService) GetAdminOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// generateOrderNo 生成订单编号
func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	randPart := randNumeric(6)
	return fmt.Sprintf("BN%s%s", now, randPart)
}

// randNumeric 生成指定长度的随机数字串
func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
