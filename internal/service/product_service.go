package service

import (
	"strings"

	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品服务
type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewProductService 创建商品服务
func NewProductService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// ProductInput 商品创建/更新参数
type ProductInput struct {
	CategoryID  uint     `json:"category_id"`
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PriceAmount string   `json:"price_amount"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	IsActive    *bool    `json:"is_active"`
	SortOrder   int      `json:"sort_order"`
}

// ListPublic 前台商品列表（仅上架商品）
func (s *ProductService) ListPublic(page, pageSize int, categoryID uint, search string) ([]models.Product, int64, error) {
	return s.productRepo.List(repository.ProductListFilter{
		Page:         page,
		PageSize:     pageSize,
		CategoryID:   categoryID,
		Search:       strings.TrimSpace(search),
		OnlyActive:   true,
		WithCategory: true,
	})
}

// GetPublicBySlug 前台商品详情
func (s *ProductService) GetPublicBySlug(slug string) (*models.Product, error) {
	product, err := s.productRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListAdmin 管理端商品列表
func (s *ProductService) ListAdmin(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	filter.WithCategory = true
	return s.productRepo.List(filter)
}

// GetAdmin 管理端商品详情
func (s *ProductService) GetAdmin(id uint) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input ProductInput) (*models.Product, error) {
	price, err := s.validateProductInput(input)
	if err != nil {
		return nil, err
	}
	exist, err := s.productRepo.GetBySlug(input.Slug)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrProductSlugExists
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	product := &models.Product{
		CategoryID:  input.CategoryID,
		Slug:        strings.TrimSpace(input.Slug),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		PriceAmount: models.NewMoneyFromDecimal(price),
		Images:      input.Images,
		Tags:        input.Tags,
		IsActive:    isActive,
		SortOrder:   input.SortOrder,
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update 更新商品
func (s *ProductService) Update(id uint, input ProductInput) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	price, err := s.validateProductInput(input)
	if err != nil {
		return nil, err
	}
	slug := strings.TrimSpace(input.Slug)
	if slug != product.Slug {
		exist, err := s.productRepo.GetBySlug(slug)
		if err != nil {
			return nil, err
		}
		if exist != nil && exist.ID != id {
			return nil, ErrProductSlugExists
		}
	}

	product.CategoryID = input.CategoryID
	product.Slug = slug
	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.PriceAmount = models.NewMoneyFromDecimal(price)
	product.Images = input.Images
	product.Tags = input.Tags
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.SortOrder = input.SortOrder
	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete 删除商品
func (s *ProductService) Delete(id uint) error {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return s.productRepo.Delete(id)
}

// validateProductInput 校验商品参数并解析价格
func (s *ProductService) validateProductInput(input ProductInput) (decimal.Decimal, error) {
	if strings.TrimSpace(input.Slug) == "" || strings.TrimSpace(input.Name) == "" {
		return decimal.Zero, ErrProductInvalid
	}
	category, err := s.categoryRepo.GetByID(input.CategoryID)
	if err != nil {
		return decimal.Zero, err
	}
	if category == nil {
		return decimal.Zero, ErrCategoryNotFound
	}
	price, err := decimal.NewFromString(strings.TrimSpace(input.PriceAmount))
	if err != nil || price.IsNegative() {
		return decimal.Zero, ErrProductInvalid
	}
	return price, nil
}
