package service

import (
	"strings"

	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"
)

// CategoryService 分类服务
type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

// NewCategoryService 创建分类服务
func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

// CategoryInput 分类创建/更新参数
type CategoryInput struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	BrandLine string `json:"brand_line"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
}

// ListAll 查询全部分类
func (s *CategoryService) ListAll() ([]models.Category, error) {
	return s.categoryRepo.ListAll()
}

// Get 查询分类
func (s *CategoryService) Get(id uint) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

// Create 创建分类
func (s *CategoryService) Create(input CategoryInput) (*models.Category, error) {
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, ErrCategoryInvalid
	}
	exist, err := s.categoryRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrCategorySlugExists
	}
	category := &models.Category{
		Slug:      slug,
		Name:      name,
		BrandLine: strings.TrimSpace(input.BrandLine),
		Icon:      input.Icon,
		SortOrder: input.SortOrder,
	}
	if err := s.categoryRepo.Create(category); err != nil {
		return nil, err
	}
	return category, nil
}

// Update 更新分类
func (s *CategoryService) Update(id uint, input CategoryInput) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, ErrCategoryInvalid
	}
	if slug != category.Slug {
		exist, err := s.categoryRepo.GetBySlug(slug)
		if err != nil {
			return nil, err
		}
		if exist != nil && exist.ID != id {
			return nil, ErrCategorySlugExists
		}
	}
	category.Slug = slug
	category.Name = name
	category.BrandLine = strings.TrimSpace(input.BrandLine)
	category.Icon = input.Icon
	category.SortOrder = input.SortOrder
	if err := s.categoryRepo.Update(category); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete 删除分类
func (s *CategoryService) Delete(id uint) error {
	category, err := s.categoryRepo.GetByID(id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	return s.categoryRepo.Delete(id)
}
