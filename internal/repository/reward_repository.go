package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bionail-next/internal/models"

	"gorm.io/gorm"
)

// RewardRepository 奖励项数据访问接口
type RewardRepository interface {
	GetByID(id uint) (*models.Reward, error)
	Create(reward *models.Reward) error
	Update(reward *models.Reward) error
	Delete(id uint) error
	List(filter RewardListFilter) ([]models.Reward, int64, error)
	WithTx(tx *gorm.DB) *GormRewardRepository
}

// GormRewardRepository GORM 奖励项仓储实现
type GormRewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository 创建奖励项仓储
func NewRewardRepository(db *gorm.DB) *GormRewardRepository {
	return &GormRewardRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRewardRepository) WithTx(tx *gorm.DB) *GormRewardRepository {
	if tx == nil {
		return r
	}
	return &GormRewardRepository{db: tx}
}

// GetByID 按ID获取奖励项
func (r *GormRewardRepository) GetByID(id uint) (*models.Reward, error) {
	if id == 0 {
		return nil, nil
	}
	var reward models.Reward
	if err := r.db.First(&reward, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

// Create 创建奖励项
func (r *GormRewardRepository) Create(reward *models.Reward) error {
	return r.db.Create(reward).Error
}

// Update 更新奖励项
func (r *GormRewardRepository) Update(reward *models.Reward) error {
	return r.db.Save(reward).Error
}

// Delete 删除奖励项
func (r *GormRewardRepository) Delete(id uint) error {
	return r.db.Delete(&models.Reward{}, id).Error
}

// List 分页查询奖励项
func (r *GormRewardRepository) List(filter RewardListFilter) ([]models.Reward, int64, error) {
	query := r.db.Model(&models.Reward{})
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where(fmt.Sprintf("name %s ?", likeOperator(r.db)), "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var rewards []models.Reward
	if err := query.Order("sort_order asc, points_cost asc, id asc").Find(&rewards).Error; err != nil {
		return nil, 0, err
	}
	return rewards, total, nil
}
