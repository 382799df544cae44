package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/bionail-next/internal/models"

	"gorm.io/gorm"
)

// PointsRepository 积分数据访问接口
type PointsRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PointsRepository

	CreateTransaction(txn *models.PointsTransaction) error
	GetTransactionByID(id uint) (*models.PointsTransaction, error)
	GetTransactionByReference(reference string) (*models.PointsTransaction, error)
	ListTransactions(filter PointsTransactionListFilter) ([]models.PointsTransaction, int64, error)
	SumEarnedByUser(userID uint) (int64, error)
	SumEarnedByUserSince(userID uint, since time.Time) (int64, error)

	GetConfigByID(id uint) (*models.PointsConfig, error)
	GetActiveConfigForAction(actionType string, at time.Time) (*models.PointsConfig, error)
	CreateConfig(config *models.PointsConfig) error
	UpdateConfig(config *models.PointsConfig) error
	DeleteConfig(id uint) error
	ListConfigs(filter PointsConfigListFilter) ([]models.PointsConfig, int64, error)

	CreateRedemption(redemption *models.PointsRedemption) error
	GetRedemptionByID(id uint) (*models.PointsRedemption, error)
	GetRedemptionByCouponCode(couponCode string) (*models.PointsRedemption, error)
	UpdateRedemption(redemption *models.PointsRedemption) error
	ListRedemptions(filter RedemptionListFilter) ([]models.PointsRedemption, int64, error)
}

// GormPointsRepository GORM 积分仓储实现
type GormPointsRepository struct {
	db *gorm.DB
}

// NewPointsRepository 创建积分仓储
func NewPointsRepository(db *gorm.DB) *GormPointsRepository {
	return &GormPointsRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPointsRepository) WithTx(tx *gorm.DB) PointsRepository {
	if tx == nil {
		return r
	}
	return &GormPointsRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPointsRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateTransaction 创建积分流水
func (r *GormPointsRepository) CreateTransaction(txn *models.PointsTransaction) error {
	return r.db.Create(txn).Error
}

// GetTransactionByID 按ID获取积分流水
func (r *GormPointsRepository) GetTransactionByID(id uint) (*models.PointsTransaction, error) {
	if id == 0 {
		return nil, nil
	}
	var txn models.PointsTransaction
	if err := r.db.First(&txn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// GetTransactionByReference 按参考号获取积分流水
func (r *GormPointsRepository) GetTransactionByReference(reference string) (*models.PointsTransaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var txn models.PointsTransaction
	if err := r.db.Where("reference = ?", reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// ListTransactions 分页查询积分流水
func (r *GormPointsRepository) ListTransactions(filter PointsTransactionListFilter) ([]models.PointsTransaction, int64, error) {
	query := r.db.Model(&models.PointsTransaction{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if txnType := strings.TrimSpace(filter.Type); txnType != "" {
		query = query.Where("type = ?", txnType)
	}
	if reference := strings.TrimSpace(filter.Reference); reference != "" {
		query = query.Where("reference = ?", reference)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var txns []models.PointsTransaction
	if err := query.Order("id desc").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// SumEarnedByUser 汇总用户累计获得的积分（仅正向流水）
func (r *GormPointsRepository) SumEarnedByUser(userID uint) (int64, error) {
	if userID == 0 {
		return 0, nil
	}
	var row struct {
		Total int64 `gorm:"column:total"`
	}
	if err := r.db.Model(&models.PointsTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND amount > 0", userID).
		Scan(&row).Error; err != nil {
		return 0, err
	}
	return row.Total, nil
}

// SumEarnedByUserSince 汇总用户自某时间起获得的积分（仅正向流水）
func (r *GormPointsRepository) SumEarnedByUserSince(userID uint, since time.Time) (int64, error) {
	if userID == 0 {
		return 0, nil
	}
	var row struct {
		Total int64 `gorm:"column:total"`
	}
	if err := r.db.Model(&models.PointsTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND amount > 0 AND created_at >= ?", userID, since).
		Scan(&row).Error; err != nil {
		return 0, err
	}
	return row.Total, nil
}

// GetConfigByID 按ID获取积分规则
func (r *GormPointsRepository) GetConfigByID(id uint) (*models.PointsConfig, error) {
	if id == 0 {
		return nil, nil
	}
	var config models.PointsConfig
	if err := r.db.First(&config, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// GetActiveConfigForAction 获取动作当前生效的积分规则，时间窗口内取最新一条
func (r *GormPointsRepository) GetActiveConfigForAction(actionType string, at time.Time) (*models.PointsConfig, error) {
	normalized := strings.TrimSpace(actionType)
	if normalized == "" {
		return nil, nil
	}
	var config models.PointsConfig
	err := r.db.Where("action_type = ? AND is_active = ?", normalized, true).
		Where("valid_from IS NULL OR valid_from <= ?", at).
		Where("valid_until IS NULL OR valid_until >= ?", at).
		Order("id desc").
		First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// CreateConfig 创建积分规则
func (r *GormPointsRepository) CreateConfig(config *models.PointsConfig) error {
	return r.db.Create(config).Error
}

// UpdateConfig 更新积分规则
func (r *GormPointsRepository) UpdateConfig(config *models.PointsConfig) error {
	return r.db.Save(config).Error
}

// DeleteConfig 删除积分规则
func (r *GormPointsRepository) DeleteConfig(id uint) error {
	return r.db.Delete(&models.PointsConfig{}, id).Error
}

// ListConfigs 分页查询积分规则
func (r *GormPointsRepository) ListConfigs(filter PointsConfigListFilter) ([]models.PointsConfig, int64, error) {
	query := r.db.Model(&models.PointsConfig{})
	if actionType := strings.TrimSpace(filter.ActionType); actionType != "" {
		query = query.Where("action_type = ?", actionType)
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var configs []models.PointsConfig
	if err := query.Order("id desc").Find(&configs).Error; err != nil {
		return nil, 0, err
	}
	return configs, total, nil
}

// CreateRedemption 创建兑换记录
func (r *GormPointsRepository) CreateRedemption(redemption *models.PointsRedemption) error {
	return r.db.Create(redemption).Error
}

// GetRedemptionByID 按ID获取兑换记录
func (r *GormPointsRepository) GetRedemptionByID(id uint) (*models.PointsRedemption, error) {
	if id == 0 {
		return nil, nil
	}
	var redemption models.PointsRedemption
	if err := r.db.Preload("Reward").Preload("Coupon").First(&redemption, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}

// GetRedemptionByCouponCode 按兑换券码获取兑换记录
func (r *GormPointsRepository) GetRedemptionByCouponCode(couponCode string) (*models.PointsRedemption, error) {
	normalized := strings.ToUpper(strings.TrimSpace(couponCode))
	if normalized == "" {
		return nil, nil
	}
	var redemption models.PointsRedemption
	if err := r.db.Where("coupon_code = ?", normalized).First(&redemption).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}

// UpdateRedemption 更新兑换记录
func (r *GormPointsRepository) UpdateRedemption(redemption *models.PointsRedemption) error {
	return r.db.Save(redemption).Error
}

// ListRedemptions 分页查询兑换记录
func (r *GormPointsRepository) ListRedemptions(filter RedemptionListFilter) ([]models.PointsRedemption, int64, error) {
	query := r.db.Model(&models.PointsRedemption{}).Preload("Reward")
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.RewardID != 0 {
		query = query.Where("reward_id = ?", filter.RewardID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var redemptions []models.PointsRedemption
	if err := query.Order("id desc").Find(&redemptions).Error; err != nil {
		return nil, 0, err
	}
	return redemptions, total, nil
}
