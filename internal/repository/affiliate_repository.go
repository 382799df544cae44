package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateRepository 推广账户数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	GetByID(id uint) (*models.Affiliate, error)
	GetByIDForUpdate(id uint) (*models.Affiliate, error)
	GetByUserID(userID uint) (*models.Affiliate, error)
	GetByUserIDForUpdate(userID uint) (*models.Affiliate, error)
	GetByCode(code string) (*models.Affiliate, error)
	Create(affiliate *models.Affiliate) error
	Update(affiliate *models.Affiliate) error
	UpdateStatus(id uint, status string, updatedAt time.Time) error
	UpdateTier(id uint, tier string, updatedAt time.Time) error
	List(filter AffiliateListFilter) ([]models.Affiliate, int64, error)

	CreateReferral(referral *models.AffiliateReferral) error
	GetReferralByID(id uint) (*models.AffiliateReferral, error)
	GetReferralByReferredUserID(referredUserID uint) (*models.AffiliateReferral, error)
	ActivateReferralIfPending(id uint, firstOrderID uint, activatedAt time.Time) (int64, error)
	ListReferrals(filter ReferralListFilter) ([]models.AffiliateReferral, int64, error)
	CountReferralsByStatus(affiliateID uint) (map[string]int64, error)

	CreateClick(click *models.AffiliateLinkClick) error
	HasRecentClick(affiliateID uint, visitorKey, landingPath string, since time.Time) (bool, error)
	GetLatestAffiliateByVisitorKey(visitorKey string, since time.Time) (*models.Affiliate, error)
	MarkClicksConverted(visitorKey string, since time.Time, userID uint, convertedAt time.Time) (int64, error)
	GetFunnelStats(affiliateID uint) (AffiliateFunnelAggregate, error)
	CountClicksByDay(affiliateID uint, from, to time.Time) (map[string]int64, error)
}

// GormAffiliateRepository GORM 推广账户仓储实现
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广账户仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取推广账户
func (r *GormAffiliateRepository) GetByID(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Preload("User").First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByIDForUpdate 按ID加锁获取推广账户
func (r *GormAffiliateRepository) GetByIDForUpdate(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByUserID 按用户ID获取推广账户
func (r *GormAffiliateRepository) GetByUserID(userID uint) (*models.Affiliate, error) {
	if userID == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Preload("User").Where("user_id = ?", userID).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByUserIDForUpdate 按用户ID加锁获取推广账户
func (r *GormAffiliateRepository) GetByUserIDForUpdate(userID uint) (*models.Affiliate, error) {
	if userID == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByCode 按推广码获取推广账户
func (r *GormAffiliateRepository) GetByCode(code string) (*models.Affiliate, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Preload("User").Where("affiliate_code = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// Create 创建推广账户
func (r *GormAffiliateRepository) Create(affiliate *models.Affiliate) error {
	return r.db.Create(affiliate).Error
}

// Update 更新推广账户
func (r *GormAffiliateRepository) Update(affiliate *models.Affiliate) error {
	return r.db.Save(affiliate).Error
}

// UpdateStatus 更新推广账户状态
func (r *GormAffiliateRepository) UpdateStatus(id uint, status string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt,
		}).Error
}

// UpdateTier 更新推广账户等级
func (r *GormAffiliateRepository) UpdateTier(id uint, tier string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tier":       strings.TrimSpace(tier),
			"updated_at": updatedAt,
		}).Error
}

// List 分页查询推广账户
func (r *GormAffiliateRepository) List(filter AffiliateListFilter) ([]models.Affiliate, int64, error) {
	query := r.db.Model(&models.Affiliate{}).Preload("User")
	if filter.UserID != 0 {
		query = query.Where("affiliates.user_id = ?", filter.UserID)
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("affiliates.affiliate_code = ?", strings.ToUpper(code))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("affiliates.status = ?", status)
	}
	if tier := strings.TrimSpace(filter.Tier); tier != "" {
		query = query.Where("affiliates.tier = ?", tier)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.
			Joins("LEFT JOIN users ON users.id = affiliates.user_id").
			Where("(users.email LIKE ? OR users.display_name LIKE ? OR affiliates.affiliate_code LIKE ?)", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Affiliate
	if err := query.Order("affiliates.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CreateReferral 创建推荐关系
func (r *GormAffiliateRepository) CreateReferral(referral *models.AffiliateReferral) error {
	return r.db.Create(referral).Error
}

// GetReferralByID 按ID获取推荐关系
func (r *GormAffiliateRepository) GetReferralByID(id uint) (*models.AffiliateReferral, error) {
	if id == 0 {
		return nil, nil
	}
	var referral models.AffiliateReferral
	if err := r.db.First(&referral, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetReferralByReferredUserID 按被推荐用户获取推荐关系
func (r *GormAffiliateRepository) GetReferralByReferredUserID(referredUserID uint) (*models.AffiliateReferral, error) {
	if referredUserID == 0 {
		return nil, nil
	}
	var referral models.AffiliateReferral
	if err := r.db.Where("referred_user_id = ?", referredUserID).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// ActivateReferralIfPending 将待激活推荐关系转为已激活，仅首次生效
func (r *GormAffiliateRepository) ActivateReferralIfPending(id uint, firstOrderID uint, activatedAt time.Time) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.AffiliateReferral{}).
		Where("id = ? AND status = ?", id, constants.ReferralStatusPending).
		Updates(map[string]interface{}{
			"status":         constants.ReferralStatusActive,
			"first_order_id": firstOrderID,
			"activated_at":   activatedAt,
			"updated_at":     activatedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListReferrals 分页查询推荐关系
func (r *GormAffiliateRepository) ListReferrals(filter ReferralListFilter) ([]models.AffiliateReferral, int64, error) {
	query := r.db.Model(&models.AffiliateReferral{}).Preload("ReferredUser")
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
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

	var rows []models.AffiliateReferral
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountReferralsByStatus 按状态统计推荐关系数量
func (r *GormAffiliateRepository) CountReferralsByStatus(affiliateID uint) (map[string]int64, error) {
	result := make(map[string]int64)
	if affiliateID == 0 {
		return result, nil
	}
	var rows []struct {
		Status string `gorm:"column:status"`
		Total  int64  `gorm:"column:total"`
	}
	if err := r.db.Model(&models.AffiliateReferral{}).
		Select("status, COUNT(*) AS total").
		Where("affiliate_id = ?", affiliateID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.Status] = row.Total
	}
	return result, nil
}

// CreateClick 创建推广点击记录
func (r *GormAffiliateRepository) CreateClick(click *models.AffiliateLinkClick) error {
	return r.db.Create(click).Error
}

// HasRecentClick 查询是否存在近期重复点击记录
func (r *GormAffiliateRepository) HasRecentClick(affiliateID uint, visitorKey, landingPath string, since time.Time) (bool, error) {
	if affiliateID == 0 || strings.TrimSpace(visitorKey) == "" {
		return false, nil
	}
	query := r.db.Model(&models.AffiliateLinkClick{}).
		Where("affiliate_id = ? AND visitor_key = ? AND created_at >= ?",
			affiliateID,
			strings.TrimSpace(visitorKey),
			since,
		)
	if path := strings.TrimSpace(landingPath); path != "" {
		query = query.Where("landing_path = ?", path)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// GetLatestAffiliateByVisitorKey 查询访客最近一次有效点击对应的推广账户
func (r *GormAffiliateRepository) GetLatestAffiliateByVisitorKey(visitorKey string, since time.Time) (*models.Affiliate, error) {
	key := strings.TrimSpace(visitorKey)
	if key == "" {
		return nil, nil
	}

	var affiliate models.Affiliate
	err := r.db.Model(&models.Affiliate{}).
		Joins("JOIN affiliate_link_clicks alc ON alc.affiliate_id = affiliates.id").
		Where("alc.visitor_key = ? AND alc.created_at >= ? AND affiliates.status = ?",
			key,
			since,
			constants.AffiliateStatusActive,
		).
		Order("alc.created_at DESC, alc.id DESC").
		Limit(1).
		Preload("User").
		First(&affiliate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// MarkClicksConverted 将访客窗口期内未转化的点击标记为已转化
func (r *GormAffiliateRepository) MarkClicksConverted(visitorKey string, since time.Time, userID uint, convertedAt time.Time) (int64, error) {
	key := strings.TrimSpace(visitorKey)
	if key == "" {
		return 0, nil
	}
	result := r.db.Model(&models.AffiliateLinkClick{}).
		Where("visitor_key = ? AND created_at >= ? AND converted = ?", key, since, false).
		Updates(map[string]interface{}{
			"converted":         true,
			"converted_at":      convertedAt,
			"converted_user_id": userID,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// GetFunnelStats 汇总推广账户的转化漏斗统计
func (r *GormAffiliateRepository) GetFunnelStats(affiliateID uint) (AffiliateFunnelAggregate, error) {
	var stats AffiliateFunnelAggregate
	if affiliateID == 0 {
		return stats, nil
	}

	if err := r.db.Model(&models.AffiliateLinkClick{}).
		Where("affiliate_id = ?", affiliateID).
		Count(&stats.ClickCount).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.AffiliateLinkClick{}).
		Where("affiliate_id = ? AND converted = ?", affiliateID, true).
		Count(&stats.ConvertedCount).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.AffiliateReferral{}).
		Where("affiliate_id = ?", affiliateID).
		Count(&stats.SignupCount).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.AffiliateReferral{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, constants.ReferralStatusActive).
		Count(&stats.ActivatedCount).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

// CountClicksByDay 按天统计推广点击数
func (r *GormAffiliateRepository) CountClicksByDay(affiliateID uint, from, to time.Time) (map[string]int64, error) {
	result := make(map[string]int64)
	if affiliateID == 0 {
		return result, nil
	}

	dayExpr := "strftime('%Y-%m-%d', created_at)"
	if name := dbDialectName(r.db); name == "postgres" || name == "postgresql" {
		dayExpr = "to_char(created_at, 'YYYY-MM-DD')"
	}

	var rows []struct {
		Day   string `gorm:"column:day"`
		Total int64  `gorm:"column:total"`
	}
	if err := r.db.Model(&models.AffiliateLinkClick{}).
		Select(dayExpr+" AS day, COUNT(*) AS total").
		Where("affiliate_id = ? AND created_at >= ? AND created_at <= ?", affiliateID, from, to).
		Group("day").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.Day] = row.Total
	}
	return result, nil
}
