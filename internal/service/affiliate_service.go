package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/logger"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"
)

const (
	affiliateCodeLength        = 8
	affiliateAttributionWindow = 30 * 24 * time.Hour
	affiliateClickDedupeWindow = 10 * time.Minute
)

// AffiliateService 推广联盟业务服务
type AffiliateService struct {
	repo           repository.AffiliateRepository
	userRepo       repository.UserRepository
	orderRepo      repository.OrderRepository
	pointsRepo     repository.PointsRepository
	settingService *SettingService
}

// NewAffiliateService 创建推广联盟服务
func NewAffiliateService(
	repo repository.AffiliateRepository,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	pointsRepo repository.PointsRepository,
	settingService *SettingService,
) *AffiliateService {
	return &AffiliateService{
		repo:           repo,
		userRepo:       userRepo,
		orderRepo:      orderRepo,
		pointsRepo:     pointsRepo,
		settingService: settingService,
	}
}

// AffiliateTrackClickInput 推广点击记录输入
type AffiliateTrackClickInput struct {
	AffiliateCode string
	VisitorKey    string
	LandingPath   string
	Referrer      string
	ClientIP      string
	UserAgent     string
}

// AffiliateDashboard 推广用户中心数据
type AffiliateDashboard struct {
	AffiliateCode   string `json:"affiliate_code"`
	Status          string `json:"status"`
	Tier            string `json:"tier"`
	CurrentBalance  int64  `json:"current_balance"`
	TotalEarned     int64  `json:"total_earned"`
	EarnedThisMonth int64  `json:"earned_this_month"`
	ReferralCount   int64  `json:"referral_count"`
	ActiveReferrals int64  `json:"active_referrals"`
}

// AffiliateReferralItem 推荐关系列表项（含被推荐用户消费汇总）
type AffiliateReferralItem struct {
	Referral   models.AffiliateReferral `json:"referral"`
	OrderCount int64                    `json:"order_count"`
	Revenue    models.Money             `json:"revenue"`
}

// AffiliateAnalytics 推广转化漏斗数据
type AffiliateAnalytics struct {
	ClickCount     int64            `json:"click_count"`
	ConvertedCount int64            `json:"converted_count"`
	SignupCount    int64            `json:"signup_count"`
	ActivatedCount int64            `json:"activated_count"`
	ConversionRate float64          `json:"conversion_rate"`
	ClicksByDay    map[string]int64 `json:"clicks_by_day"`
}

// GetOrCreateAffiliate 获取或创建推广账户，推广码唯一冲突时重试生成
func (s *AffiliateService) GetOrCreateAffiliate(userID uint) (*models.Affiliate, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	if s.repo == nil || s.userRepo == nil {
		return nil, ErrNotFound
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(user.Status) == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	existing, err := s.repo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	const maxRetry = 8
	for i := 0; i < maxRetry; i++ {
		code, genErr := generateAffiliateCode()
		if genErr != nil {
			return nil, genErr
		}
		affiliate := &models.Affiliate{
			UserID:        userID,
			AffiliateCode: code,
			Status:        constants.AffiliateStatusActive,
			Tier:          constants.AffiliateTierBronze,
		}
		if err := s.repo.Create(affiliate); err != nil {
			if isUniqueViolation(err) {
				created, queryErr := s.repo.GetByUserID(userID)
				if queryErr == nil && created != nil {
					return created, nil
				}
				continue
			}
			return nil, err
		}
		created, err := s.repo.GetByID(affiliate.ID)
		if err != nil {
			return nil, err
		}
		if created != nil {
			return created, nil
		}
		return affiliate, nil
	}
	return nil, ErrAffiliateCodeConflict
}

// TrackClick 记录推广点击，10分钟内同访客同落地页去重
func (s *AffiliateService) TrackClick(input AffiliateTrackClickInput) error {
	if s.repo == nil {
		return nil
	}
	code := normalizeAffiliateCode(input.AffiliateCode)
	if code == "" {
		return nil
	}
	setting, err := s.settingService.GetPointsProgramSetting()
	if err != nil {
		return err
	}
	if !setting.Enabled {
		return nil
	}
	affiliate, err := s.repo.GetByCode(code)
	if err != nil {
		return err
	}
	if affiliate == nil || strings.TrimSpace(affiliate.Status) != constants.AffiliateStatusActive {
		return nil
	}
	visitorKey := strings.TrimSpace(input.VisitorKey)
	landingPath := strings.TrimSpace(input.LandingPath)
	if visitorKey != "" {
		duplicated, err := s.repo.HasRecentClick(affiliate.ID, visitorKey, landingPath, time.Now().Add(-affiliateClickDedupeWindow))
		if err != nil {
			return err
		}
		if duplicated {
			return nil
		}
	}

	click := &models.AffiliateLinkClick{
		AffiliateID: affiliate.ID,
		VisitorKey:  visitorKey,
		LandingPath: landingPath,
		Referrer:    strings.TrimSpace(input.Referrer),
		ClientIP:    strings.TrimSpace(input.ClientIP),
		UserAgent:   strings.TrimSpace(input.UserAgent),
		CreatedAt:   time.Now(),
	}
	return s.repo.CreateClick(click)
}

// ResolveReferrer 解析注册归因（最近30天最后一次有效点击优先，其次推广码）
func (s *AffiliateService) ResolveReferrer(userID uint, rawCode, rawVisitorKey string) (*models.Affiliate, error) {
	if s.repo == nil {
		return nil, nil
	}
	code := normalizeAffiliateCode(rawCode)
	visitorKey := strings.TrimSpace(rawVisitorKey)

	setting, err := s.settingService.GetPointsProgramSetting()
	if err != nil {
		return nil, err
	}
	if !setting.Enabled {
		return nil, nil
	}

	if visitorKey != "" {
		affiliate, err := s.repo.GetLatestAffiliateByVisitorKey(visitorKey, time.Now().Add(-affiliateAttributionWindow))
		if err != nil {
			return nil, err
		}
		if affiliate != nil {
			if userID > 0 && affiliate.UserID == userID {
				return nil, nil
			}
			return affiliate, nil
		}
	}

	if code == "" {
		return nil, nil
	}
	affiliate, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if affiliate == nil || strings.TrimSpace(affiliate.Status) != constants.AffiliateStatusActive {
		return nil, nil
	}
	if userID > 0 && affiliate.UserID == userID {
		return nil, nil
	}
	return affiliate, nil
}

// CreateReferral 建立推荐关系。自荐与重复推荐均为静默跳过。
func (s *AffiliateService) CreateReferral(affiliateID, referredUserID uint) (*models.AffiliateReferral, error) {
	if s.repo == nil || affiliateID == 0 || referredUserID == 0 {
		return nil, nil
	}
	affiliate, err := s.repo.GetByID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}
	if affiliate.UserID == referredUserID {
		logger.Debugw("affiliate_referral_skip_self", "affiliate_id", affiliateID, "user_id", referredUserID)
		return nil, nil
	}

	existing, err := s.repo.GetReferralByReferredUserID(referredUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Debugw("affiliate_referral_skip_duplicate",
			"affiliate_id", affiliateID,
			"referred_user_id", referredUserID,
			"existing_affiliate_id", existing.AffiliateID,
		)
		return existing, nil
	}

	now := time.Now()
	referral := &models.AffiliateReferral{
		AffiliateID:    affiliateID,
		ReferredUserID: referredUserID,
		Status:         constants.ReferralStatusPending,
		ReferralDate:   now,
	}
	if err := s.repo.CreateReferral(referral); err != nil {
		if isUniqueViolation(err) {
			return s.repo.GetReferralByReferredUserID(referredUserID)
		}
		return nil, err
	}
	return referral, nil
}

// ConvertClicks 注册后将访客30天窗口内未转化的点击标记为已转化
func (s *AffiliateService) ConvertClicks(visitorKey string, userID uint) (int64, error) {
	if s.repo == nil || strings.TrimSpace(visitorKey) == "" {
		return 0, nil
	}
	now := time.Now()
	return s.repo.MarkClicksConverted(visitorKey, now.Add(-affiliateAttributionWindow), userID, now)
}

// ActivateReferral 首单激活推荐关系。仅 PENDING 状态生效，重复调用为无副作用的 no-op。
func (s *AffiliateService) ActivateReferral(referralID, orderID uint) (bool, error) {
	if s.repo == nil || referralID == 0 {
		return false, nil
	}
	affected, err := s.repo.ActivateReferralIfPending(referralID, orderID, time.Now())
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetReferralByUserID 查询用户作为被推荐人的推荐关系
func (s *AffiliateService) GetReferralByUserID(userID uint) (*models.AffiliateReferral, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetReferralByReferredUserID(userID)
}

// GetUserDashboard 推广用户中心概要
func (s *AffiliateService) GetUserDashboard(userID uint) (AffiliateDashboard, error) {
	var dashboard AffiliateDashboard
	if userID == 0 || s.repo == nil {
		return dashboard, ErrNotFound
	}
	affiliate, err := s.GetOrCreateAffiliate(userID)
	if err != nil {
		return dashboard, err
	}

	dashboard.AffiliateCode = affiliate.AffiliateCode
	dashboard.Status = affiliate.Status
	dashboard.Tier = affiliate.Tier
	dashboard.CurrentBalance = affiliate.CurrentPointsBalance
	dashboard.TotalEarned = affiliate.TotalPointsEarned

	if s.pointsRepo != nil {
		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		earned, err := s.pointsRepo.SumEarnedByUserSince(userID, monthStart)
		if err != nil {
			return dashboard, err
		}
		dashboard.EarnedThisMonth = earned
	}

	counts, err := s.repo.CountReferralsByStatus(affiliate.ID)
	if err != nil {
		return dashboard, err
	}
	for _, total := range counts {
		dashboard.ReferralCount += total
	}
	dashboard.ActiveReferrals = counts[constants.ReferralStatusActive]
	return dashboard, nil
}

// ListUserReferrals 查询推广用户的推荐关系，附带被推荐用户消费汇总
func (s *AffiliateService) ListUserReferrals(userID uint, page, pageSize int, status string) ([]AffiliateReferralItem, int64, error) {
	if userID == 0 || s.repo == nil {
		return nil, 0, ErrNotFound
	}
	affiliate, err := s.repo.GetByUserID(userID)
	if err != nil {
		return nil, 0, err
	}
	if affiliate == nil {
		return []AffiliateReferralItem{}, 0, nil
	}

	referrals, total, err := s.repo.ListReferrals(repository.ReferralListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: affiliate.ID,
		Status:      status,
	})
	if err != nil {
		return nil, 0, err
	}

	userIDs := make([]uint, 0, len(referrals))
	for _, referral := range referrals {
		userIDs = append(userIDs, referral.ReferredUserID)
	}
	rollups := map[uint]repository.OrderRollupAggregate{}
	if s.orderRepo != nil && len(userIDs) > 0 {
		rollups, err = s.orderRepo.GetPaidRollupsByUsers(userIDs)
		if err != nil {
			return nil, 0, err
		}
	}

	items := make([]AffiliateReferralItem, 0, len(referrals))
	for _, referral := range referrals {
		rollup := rollups[referral.ReferredUserID]
		items = append(items, AffiliateReferralItem{
			Referral:   referral,
			OrderCount: rollup.OrderCount,
			Revenue:    rollup.Revenue,
		})
	}
	return items, total, nil
}

// GetUserAnalytics 推广转化漏斗与近30天点击曲线
func (s *AffiliateService) GetUserAnalytics(userID uint) (AffiliateAnalytics, error) {
	var analytics AffiliateAnalytics
	if userID == 0 || s.repo == nil {
		return analytics, ErrNotFound
	}
	affiliate, err := s.repo.GetByUserID(userID)
	if err != nil {
		return analytics, err
	}
	if affiliate == nil {
		analytics.ClicksByDay = map[string]int64{}
		return analytics, nil
	}

	stats, err := s.repo.GetFunnelStats(affiliate.ID)
	if err != nil {
		return analytics, err
	}
	analytics.ClickCount = stats.ClickCount
	analytics.ConvertedCount = stats.ConvertedCount
	analytics.SignupCount = stats.SignupCount
	analytics.ActivatedCount = stats.ActivatedCount
	if stats.ClickCount > 0 {
		analytics.ConversionRate = float64(stats.SignupCount) / float64(stats.ClickCount)
	}

	now := time.Now()
	clicksByDay, err := s.repo.CountClicksByDay(affiliate.ID, now.Add(-affiliateAttributionWindow), now)
	if err != nil {
		return analytics, err
	}
	analytics.ClicksByDay = clicksByDay
	return analytics, nil
}

// AutoPromote 按推荐数和累计积分晋升等级，只升不降
func (s *AffiliateService) AutoPromote(affiliateID uint) (string, error) {
	if s.repo == nil || affiliateID == 0 {
		return "", nil
	}
	affiliate, err := s.repo.GetByID(affiliateID)
	if err != nil {
		return "", err
	}
	if affiliate == nil {
		return "", ErrAffiliateNotFound
	}

	setting, err := s.settingService.GetPointsProgramSetting()
	if err != nil {
		return affiliate.Tier, err
	}

	counts, err := s.repo.CountReferralsByStatus(affiliate.ID)
	if err != nil {
		return affiliate.Tier, err
	}
	activeReferrals := counts[constants.ReferralStatusActive]
	totalPoints := affiliate.TotalPointsEarned

	target := constants.AffiliateTierBronze
	if activeReferrals >= setting.SilverReferrals && totalPoints >= setting.SilverPoints {
		target = constants.AffiliateTierSilver
	}
	if activeReferrals >= setting.GoldReferrals && totalPoints >= setting.GoldPoints {
		target = constants.AffiliateTierGold
	}
	if activeReferrals >= setting.PlatinumReferrals && totalPoints >= setting.PlatinumPoints {
		target = constants.AffiliateTierPlatinum
	}

	if tierRank(target) <= tierRank(affiliate.Tier) {
		return affiliate.Tier, nil
	}
	if err := s.repo.UpdateTier(affiliate.ID, target, time.Now()); err != nil {
		return affiliate.Tier, err
	}
	logger.Infow("affiliate_tier_promoted",
		"affiliate_id", affiliate.ID,
		"from", affiliate.Tier,
		"to", target,
		"active_referrals", activeReferrals,
		"total_points", totalPoints,
	)
	return target, nil
}

// ListAdminAffiliates 管理端推广账户列表
func (s *AffiliateService) ListAdminAffiliates(filter repository.AffiliateListFilter) ([]models.Affiliate, int64, error) {
	if s.repo == nil {
		return nil, 0, ErrNotFound
	}
	return s.repo.List(filter)
}

// GetAdminAffiliate 管理端推广账户详情（含漏斗统计）
func (s *AffiliateService) GetAdminAffiliate(id uint) (*models.Affiliate, *AffiliateAnalytics, error) {
	if s.repo == nil {
		return nil, nil, ErrNotFound
	}
	affiliate, err := s.repo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	if affiliate == nil {
		return nil, nil, ErrNotFound
	}
	stats, err := s.repo.GetFunnelStats(affiliate.ID)
	if err != nil {
		return nil, nil, err
	}
	analytics := &AffiliateAnalytics{
		ClickCount:     stats.ClickCount,
		ConvertedCount: stats.ConvertedCount,
		SignupCount:    stats.SignupCount,
		ActivatedCount: stats.ActivatedCount,
	}
	if stats.ClickCount > 0 {
		analytics.ConversionRate = float64(stats.SignupCount) / float64(stats.ClickCount)
	}
	return affiliate, analytics, nil
}

// UpdateAffiliateStatus 管理端启用/停用推广账户
func (s *AffiliateService) UpdateAffiliateStatus(id uint, rawStatus string) (*models.Affiliate, error) {
	if id == 0 || s.repo == nil {
		return nil, ErrNotFound
	}
	nextStatus := strings.TrimSpace(rawStatus)
	if nextStatus != constants.AffiliateStatusActive && nextStatus != constants.AffiliateStatusDisabled {
		return nil, ErrAffiliateStatusInvalid
	}

	affiliate, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(affiliate.Status) == nextStatus {
		return affiliate, nil
	}
	if err := s.repo.UpdateStatus(id, nextStatus, time.Now()); err != nil {
		return nil, err
	}
	return s.repo.GetByID(id)
}

func tierRank(tier string) int {
	switch strings.TrimSpace(tier) {
	case constants.AffiliateTierPlatinum:
		return 3
	case constants.AffiliateTierGold:
		return 2
	case constants.AffiliateTierSilver:
		return 1
	default:
		return 0
	}
}

func normalizeAffiliateCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateAffiliateCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(affiliateCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < affiliateCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
