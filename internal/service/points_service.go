package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"

	"gorm.io/gorm"
)

// PointsService 积分台账服务
type PointsService struct {
	pointsRepo    repository.PointsRepository
	affiliateRepo repository.AffiliateRepository
	userRepo      repository.UserRepository
}

// NewPointsService 创建积分台账服务
func NewPointsService(
	pointsRepo repository.PointsRepository,
	affiliateRepo repository.AffiliateRepository,
	userRepo repository.UserRepository,
) *PointsService {
	return &PointsService{
		pointsRepo:    pointsRepo,
		affiliateRepo: affiliateRepo,
		userRepo:      userRepo,
	}
}

// PointsAwardInput 积分变动输入
type PointsAwardInput struct {
	UserID          uint
	Amount          int64
	Type            string
	Description     string
	Reference       string
	RelatedEntityID *uint
	AllowNegative   bool
}

// PointsBalance 用户积分概要
type PointsBalance struct {
	CurrentBalance  int64 `json:"current_balance"`
	TotalEarned     int64 `json:"total_earned"`
	EarnedThisMonth int64 `json:"earned_this_month"`
}

// AwardPoints 记账一笔积分变动并同步推广账户余额。
// 同一 reference 重复提交时返回已存在的流水，不产生第二次变动。
func (s *PointsService) AwardPoints(input PointsAwardInput) (*models.PointsTransaction, error) {
	if s.pointsRepo == nil || s.affiliateRepo == nil {
		return nil, ErrNotFound
	}
	var result *models.PointsTransaction
	if err := s.pointsRepo.Transaction(func(tx *gorm.DB) error {
		txn, err := s.awardPointsTx(tx, input)
		if err != nil {
			return err
		}
		result = txn
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// AwardPointsTx 在外部事务内记账一笔积分变动
func (s *PointsService) AwardPointsTx(tx *gorm.DB, input PointsAwardInput) (*models.PointsTransaction, error) {
	return s.awardPointsTx(tx, input)
}

func (s *PointsService) awardPointsTx(tx *gorm.DB, input PointsAwardInput) (*models.PointsTransaction, error) {
	if input.UserID == 0 {
		return nil, ErrNotFound
	}
	if input.Amount == 0 {
		return nil, ErrPointsAmountZero
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrPointsConfigInvalid)
	}

	pointsRepo := s.pointsRepo.WithTx(tx)
	affiliateRepo := s.affiliateRepo.WithTx(tx)
	now := time.Now()

	affiliate, err := s.ensureAffiliateForUpdate(affiliateRepo, input.UserID, now)
	if err != nil {
		return nil, err
	}

	// 已存在同 reference 的流水说明本次事件已经记过账
	existing, err := pointsRepo.GetTransactionByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	before := affiliate.CurrentPointsBalance
	after := before + input.Amount
	if after < 0 && !input.AllowNegative {
		return nil, ErrPointsInsufficient
	}

	affiliate.CurrentPointsBalance = after
	if input.Amount > 0 {
		affiliate.TotalPointsEarned += input.Amount
	}
	affiliate.UpdatedAt = now
	if err := affiliateRepo.Update(affiliate); err != nil {
		return nil, err
	}

	txn := &models.PointsTransaction{
		UserID:          input.UserID,
		Amount:          input.Amount,
		Type:            strings.TrimSpace(input.Type),
		BalanceBefore:   before,
		BalanceAfter:    after,
		Description:     strings.TrimSpace(input.Description),
		Reference:       reference,
		RelatedEntityID: input.RelatedEntityID,
		CreatedAt:       now,
	}
	if err := pointsRepo.CreateTransaction(txn); err != nil {
		if isUniqueViolation(err) {
			duplicated, queryErr := pointsRepo.GetTransactionByReference(reference)
			if queryErr == nil && duplicated != nil {
				return duplicated, nil
			}
		}
		return nil, err
	}
	return txn, nil
}

// AdminAdjust 管理员手工调整积分，允许余额为负
func (s *PointsService) AdminAdjust(userID uint, amount int64, description string) (*models.PointsTransaction, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	if amount == 0 {
		return nil, ErrPointsAmountZero
	}
	if strings.TrimSpace(description) == "" {
		description = "管理员手工调整"
	}
	return s.AwardPoints(PointsAwardInput{
		UserID:        userID,
		Amount:        amount,
		Type:          constants.PointsTxnTypeAdminAdjust,
		Description:   description,
		Reference:     buildPointsReference("admin_adjust", userID),
		AllowNegative: true,
	})
}

// ListTransactions 查询积分流水
func (s *PointsService) ListTransactions(filter repository.PointsTransactionListFilter) ([]models.PointsTransaction, int64, error) {
	if s.pointsRepo == nil {
		return nil, 0, ErrNotFound
	}
	return s.pointsRepo.ListTransactions(filter)
}

// GetBalance 获取用户积分概要
func (s *PointsService) GetBalance(userID uint) (PointsBalance, error) {
	var balance PointsBalance
	if userID == 0 || s.affiliateRepo == nil || s.pointsRepo == nil {
		return balance, ErrNotFound
	}
	affiliate, err := s.affiliateRepo.GetByUserID(userID)
	if err != nil {
		return balance, err
	}
	if affiliate != nil {
		balance.CurrentBalance = affiliate.CurrentPointsBalance
		balance.TotalEarned = affiliate.TotalPointsEarned
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	earned, err := s.pointsRepo.SumEarnedByUserSince(userID, monthStart)
	if err != nil {
		return balance, err
	}
	balance.EarnedThisMonth = earned
	return balance, nil
}

func (s *PointsService) ensureAffiliateForUpdate(repo repository.AffiliateRepository, userID uint, now time.Time) (*models.Affiliate, error) {
	affiliate, err := repo.GetByUserIDForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if affiliate != nil {
		return affiliate, nil
	}

	const maxRetry = 8
	for i := 0; i < maxRetry; i++ {
		code, genErr := generateAffiliateCode()
		if genErr != nil {
			return nil, genErr
		}
		affiliate = &models.Affiliate{
			UserID:        userID,
			AffiliateCode: code,
			Status:        constants.AffiliateStatusActive,
			Tier:          constants.AffiliateTierBronze,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repo.Create(affiliate); err != nil {
			if isUniqueViolation(err) {
				created, queryErr := repo.GetByUserIDForUpdate(userID)
				if queryErr == nil && created != nil {
					return created, nil
				}
				continue
			}
			return nil, err
		}
		return affiliate, nil
	}
	return nil, ErrAffiliateCodeConflict
}

func buildPointsReference(prefix string, userID uint) string {
	return fmt.Sprintf("%s:%d:%d", strings.TrimSpace(prefix), userID, time.Now().UnixNano())
}
