package service

import (
	"strings"
	"time"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/repository"
)

// PointsConfigService 积分规则管理服务
type PointsConfigService struct {
	repo repository.PointsRepository
}

// NewPointsConfigService 创建积分规则管理服务
func NewPointsConfigService(repo repository.PointsRepository) *PointsConfigService {
	return &PointsConfigService{repo: repo}
}

// PointsConfigInput 创建/更新积分规则输入
type PointsConfigInput struct {
	ActionType              string
	PointsAmount            int64
	TieredConfigJSON        string
	MinOrderValue           models.Money
	MaxPointsPerTransaction int64
	IsActive                *bool
	ValidFrom               *time.Time
	ValidUntil              *time.Time
}

func isPointsActionSupported(actionType string) bool {
	switch actionType {
	case constants.PointsActionReferralSignup,
		constants.PointsActionReferralFirstOrder,
		constants.PointsActionReferralRepeatOrder,
		constants.PointsActionOwnPurchase:
		return true
	default:
		return false
	}
}

func validatePointsConfigInput(input PointsConfigInput) (string, error) {
	actionType := strings.TrimSpace(input.ActionType)
	if !isPointsActionSupported(actionType) {
		return "", ErrPointsConfigInvalid
	}
	if input.PointsAmount < 0 || input.MaxPointsPerTransaction < 0 {
		return "", ErrPointsConfigInvalid
	}
	if input.ValidFrom != nil && input.ValidUntil != nil && input.ValidUntil.Before(*input.ValidFrom) {
		return "", ErrPointsConfigInvalid
	}
	// 阶梯配置必须可解析
	if raw := strings.TrimSpace(input.TieredConfigJSON); raw != "" {
		probe := &models.PointsConfig{TieredConfigJSON: raw}
		if _, err := DecodePointsRule(probe); err != nil {
			return "", err
		}
	}
	return actionType, nil
}

// Create 创建积分规则
func (s *PointsConfigService) Create(input PointsConfigInput) (*models.PointsConfig, error) {
	actionType, err := validatePointsConfigInput(input)
	if err != nil {
		return nil, err
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	config := &models.PointsConfig{
		ActionType:              actionType,
		PointsAmount:            input.PointsAmount,
		TieredConfigJSON:        strings.TrimSpace(input.TieredConfigJSON),
		MinOrderValue:           input.MinOrderValue,
		MaxPointsPerTransaction: input.MaxPointsPerTransaction,
		IsActive:                isActive,
		ValidFrom:               input.ValidFrom,
		ValidUntil:              input.ValidUntil,
	}
	if err := s.repo.CreateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Update 更新积分规则
func (s *PointsConfigService) Update(id uint, input PointsConfigInput) (*models.PointsConfig, error) {
	config, err := s.repo.GetConfigByID(id)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, ErrNotFound
	}
	actionType, err := validatePointsConfigInput(input)
	if err != nil {
		return nil, err
	}

	config.ActionType = actionType
	config.PointsAmount = input.PointsAmount
	config.TieredConfigJSON = strings.TrimSpace(input.TieredConfigJSON)
	config.MinOrderValue = input.MinOrderValue
	config.MaxPointsPerTransaction = input.MaxPointsPerTransaction
	if input.IsActive != nil {
		config.IsActive = *input.IsActive
	}
	config.ValidFrom = input.ValidFrom
	config.ValidUntil = input.ValidUntil

	if err := s.repo.UpdateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Delete 删除积分规则
func (s *PointsConfigService) Delete(id uint) error {
	config, err := s.repo.GetConfigByID(id)
	if err != nil {
		return err
	}
	if config == nil {
		return ErrNotFound
	}
	return s.repo.DeleteConfig(id)
}

// List 查询积分规则列表
func (s *PointsConfigService) List(filter repository.PointsConfigListFilter) ([]models.PointsConfig, int64, error) {
	return s.repo.ListConfigs(filter)
}

// Get 查询积分规则详情
func (s *PointsConfigService) Get(id uint) (*models.PointsConfig, error) {
	config, err := s.repo.GetConfigByID(id)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, ErrNotFound
	}
	return config, nil
}
