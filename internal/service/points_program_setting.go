package service

import (
	"fmt"

	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/models"
)

const (
	tierThresholdMin = 0
	tierThresholdMax = 100000000
)

// PointsProgramSetting 积分计划配置（开关 + 等级晋升阈值）
type PointsProgramSetting struct {
	Enabled           bool  `json:"enabled"`
	SilverReferrals   int64 `json:"silver_referrals"`
	SilverPoints      int64 `json:"silver_points"`
	GoldReferrals     int64 `json:"gold_referrals"`
	GoldPoints        int64 `json:"gold_points"`
	PlatinumReferrals int64 `json:"platinum_referrals"`
	PlatinumPoints    int64 `json:"platinum_points"`
}

// PointsProgramDefaultSetting 默认积分计划配置
func PointsProgramDefaultSetting() PointsProgramSetting {
	return PointsProgramSetting{
		Enabled:           true,
		SilverReferrals:   5,
		SilverPoints:      500,
		GoldReferrals:     20,
		GoldPoints:        2000,
		PlatinumReferrals: 50,
		PlatinumPoints:    10000,
	}
}

// NormalizePointsProgramSetting 归一化积分计划配置
func NormalizePointsProgramSetting(setting PointsProgramSetting) PointsProgramSetting {
	clamp := func(v int64) int64 {
		if v < tierThresholdMin {
			return tierThresholdMin
		}
		if v > tierThresholdMax {
			return tierThresholdMax
		}
		return v
	}
	setting.SilverReferrals = clamp(setting.SilverReferrals)
	setting.SilverPoints = clamp(setting.SilverPoints)
	setting.GoldReferrals = clamp(setting.GoldReferrals)
	setting.GoldPoints = clamp(setting.GoldPoints)
	setting.PlatinumReferrals = clamp(setting.PlatinumReferrals)
	setting.PlatinumPoints = clamp(setting.PlatinumPoints)
	return setting
}

// ValidatePointsProgramSetting 校验积分计划配置（阈值必须逐级递增）
func ValidatePointsProgramSetting(setting PointsProgramSetting) error {
	normalized := NormalizePointsProgramSetting(setting)
	if normalized.GoldReferrals < normalized.SilverReferrals ||
		normalized.PlatinumReferrals < normalized.GoldReferrals {
		return fmt.Errorf("%w: referral thresholds must be non-decreasing", ErrSettingInvalid)
	}
	if normalized.GoldPoints < normalized.SilverPoints ||
		normalized.PlatinumPoints < normalized.GoldPoints {
		return fmt.Errorf("%w: points thresholds must be non-decreasing", ErrSettingInvalid)
	}
	return nil
}

// PointsProgramSettingToMap 将积分计划配置转换为 settings 存储结构
func PointsProgramSettingToMap(setting PointsProgramSetting) map[string]interface{} {
	normalized := NormalizePointsProgramSetting(setting)
	return map[string]interface{}{
		"enabled":            normalized.Enabled,
		"silver_referrals":   normalized.SilverReferrals,
		"silver_points":      normalized.SilverPoints,
		"gold_referrals":     normalized.GoldReferrals,
		"gold_points":        normalized.GoldPoints,
		"platinum_referrals": normalized.PlatinumReferrals,
		"platinum_points":    normalized.PlatinumPoints,
	}
}

func pointsProgramSettingFromJSON(raw models.JSON, fallback PointsProgramSetting) PointsProgramSetting {
	result := fallback

	if enabledRaw, ok := raw["enabled"]; ok {
		result.Enabled = parseSettingBool(enabledRaw)
	}
	fields := map[string]*int64{
		"silver_referrals":   &result.SilverReferrals,
		"silver_points":      &result.SilverPoints,
		"gold_referrals":     &result.GoldReferrals,
		"gold_points":        &result.GoldPoints,
		"platinum_referrals": &result.PlatinumReferrals,
		"platinum_points":    &result.PlatinumPoints,
	}
	for key, target := range fields {
		if valueRaw, ok := raw[key]; ok {
			if parsed, err := parseSettingInt(valueRaw); err == nil {
				*target = parsed
			}
		}
	}

	return NormalizePointsProgramSetting(result)
}

// GetPointsProgramSetting 获取积分计划设置（优先 settings，空时回退默认）
func (s *SettingService) GetPointsProgramSetting() (PointsProgramSetting, error) {
	fallback := PointsProgramDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyPointsProgram)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return pointsProgramSettingFromJSON(value, fallback), nil
}

// UpdatePointsProgramSetting 更新积分计划设置
func (s *SettingService) UpdatePointsProgramSetting(setting PointsProgramSetting) (PointsProgramSetting, error) {
	normalized := NormalizePointsProgramSetting(setting)
	if err := ValidatePointsProgramSetting(normalized); err != nil {
		return PointsProgramDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyPointsProgram, PointsProgramSettingToMap(normalized)); err != nil {
		return PointsProgramDefaultSetting(), err
	}
	return normalized, nil
}
