package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bionail-next/internal/models"

	"github.com/shopspring/decimal"
)

// 积分规则类型常量
const (
	PointsRuleKindFixed  = "fixed"
	PointsRuleKindTiered = "tiered"
)

// PointsBracket 阶梯积分区间，MaxValue 为空表示无上限
type PointsBracket struct {
	MinValue decimal.Decimal  `json:"min_value"`
	MaxValue *decimal.Decimal `json:"max_value,omitempty"`
	Points   int64            `json:"points"`
}

// PointsRule 积分规则（固定 / 阶梯二选一）
type PointsRule struct {
	Kind     string
	Fixed    int64
	Brackets []PointsBracket
}

// DecodePointsRule 从积分规则配置解析规则，阶梯配置非空时优先
func DecodePointsRule(config *models.PointsConfig) (PointsRule, error) {
	if config == nil {
		return PointsRule{}, ErrPointsConfigInvalid
	}

	raw := strings.TrimSpace(config.TieredConfigJSON)
	if raw == "" || raw == "null" || raw == "[]" {
		return PointsRule{Kind: PointsRuleKindFixed, Fixed: config.PointsAmount}, nil
	}

	var brackets []PointsBracket
	if err := json.Unmarshal([]byte(raw), &brackets); err != nil {
		return PointsRule{}, fmt.Errorf("%w: %v", ErrPointsConfigInvalid, err)
	}
	if len(brackets) == 0 {
		return PointsRule{Kind: PointsRuleKindFixed, Fixed: config.PointsAmount}, nil
	}
	sort.Slice(brackets, func(i, j int) bool {
		return brackets[i].MinValue.LessThan(brackets[j].MinValue)
	})
	return PointsRule{Kind: PointsRuleKindTiered, Brackets: brackets}, nil
}

// Resolve 按订单金额解析应得积分
func (r PointsRule) Resolve(orderValue decimal.Decimal) int64 {
	if r.Kind != PointsRuleKindTiered {
		return r.Fixed
	}
	for _, bracket := range r.Brackets {
		if orderValue.LessThan(bracket.MinValue) {
			continue
		}
		if bracket.MaxValue != nil && orderValue.GreaterThan(*bracket.MaxValue) {
			continue
		}
		return bracket.Points
	}
	return 0
}

// CalculatePoints 计算动作应得积分。规则未命中、低于门槛金额均返回 0，结果永不为负。
func CalculatePoints(config *models.PointsConfig, orderValue decimal.Decimal, at time.Time) int64 {
	if config == nil || !config.IsActive {
		return 0
	}
	if config.ValidFrom != nil && at.Before(*config.ValidFrom) {
		return 0
	}
	if config.ValidUntil != nil && at.After(*config.ValidUntil) {
		return 0
	}
	if config.MinOrderValue.Decimal.GreaterThan(decimal.Zero) &&
		orderValue.LessThan(config.MinOrderValue.Decimal) {
		return 0
	}

	rule, err := DecodePointsRule(config)
	if err != nil {
		return 0
	}
	points := rule.Resolve(orderValue)
	if points <= 0 {
		return 0
	}
	if config.MaxPointsPerTransaction > 0 && points > config.MaxPointsPerTransaction {
		points = config.MaxPointsPerTransaction
	}
	return points
}
