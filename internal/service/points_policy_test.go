package service

import (
	"testing"
	"time"

	"github.com/bionail-next/internal/models"

	"github.com/shopspring/decimal"
)

func moneyFromString(t *testing.T, raw string) models.Money {
	t.Helper()

	value, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("parse decimal %q failed: %v", raw, err)
	}
	return models.Money{Decimal: value}
}

func TestDecodePointsRuleFixed(t *testing.T) {
	config := &models.PointsConfig{PointsAmount: 100}

	rule, err := DecodePointsRule(config)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rule.Kind != PointsRuleKindFixed || rule.Fixed != 100 {
		t.Fatalf("want fixed 100 got kind=%s fixed=%d", rule.Kind, rule.Fixed)
	}
}

func TestDecodePointsRuleTieredOverridesFixed(t *testing.T) {
	config := &models.PointsConfig{
		PointsAmount:     100,
		TieredConfigJSON: `[{"min_value":"50","max_value":"100","points":400},{"min_value":"0","max_value":"50","points":200}]`,
	}

	rule, err := DecodePointsRule(config)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rule.Kind != PointsRuleKindTiered {
		t.Fatalf("tiered config should override fixed, got kind=%s", rule.Kind)
	}
	if len(rule.Brackets) != 2 || !rule.Brackets[0].MinValue.IsZero() {
		t.Fatalf("brackets should be sorted by min_value: %+v", rule.Brackets)
	}
}

func TestDecodePointsRuleInvalidJSON(t *testing.T) {
	config := &models.PointsConfig{TieredConfigJSON: `{"not":"an array"`}
	if _, err := DecodePointsRule(config); err == nil {
		t.Fatalf("malformed tiered config should fail")
	}
}

func TestResolveTieredBrackets(t *testing.T) {
	config := &models.PointsConfig{
		TieredConfigJSON: `[{"min_value":"0","max_value":"50","points":200},{"min_value":"50","max_value":"100","points":400},{"min_value":"100","points":800}]`,
	}
	rule, err := DecodePointsRule(config)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	cases := []struct {
		value string
		want  int64
	}{
		{"0", 200},
		{"49.99", 200},
		{"50", 200}, // 边界金额落在包含它的最低档
		{"50.01", 400},
		{"100", 400},
		{"100.01", 800},
		{"9999", 800},
	}
	for _, tc := range cases {
		value, _ := decimal.NewFromString(tc.value)
		if got := rule.Resolve(value); got != tc.want {
			t.Fatalf("value %s want %d got %d", tc.value, tc.want, got)
		}
	}
}

func TestCalculatePointsGates(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	orderValue := decimal.NewFromInt(80)

	base := func() *models.PointsConfig {
		return &models.PointsConfig{PointsAmount: 150, IsActive: true}
	}

	if got := CalculatePoints(nil, orderValue, now); got != 0 {
		t.Fatalf("nil config want 0 got %d", got)
	}

	inactive := base()
	inactive.IsActive = false
	if got := CalculatePoints(inactive, orderValue, now); got != 0 {
		t.Fatalf("inactive config want 0 got %d", got)
	}

	notYet := base()
	notYet.ValidFrom = &future
	if got := CalculatePoints(notYet, orderValue, now); got != 0 {
		t.Fatalf("not yet valid want 0 got %d", got)
	}

	expired := base()
	expired.ValidUntil = &past
	if got := CalculatePoints(expired, orderValue, now); got != 0 {
		t.Fatalf("expired config want 0 got %d", got)
	}

	belowMin := base()
	belowMin.MinOrderValue = moneyFromString(t, "100")
	if got := CalculatePoints(belowMin, orderValue, now); got != 0 {
		t.Fatalf("below min order value want 0 got %d", got)
	}

	if got := CalculatePoints(base(), orderValue, now); got != 150 {
		t.Fatalf("active fixed config want 150 got %d", got)
	}
}

func TestCalculatePointsCapped(t *testing.T) {
	config := &models.PointsConfig{
		PointsAmount:            900,
		MaxPointsPerTransaction: 500,
		IsActive:                true,
	}
	if got := CalculatePoints(config, decimal.NewFromInt(10), time.Now()); got != 500 {
		t.Fatalf("points should cap at per-transaction limit, want 500 got %d", got)
	}
}

func TestCalculatePointsNeverNegative(t *testing.T) {
	config := &models.PointsConfig{PointsAmount: -20, IsActive: true}
	if got := CalculatePoints(config, decimal.NewFromInt(10), time.Now()); got != 0 {
		t.Fatalf("negative rule result must clamp to 0, got %d", got)
	}
}
