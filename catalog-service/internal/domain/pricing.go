package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Interval string

const (
	Monthly Interval = "monthly"
	Yearly  Interval = "yearly"
)

func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case Monthly, Yearly:
		return Interval(s), nil
	case "":
		return Monthly, nil
	}
	return "", fmt.Errorf("unknown billing interval %q", s)
}

func (m *Membership) PriceFor(i Interval) decimal.Decimal {
	if i == Yearly {
		return m.PriceYearly
	}
	return m.PriceMonthly
}

// YearlySavings is twelve monthly payments minus the yearly price. It is
// zero when the yearly plan costs the same or more.
func (m *Membership) YearlySavings() decimal.Decimal {
	diff := m.PriceMonthly.Mul(decimal.NewFromInt(12)).Sub(m.PriceYearly)
	if !diff.IsPositive() {
		return decimal.Zero
	}
	return diff
}

// SavingsPercent is YearlySavings relative to twelve monthly payments,
// rounded to a whole percent.
func (m *Membership) SavingsPercent() int64 {
	annual := m.PriceMonthly.Mul(decimal.NewFromInt(12))
	if !annual.IsPositive() {
		return 0
	}
	return m.YearlySavings().Div(annual).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FeatureMatrix lays memberships side by side: one row per distinct
// feature, one column per membership.
type FeatureMatrix struct {
	Memberships []string     `json:"memberships"`
	Rows        []FeatureRow `json:"rows"`
}

type FeatureRow struct {
	Feature  string `json:"feature"`
	Included []bool `json:"included"`
}

// CompareFeatures builds the matrix with features in first-seen order.
func CompareFeatures(ms []Membership) FeatureMatrix {
	matrix := FeatureMatrix{
		Memberships: make([]string, 0, len(ms)),
		Rows:        []FeatureRow{},
	}
	index := map[string]int{}
	for col, m := range ms {
		matrix.Memberships = append(matrix.Memberships, m.Name)
		for _, f := range m.Features {
			row, ok := index[f]
			if !ok {
				row = len(matrix.Rows)
				index[f] = row
				matrix.Rows = append(matrix.Rows, FeatureRow{Feature: f, Included: make([]bool, len(ms))})
			}
			matrix.Rows[row].Included[col] = true
		}
	}
	return matrix
}
