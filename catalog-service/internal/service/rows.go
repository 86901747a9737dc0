package service

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fjod/fitcoach/catalog-service/internal/domain"
	"github.com/fjod/fitcoach/catalog-service/internal/repository"
	"github.com/shopspring/decimal"
)

func toProduct(row repository.Row) domain.Product {
	return domain.Product{
		ID:          str(row["id"]),
		Title:       str(row["title"]),
		Description: str(row["description"]),
		Category:    domain.Category(str(row["category"])),
		Price:       dec(row["price"]),
		Images:      domain.DecodeFeatures(row["images"]),
		Sizes:       domain.DecodeFeatures(row["sizes"]),
		Colors:      domain.DecodeFeatures(row["colors"]),
		Status:      statusOrActive(row["status"]),
	}
}

func toMembership(row repository.Row) domain.Membership {
	return domain.Membership{
		ID:           str(row["id"]),
		Name:         str(row["name"]),
		Description:  str(row["description"]),
		Features:     domain.DecodeFeatures(row["features"]),
		PriceMonthly: dec(row["price_monthly"]),
		PriceYearly:  dec(row["price_yearly"]),
		Status:       statusOrActive(row["status"]),
		Popular:      boolean(row["popular"]),
		Duration:     str(row["duration"]),
		Level:        str(row["level"]),
		Details:      details(row["details"]),
	}
}

func toProgram(row repository.Row) domain.Program {
	return domain.Program{
		ID:            str(row["id"]),
		Title:         str(row["title"]),
		Description:   str(row["description"]),
		Price:         dec(row["price"]),
		DurationWeeks: int(integer(row["duration_weeks"])),
		Level:         str(row["level"]),
		Status:        statusOrActive(row["status"]),
	}
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func statusOrActive(v any) string {
	if s := str(v); s != "" {
		return s
	}
	return domain.StatusActive
}

func dec(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case float32:
		return decimal.NewFromFloat32(t)
	case int64:
		return decimal.NewFromInt(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func integer(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}

// boolean reads sqlite's 0/1 as well as native booleans.
func boolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return integer(v) != 0
	}
}

// details is stored as a JSON column in SQL and as a sub-document in
// mongo. An unreadable value is dropped.
func details(v any) *domain.MembershipDetails {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		raw = []byte(t)
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		raw = b
	default:
		return nil
	}

	var d domain.MembershipDetails
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil
	}
	return &d
}
