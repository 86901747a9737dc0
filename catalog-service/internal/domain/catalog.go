package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryApparel    Category = "apparel"
	CategoryDigital    Category = "digital"
	CategoryMembership Category = "membership"
	CategoryProgram    Category = "program"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
	Sizes       []string        `json:"sizes,omitempty"`
	Colors      []string        `json:"colors,omitempty"`
	Status      string          `json:"status"`
}

type MembershipDetails struct {
	WhoIsItFor string   `json:"whoIsItFor,omitempty"`
	Notes      []string `json:"notes,omitempty"`
}

// Membership is a coaching tier. Monthly and yearly prices are set
// independently.
type Membership struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Features     []string           `json:"features"`
	PriceMonthly decimal.Decimal    `json:"price_monthly"`
	PriceYearly  decimal.Decimal    `json:"price_yearly"`
	Status       string             `json:"status"`
	Popular      bool               `json:"popular"`
	Duration     string             `json:"duration,omitempty"`
	Level        string             `json:"level,omitempty"`
	Details      *MembershipDetails `json:"details,omitempty"`
}

type Program struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	DurationWeeks int             `json:"durationWeeks"`
	Level         string          `json:"level,omitempty"`
	Status        string          `json:"status"`
}

func (m *Membership) IsActive() bool {
	return m.Status == StatusActive
}

// DecodeFeatures accepts a JSON array, a JSON string holding an array, or
// an already decoded slice. Anything else yields an empty list.
func DecodeFeatures(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, f := range v {
			s, ok := f.(string)
			if !ok {
				return []string{}
			}
			out = append(out, s)
		}
		return out
	case string:
		return decodeFeatureBytes([]byte(v))
	case []byte:
		return decodeFeatureBytes(v)
	default:
		return []string{}
	}
}

func decodeFeatureBytes(b []byte) []string {
	var out []string
	if err := json.Unmarshal(b, &out); err == nil {
		if out == nil {
			return []string{}
		}
		return out
	}
	// double encoded: "[\"a\",\"b\"]"
	var inner string
	if err := json.Unmarshal(b, &inner); err != nil {
		return []string{}
	}
	if err := json.Unmarshal([]byte(inner), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
