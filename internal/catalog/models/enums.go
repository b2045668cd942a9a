package models

import (
	"encoding/json"
	"strings"
)

// Currency is the closed set of currencies a policy may be priced in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyZWG Currency = "ZWG"
	CurrencyZAR Currency = "ZAR"
)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyZWG, CurrencyZAR:
		return true
	}
	return false
}

func (c Currency) String() string { return string(c) }

// Tier classifies a policy for presentation. Benefit richness by tier is a
// business convention and is not enforced.
type Tier string

const (
	TierGold   Tier = "Gold"
	TierSilver Tier = "Silver"
	TierBronze Tier = "Bronze"
)

func (t Tier) IsValid() bool {
	switch t {
	case TierGold, TierSilver, TierBronze:
		return true
	}
	return false
}

func (t Tier) String() string { return string(t) }

// LimitType decides how a linked limit value is interpreted and formatted.
// It never constrains the value numerically.
type LimitType string

const (
	LimitAmount     LimitType = "Amount"
	LimitPercentage LimitType = "Percentage"
	LimitVisits     LimitType = "Visits"
)

// ParseLimitType accepts the canonical names case-insensitively, plus the
// "Quantity" alias for Visits.
func ParseLimitType(s string) (LimitType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "amount":
		return LimitAmount, true
	case "percentage", "percent":
		return LimitPercentage, true
	case "visits", "visit", "quantity":
		return LimitVisits, true
	}
	return LimitType(s), false
}

func (l LimitType) IsValid() bool {
	_, ok := ParseLimitType(string(l))
	return ok
}

func (l LimitType) String() string { return string(l) }

// UnmarshalJSON normalizes aliases. Unknown names are kept verbatim so one
// odd benefit does not blank the whole catalog; they format as plain numbers.
func (l *LimitType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l, _ = ParseLimitType(raw)
	return nil
}
