package composition

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"insureadmin/internal/catalog/models"
)

// maxFractionDigits bounds the decimals Format emits; values with at most this
// many decimals survive a Format/ParseLimit round trip exactly.
const maxFractionDigits = 6

var (
	printer       = message.NewPrinter(language.English)
	numericPrefix = regexp.MustCompile(`-?[0-9][0-9,]*(\.[0-9]+)?`)
)

// Format renders a limit for display: Amount as "$1,500", Percentage as
// "20%", Visits as "3 visits". Unknown limit types render as a grouped number.
func Format(value float64, limitType models.LimitType) string {
	return FormatIn(value, limitType, models.CurrencyUSD)
}

// FormatIn is Format for a policy priced in currency. Non-USD amounts carry
// the currency code instead of "$", e.g. "ZAR 1,500".
func FormatIn(value float64, limitType models.LimitType, currency models.Currency) string {
	lt, _ := models.ParseLimitType(string(limitType))
	switch lt {
	case models.LimitAmount:
		sign := ""
		if value < 0 {
			sign, value = "-", -value
		}
		if currency == "" || currency == models.CurrencyUSD {
			return sign + "$" + formatNumber(value)
		}
		return sign + string(currency) + " " + formatNumber(value)
	case models.LimitPercentage:
		return formatNumber(value) + "%"
	case models.LimitVisits:
		if value == 1 {
			return "1 visit"
		}
		return formatNumber(value) + " visits"
	default:
		return formatNumber(value)
	}
}

// ParseLimit extracts the numeric portion of a formatted limit, ignoring
// currency markers, grouping separators and unit suffixes.
func ParseLimit(s string) (float64, error) {
	match := numericPrefix.FindString(s)
	if match == "" {
		return 0, errors.New("no numeric value in limit")
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, err
	}
	if strings.Contains(s, "-$") || strings.HasPrefix(strings.TrimSpace(s), "-") {
		if v > 0 {
			v = -v
		}
	}
	return v, nil
}

func formatNumber(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(maxFractionDigits)))
}
