package normalizers

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// DefaultEURToUSDRate converts euro amounts into the reference currency (US dollars)
const DefaultEURToUSDRate = 1.2

// Currency is the currency detected in a raw price
type Currency string

const (
	CurrencyUSD     Currency = "USD"
	CurrencyEUR     Currency = "EUR"
	CurrencyUnknown Currency = ""
)

var (
	reEuro        = regexp.MustCompile(`(?i)€|\bEUR\b`)
	reDollar      = regexp.MustCompile(`(?i)\$|\bUSD\b`)
	reCurrencyTag = regexp.MustCompile(`(?i)€|\$|\bEUR\b|\bUSD\b`)
	reNonNumeric  = regexp.MustCompile(`[^\d.\-]`)
)

// PriceText renders a raw price as text. Character-code sequences are decoded; numbers use
// the shortest representation that round-trips.
func PriceText(raw models.RawPrice) string {
	switch raw.Kind {
	case models.RawPriceNumber:
		if math.IsNaN(raw.Number) || math.IsInf(raw.Number, 0) {
			return ""
		}
		return strconv.FormatFloat(raw.Number, 'f', -1, 64)
	case models.RawPriceText:
		return raw.Text
	case models.RawPriceCodes:
		var b strings.Builder
		for _, code := range raw.Codes {
			if code < 0 || code > utf8.MaxRune {
				b.WriteRune(utf8.RuneError)
				continue
			}
			b.WriteRune(rune(code))
		}
		return b.String()
	}
	return ""
}

// DetectCurrency returns EUR only when the text is unambiguously in euros.
// Mixed or missing markers fall back to the non-euro path.
func DetectCurrency(s string) Currency {
	isEUR := reEuro.MatchString(s)
	isUSD := reDollar.MatchString(s)
	switch {
	case isEUR && !isUSD:
		return CurrencyEUR
	case isUSD && !isEUR:
		return CurrencyUSD
	}
	return CurrencyUnknown
}

// CleanPriceText turns a price string into something a float parser can read:
// cent markers and commas become decimal points, currency tags and every other
// non-numeric character are stripped.
func CleanPriceText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "¢", ".")
	s = strings.ReplaceAll(s, ",", ".")
	s = reCurrencyTag.ReplaceAllString(s, "")
	return reNonNumeric.ReplaceAllString(s, "")
}

// NormalizePrice converts a raw price into the reference currency using the default rate
func NormalizePrice(raw models.RawPrice) float64 {
	return NormalizePriceWithRate(raw, DefaultEURToUSDRate)
}

// NormalizePriceWithRate converts a raw price into the reference currency.
// Malformed prices are 0.0; this never fails.
func NormalizePriceWithRate(raw models.RawPrice, eurRate float64) float64 {
	text := PriceText(raw)
	if text == "" {
		return 0
	}

	value, err := strconv.ParseFloat(CleanPriceText(text), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}

	if DetectCurrency(text) == CurrencyEUR {
		return value * eurRate
	}
	return value
}
