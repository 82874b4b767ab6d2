package totalreturn

import (
	"strconv"
	"strings"
)

// cashTickers are money-market funds and pending-cash placeholders that
// must never appear in per-symbol aggregates.
var cashTickers = map[string]struct{}{
	"SPAXX":            {},
	"FDRXX":            {},
	"VMFXX":            {},
	"SWVXX":            {},
	"SPRXX":            {},
	"SNVXX":            {},
	"FCASH":            {},
	"PENDING":          {},
	"PENDING ACTIVITY": {},
	"CASH":             {},
}

// NormalizeSymbol turns a raw symbol cell into a canonical ticker.
// Returns ok=false when the cell is empty, a cash/money-market code, or a
// SPAXX share-class variant, i.e. when the row is not a tradable security.
func NormalizeSymbol(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return "", false
	}
	if _, ok := cashTickers[s]; ok {
		return "", false
	}
	if strings.HasPrefix(s, "SPAXX") {
		return "", false
	}
	return s, true
}

// isCashLike is a secondary filter beyond symbol normalization: some
// cash-like rows carry a non-empty but still non-tradable symbol, and some
// only reveal themselves through the description.
func isCashLike(symbolRaw, desc string) bool {
	s := strings.ToUpper(strings.TrimSpace(symbolRaw))
	d := strings.ToUpper(strings.TrimSpace(desc))
	if s == "" && d == "" {
		return true
	}
	if strings.HasPrefix(s, "SPAXX") {
		return true
	}
	if _, ok := cashTickers[s]; ok {
		return true
	}
	if strings.Contains(d, "MONEY MARKET") || strings.Contains(d, "PENDING ACTIVITY") {
		return true
	}
	return false
}

var numberCleaner = strings.NewReplacer("$", "", ",", "", "%", "")

// toNumber coerces a raw tabular cell to a float. Brokerage exports are
// inconsistently formatted, so parsing is deliberately lenient: placeholder
// strings and anything unparsable become 0.0, currency/percent decoration is
// stripped, and accountant-style "(123.45)" reads as -123.45.
func toNumber(cell string) float64 {
	s := strings.TrimSpace(cell)
	switch s {
	case "", "nan", "None", "--":
		return 0
	}
	s = strings.TrimSpace(numberCleaner.Replace(s))
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		s = "-" + s[1:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

type actionClass int

const (
	actionOther actionClass = iota
	actionBuy
	actionSell
	actionDividend
)

// classifyAction buckets a free-text action label. Reinvestments count as
// buys. Anything unmatched (transfers, fees, interest) contributes to no
// aggregate bucket.
func classifyAction(action string) actionClass {
	// Collapse whitespace runs so "YOU  BOUGHT" still matches.
	normalized := strings.Join(strings.Fields(strings.ToUpper(action)), " ")
	switch {
	case strings.Contains(normalized, "YOU BOUGHT"), strings.Contains(normalized, "REINVESTMENT"):
		return actionBuy
	case strings.Contains(normalized, "YOU SOLD"):
		return actionSell
	case strings.Contains(normalized, "DIVIDEND RECEIVED"):
		return actionDividend
	default:
		return actionOther
	}
}
