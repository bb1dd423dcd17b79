package sources

import (
	"regexp"
	"strconv"
	"strings"
)

// Field parsers for the Danawa sales feed. The feed publishes counts as
// "12,345대", shares as "17.7%", and deltas as "9118 697▲" / "6578 351▼"
// (base value followed by the signed change).

var digitsRegex = regexp.MustCompile(`\d+`)
var decimalRegex = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseUnits extracts the integer count from strings like "12,345대".
// Returns nil when the string carries no digits.
func ParseUnits(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	digits := digitsRegex.FindAllString(strings.ReplaceAll(s, ",", ""), -1)
	if len(digits) == 0 {
		return nil
	}
	n, err := strconv.Atoi(strings.Join(digits, ""))
	if err != nil {
		return nil
	}
	return &n
}

// ParseChangeField extracts the signed delta from a Danawa change column.
//
//	"9118 697▲" -> +697
//	"6578 351▼" -> -351
//	"0 9815▲"   -> +9815
//	"" or "-"   -> nil
func ParseChangeField(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}

	parts := strings.Fields(s)
	diff := parts[0]
	if len(parts) > 1 {
		// first field is the base value, second is the delta
		diff = parts[1]
	}

	sign := 1
	if strings.Contains(diff, "▼") {
		sign = -1
	}

	digits := digitsRegex.FindAllString(strings.ReplaceAll(diff, ",", ""), -1)
	if len(digits) == 0 {
		return nil
	}
	n, err := strconv.Atoi(strings.Join(digits, ""))
	if err != nil {
		return nil
	}
	n *= sign
	return &n
}

// ParseShare extracts the numeric percentage from strings like "17.7%".
func ParseShare(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	m := decimalRegex.FindString(s)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &f
}
