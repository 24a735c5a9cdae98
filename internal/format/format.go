// Package format holds the display-string conversions shared by every
// analysis. All helpers are null-safe: a nil input renders as an
// explicit placeholder, never as zero.
package format

import (
	"fmt"
	"strconv"
	"strings"
)

// Lift formats an uplift as a signed percentage: "+12.3%" or "-4.1%".
// Nil renders as an em dash.
func Lift(lift *float64) string {
	if lift == nil {
		return "—"
	}
	sign := ""
	if *lift > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%%", sign, *lift*100)
}

// Percent formats a 0-1 value as a whole percentage: "82%".
func Percent(value *float64) string {
	if value == nil {
		return "—"
	}
	return fmt.Sprintf("%.0f%%", *value*100)
}

// Confidence formats probability-to-beat-baseline; nil means the
// platform has not accumulated enough data yet.
func Confidence(p2bb *float64) string {
	if p2bb == nil {
		return "Low data"
	}
	return fmt.Sprintf("%.0f%%", *p2bb*100)
}

// Currency formats a dollar amount: "$12.34", "$1,234" or "$1.2M".
// The sign stays attached to the magnitude: "$-1,234".
func Currency(amount float64) string {
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("$%.1fM", amount/1_000_000)
	case abs >= 1_000:
		return "$" + groupThousands(fmt.Sprintf("%.0f", amount))
	default:
		return fmt.Sprintf("$%.2f", amount)
	}
}

// Number formats an integer with thousands separators: "45,000".
func Number(n int64) string {
	return groupThousands(strconv.FormatInt(n, 10))
}

// groupThousands inserts commas into a plain integer string, keeping a
// leading minus sign intact.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	out := b.String()
	if neg {
		return "-" + out
	}
	return out
}

// Runtime renders a day count as "< 1 day", "1 day" or "N days".
func Runtime(days int) string {
	switch days {
	case 0:
		return "< 1 day"
	case 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", days)
	}
}
