package model

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders a whole-dollar amount with thousands separators,
// e.g. 489000 -> "$489,000".
func FormatUSD(v float64) string {
	n := int64(math.Round(v))
	if n < 0 {
		return usPrinter.Sprintf("-$%d", -n)
	}
	return usPrinter.Sprintf("$%d", n)
}
