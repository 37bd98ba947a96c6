package export

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// Number formats v for people: grouped thousands, at most decimals
// fraction digits.
func Number(v float64, decimals int) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(decimals)))
}

// Percent renders a 0..100 percentage as "65.5%".
func Percent(v float64) string {
	return Number(v, 2) + "%"
}
