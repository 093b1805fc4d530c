// utils/format.go
package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a smallest-unit amount with thousands separators for
// logs and archive summaries, e.g. 1250000 -> "1,250,000".
func FormatAmount(amount int64) string {
	return amountPrinter.Sprintf("%d", amount)
}
