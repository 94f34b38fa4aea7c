package present

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DateLayout is the day/month/year layout shown in popups.
const DateLayout = "02/01/2006"

// NoValue is shown in place of a metric that cannot be computed.
const NoValue = "-"

var printer = message.NewPrinter(language.Greek)

// FormatMoney rounds to whole euros, ties to even, and groups thousands with
// dots: 120.000€.
func FormatMoney(d decimal.Decimal) string {
	return printer.Sprintf("%d", d.RoundBank(0).IntPart()) + "€"
}

// FormatMeanCapital renders the mean capital metric, or NoValue when undefined.
func FormatMeanCapital(mean decimal.Decimal, ok bool) string {
	if !ok {
		return NoValue
	}
	return FormatMoney(mean)
}

// FormatDate renders t as day/month/year.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
