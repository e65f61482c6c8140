package sales

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatReceipt renders a plain-text receipt with locale-aware number
// formatting. The caller picks the language tag; money amounts are printed
// with two decimal places and the locale's grouping separators.
func FormatReceipt(s Sale, tag language.Tag) string {
	p := message.NewPrinter(tag)
	money := func(v float64) string {
		return p.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sale %s\n", s.ID)
	fmt.Fprintf(&b, "%s\n", s.CreatedAt.Format("2006-01-02 15:04"))
	b.WriteString(strings.Repeat("-", 32) + "\n")
	for _, item := range s.Items {
		fmt.Fprintf(&b, "%s x%d @ %s", item.Name, item.Quantity, money(item.UnitPrice))
		if item.Discount != 0 {
			fmt.Fprintf(&b, " (-%s)", money(item.Discount))
		}
		fmt.Fprintf(&b, "  %s\n", money(item.LineTotal()))
	}
	b.WriteString(strings.Repeat("-", 32) + "\n")
	if s.Discount != 0 {
		fmt.Fprintf(&b, "Discount: -%s\n", money(s.Discount))
	}
	fmt.Fprintf(&b, "Subtotal: %s\n", money(s.Subtotal()))
	fmt.Fprintf(&b, "Tax (%s%%): %s\n", p.Sprint(number.Decimal(s.TaxRatePercent)), money(s.Tax()))
	fmt.Fprintf(&b, "Total: %s\n", money(s.Total()))
	if s.CashPaid != 0 {
		fmt.Fprintf(&b, "Cash: %s\n", money(s.CashPaid))
	}
	if s.CardPaid != 0 {
		fmt.Fprintf(&b, "Card: %s\n", money(s.CardPaid))
	}
	if s.MobileMoneyPaid != 0 {
		fmt.Fprintf(&b, "Mobile money: %s\n", money(s.MobileMoneyPaid))
	}
	fmt.Fprintf(&b, "Paid: %s\n", money(s.PaidTotal()))
	return b.String()
}
