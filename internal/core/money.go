// Package core provides money parsing and formatting utilities.
//
// Amounts travel as decimal strings and are parsed with shopspring/decimal so
// that no precision is lost on the way to display.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountDecimal parses the transaction amount.
func (t Transaction) AmountDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(t.Amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", t.Amount, err)
	}
	return d, nil
}

// BalanceDecimal parses the account balance.
func (a Account) BalanceDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(a.Balance))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", a.Balance, err)
	}
	return d, nil
}

// FormatAmount renders an amount with its currency code, e.g. "USD 12.34".
// Unparsable amounts are rendered verbatim.
//
// Examples:
//
//	FormatAmount("12.3", "usd")   -> "USD 12.30"
//	FormatAmount("-4.5", "eur")   -> "EUR -4.50"
//	FormatAmount("n/a", "usd")    -> "USD n/a"
func FormatAmount(amount, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return strings.TrimSpace(code + " " + amount)
	}
	if code == "" {
		return d.StringFixed(2)
	}
	return code + " " + d.StringFixed(2)
}

// FormatFloat renders a base-currency float the same way FormatAmount does.
func FormatFloat(amount float64, currency string) string {
	return FormatAmount(decimal.NewFromFloat(amount).String(), currency)
}
