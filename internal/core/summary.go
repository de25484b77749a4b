package core

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VendorSpending is the spending total for one payee. ID is synthetic and
// regenerated on every aggregation.
type VendorSpending struct {
	ID               uuid.UUID `json:"id"`
	Vendor           string    `json:"vendor"`
	TotalAmount      float64   `json:"total_amount"`
	TransactionCount int       `json:"transaction_count"`
}

// VendorReport is a vendor breakdown for a query, ready for export.
type VendorReport struct {
	Query       TransactionQuery `json:"query"`
	GeneratedAt time.Time        `json:"generated_at"`
	Currency    string           `json:"currency"`
	Vendors     []VendorSpending `json:"vendors"`
}

// AggregateVendorSpending groups non-income transactions by exact payee and
// sums the absolute base-currency amounts. The result is ordered by total,
// largest first; ties keep the order in which payees were first seen.
func AggregateVendorSpending(txs []Transaction) []VendorSpending {
	index := make(map[string]int)
	out := make([]VendorSpending, 0)

	for _, tx := range txs {
		if tx.IsIncome {
			continue
		}
		i, ok := index[tx.Payee]
		if !ok {
			i = len(out)
			index[tx.Payee] = i
			out = append(out, VendorSpending{
				ID:     uuid.New(),
				Vendor: tx.Payee,
			})
		}
		out[i].TotalAmount += math.Abs(tx.ToBase)
		out[i].TransactionCount++
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalAmount > out[j].TotalAmount
	})
	return out
}

// TotalSpending sums the vendor totals.
func TotalSpending(vendors []VendorSpending) float64 {
	var total float64
	for _, v := range vendors {
		total += v.TotalAmount
	}
	return total
}

// SpendingCurrency is the currency shared by every non-income transaction,
// upper-cased. It is empty when currencies are mixed or nothing was spent.
func SpendingCurrency(txs []Transaction) string {
	currency := ""
	for _, tx := range txs {
		if tx.IsIncome {
			continue
		}
		c := strings.ToUpper(tx.Currency)
		if currency == "" {
			currency = c
		} else if c != currency {
			return ""
		}
	}
	return currency
}
