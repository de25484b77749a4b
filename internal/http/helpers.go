package http

import (
	"errors"
	"net/http"
	"time"

	"getricher/internal/budget"
	"getricher/internal/core"
	"getricher/internal/pagination"
	"getricher/internal/storage"
)

type queryDTO struct {
	AccountID *int64 `json:"account_id,omitempty"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Key       string `json:"key"`
}

type transactionDTO struct {
	core.Transaction
	FormattedAmount string `json:"formatted_amount"`
}

type stateResponse struct {
	Phase        pagination.Phase `json:"phase"`
	Query        *queryDTO        `json:"query,omitempty"`
	Transactions []transactionDTO `json:"transactions"`
	Count        int              `json:"count"`
	HasMore      bool             `json:"has_more"`
	Error        string           `json:"error,omitempty"`
	Generation   uint64           `json:"generation"`
}

type snapshotResponse struct {
	Query        *queryDTO        `json:"query"`
	Transactions []transactionDTO `json:"transactions"`
	Count        int              `json:"count"`
	HasMore      bool             `json:"has_more"`
	FetchedAt    time.Time        `json:"fetched_at"`
}

type vendorDTO struct {
	core.VendorSpending
	FormattedTotal string `json:"formatted_total"`
}

type vendorsResponse struct {
	Query          *queryDTO   `json:"query,omitempty"`
	Currency       string      `json:"currency,omitempty"`
	Vendors        []vendorDTO `json:"vendors"`
	Total          float64     `json:"total"`
	FormattedTotal string      `json:"formatted_total"`
}

type accountsResponse struct {
	Accounts []core.Account `json:"accounts"`
}

func newQueryDTO(q core.TransactionQuery) *queryDTO {
	if q.Start.IsZero() && q.End.IsZero() {
		return nil
	}
	return &queryDTO{
		AccountID: q.AccountID,
		StartDate: q.Start.Format(core.DateLayout),
		EndDate:   q.End.Format(core.DateLayout),
		Key:       q.Key(),
	}
}

func newTransactionDTOs(txs []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, len(txs))
	for i, tx := range txs {
		out[i] = transactionDTO{Transaction: tx, FormattedAmount: core.FormatAmount(tx.Amount, tx.Currency)}
	}
	return out
}

func newStateResponse(s pagination.State) stateResponse {
	txs := s.Transactions()
	return stateResponse{
		Phase:        s.Phase(),
		Query:        newQueryDTO(s.Query()),
		Transactions: newTransactionDTOs(txs),
		Count:        len(txs),
		HasMore:      s.HasMore(),
		Error:        s.ErrorMessage(),
		Generation:   s.Generation(),
	}
}

func newSnapshotResponse(snap storage.Snapshot, q core.TransactionQuery) snapshotResponse {
	return snapshotResponse{
		Query:        newQueryDTO(q),
		Transactions: newTransactionDTOs(snap.Transactions),
		Count:        len(snap.Transactions),
		HasMore:      snap.HasMore,
		FetchedAt:    snap.FetchedAt,
	}
}

func newVendorsResponse(s pagination.State) vendorsResponse {
	txs := s.Transactions()
	currency := core.SpendingCurrency(txs)
	vendors := core.AggregateVendorSpending(txs)

	out := vendorsResponse{
		Query:    newQueryDTO(s.Query()),
		Currency: currency,
		Vendors:  make([]vendorDTO, len(vendors)),
		Total:    core.TotalSpending(vendors),
	}
	for i, v := range vendors {
		out.Vendors[i] = vendorDTO{VendorSpending: v, FormattedTotal: core.FormatFloat(v.TotalAmount, currency)}
	}
	out.FormattedTotal = core.FormatFloat(out.Total, currency)
	return out
}

// statusForFetchError maps upstream failures onto the response status.
func statusForFetchError(err error) int {
	var serverErr *budget.ServerError
	switch {
	case errors.Is(err, budget.ErrNoAPIToken):
		return http.StatusUnauthorized
	case errors.As(err, &serverErr) && serverErr.StatusCode == http.StatusUnauthorized:
		return http.StatusUnauthorized
	case errors.As(err, &serverErr) && serverErr.StatusCode == http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}
