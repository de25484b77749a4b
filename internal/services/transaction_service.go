package services

import (
	"context"
	"fmt"
	"log/slog"

	"getricher/internal/budget"
	"getricher/internal/core"
)

// TransactionService fetches one page of transactions on behalf of the
// pagination engine: credential lookup, API call, mapped result.
type TransactionService struct {
	api    budget.TransactionAPI
	tokens budget.TokenStore
}

func NewTransactionService(api budget.TransactionAPI, tokens budget.TokenStore) *TransactionService {
	return &TransactionService{
		api:    api,
		tokens: tokens,
	}
}

// FetchPage returns up to limit transactions of q starting at offset.
// Without a stored token it fails with budget.ErrNoAPIToken before any
// network call is made.
func (s *TransactionService) FetchPage(ctx context.Context, q core.TransactionQuery, limit, offset int) ([]core.Transaction, error) {
	token, ok := s.tokens.GetToken()
	if !ok {
		return nil, budget.ErrNoAPIToken
	}

	txs, err := s.api.FetchTransactions(ctx, token, budget.TransactionRequest{
		AccountID: q.AccountID,
		StartDate: q.Start,
		EndDate:   q.End,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch transactions at offset %d: %w", offset, err)
	}

	slog.DebugContext(ctx, "Fetched transaction page",
		"query", q.Key(),
		"offset", offset,
		"limit", limit,
		"count", len(txs))

	return txs, nil
}
