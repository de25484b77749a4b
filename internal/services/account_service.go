package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"getricher/internal/budget"
	"getricher/internal/core"
)

// AccountSaver persists the latest account list.
type AccountSaver interface {
	SaveAccounts(ctx context.Context, accounts []core.Account) error
}

// AccountService lists linked accounts. Concurrent callers share a single
// upstream request.
type AccountService struct {
	api    budget.TransactionAPI
	tokens budget.TokenStore
	saver  AccountSaver
	group  singleflight.Group
}

// NewAccountService creates the service. saver may be nil.
func NewAccountService(api budget.TransactionAPI, tokens budget.TokenStore, saver AccountSaver) *AccountService {
	return &AccountService{
		api:    api,
		tokens: tokens,
		saver:  saver,
	}
}

// FetchAccounts returns accounts sorted by display name.
func (s *AccountService) FetchAccounts(ctx context.Context) ([]core.Account, error) {
	token, ok := s.tokens.GetToken()
	if !ok {
		return nil, budget.ErrNoAPIToken
	}

	v, err, shared := s.group.Do("accounts", func() (any, error) {
		accounts, err := s.api.FetchAccounts(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("fetch accounts: %w", err)
		}
		core.SortAccountsByDisplayName(accounts)

		if s.saver != nil {
			if err := s.saver.SaveAccounts(ctx, accounts); err != nil {
				slog.WarnContext(ctx, "Failed to store accounts", "error", err)
			}
		}
		return accounts, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		slog.DebugContext(ctx, "Shared in-flight accounts request")
	}
	return append([]core.Account(nil), v.([]core.Account)...), nil
}
