// Package budget defines the ports to the remote budgeting API and the
// credential store, plus the error taxonomy shared by their adapters.
package budget

import (
	"context"
	"time"

	"getricher/internal/core"
)

// TransactionRequest is one page request against the transactions endpoint.
type TransactionRequest struct {
	AccountID *int64
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// Ports for outbound adapters.
type (
	// TransactionAPI reads transactions and accounts from the budgeting service.
	TransactionAPI interface {
		// FetchTransactions returns at most req.Limit transactions starting at req.Offset.
		FetchTransactions(ctx context.Context, token string, req TransactionRequest) ([]core.Transaction, error)
		FetchAccounts(ctx context.Context, token string) ([]core.Account, error)
	}

	// TokenStore yields the API credential. Reads are synchronous.
	TokenStore interface {
		GetToken() (string, bool)
	}

	// TokenWriter persists or removes the API credential.
	TokenWriter interface {
		SaveToken(token string) error
		DeleteToken() error
	}
)
