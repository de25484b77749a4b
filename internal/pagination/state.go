package pagination

import "getricher/internal/core"

// Phase is the lifecycle stage of a transaction session.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseLoading     Phase = "loading"
	PhaseLoaded      Phase = "loaded"
	PhaseLoadingMore Phase = "loading_more"
	PhaseError       Phase = "error"
)

// State is an immutable snapshot of a session. A new value is published on
// every transition; accessors never expose the backing slice.
type State struct {
	phase        Phase
	transactions []core.Transaction
	hasMore      bool
	message      string
	err          error
	query        core.TransactionQuery
	generation   uint64
}

func (s State) Phase() Phase { return s.phase }

// Transactions returns a copy of the accumulated transactions, newest first.
func (s State) Transactions() []core.Transaction {
	return append([]core.Transaction(nil), s.transactions...)
}

// Count is the number of accumulated transactions.
func (s State) Count() int { return len(s.transactions) }

// HasMore reports whether another page may exist. It stays true while the
// next page is loading.
func (s State) HasMore() bool {
	switch s.phase {
	case PhaseLoadingMore:
		return true
	case PhaseLoaded, PhaseError:
		return s.hasMore
	default:
		return false
	}
}

func (s State) IsLoading() bool     { return s.phase == PhaseLoading }
func (s State) IsLoadingMore() bool { return s.phase == PhaseLoadingMore }

// ErrorMessage is the display text of the last failure, empty outside the error phase.
func (s State) ErrorMessage() string { return s.message }

// Err is the underlying failure, nil outside the error phase.
func (s State) Err() error { return s.err }

// Query is the request the state belongs to.
func (s State) Query() core.TransactionQuery { return s.query }

// Generation identifies the fresh fetch this state belongs to.
func (s State) Generation() uint64 { return s.generation }

// canLoadMore reports whether a load-more may start from this state. A failed
// load-more keeps its results and may be retried.
func (s State) canLoadMore() bool {
	switch s.phase {
	case PhaseLoaded:
		return s.hasMore
	case PhaseError:
		return s.hasMore && len(s.transactions) > 0
	default:
		return false
	}
}
