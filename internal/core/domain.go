package core

import (
	"errors"
	"sort"
	"time"
)

// DateLayout is the calendar date format used on the wire and in sort keys.
const DateLayout = "2006-01-02"

type (
	// Transaction is one ledger entry as reported by Lunch Money.
	// Values are never mutated after mapping.
	Transaction struct {
		ID           int64   `json:"id"`
		Date         string  `json:"date"`
		Payee        string  `json:"payee"`
		Amount       string  `json:"amount"`
		Currency     string  `json:"currency"`
		ToBase       float64 `json:"to_base"`
		Notes        string  `json:"notes,omitempty"`
		OriginalName string  `json:"original_name,omitempty"`
		Status       string  `json:"status,omitempty"`

		IsIncome          bool `json:"is_income"`
		IsPending         bool `json:"is_pending"`
		ExcludeFromBudget bool `json:"exclude_from_budget"`
		ExcludeFromTotals bool `json:"exclude_from_totals"`

		CreatedAt     string `json:"created_at,omitempty"`
		UpdatedAt     string `json:"updated_at,omitempty"`
		Source        string `json:"source,omitempty"`
		DisplayName   string `json:"display_name,omitempty"`
		DisplayNotes  string `json:"display_notes,omitempty"`
		ExternalID    string `json:"external_id,omitempty"`
		PlaidMetadata string `json:"plaid_metadata,omitempty"`

		Category      *CategoryRef     `json:"category,omitempty"`
		Recurring     *RecurringSeries `json:"recurring,omitempty"`
		Grouping      Grouping         `json:"grouping"`
		Asset         *AssetRef        `json:"asset,omitempty"`
		LinkedAccount *LinkedAccount   `json:"linked_account,omitempty"`
		Tags          []Tag            `json:"tags,omitempty"`
	}

	CategoryRef struct {
		ID        int64  `json:"id"`
		Name      string `json:"name,omitempty"`
		GroupID   *int64 `json:"group_id,omitempty"`
		GroupName string `json:"group_name,omitempty"`
	}

	RecurringSeries struct {
		ID          int64  `json:"id"`
		Payee       string `json:"payee,omitempty"`
		Description string `json:"description,omitempty"`
		Cadence     string `json:"cadence,omitempty"`
		Granularity string `json:"granularity,omitempty"`
		Quantity    *int   `json:"quantity,omitempty"`
		Type        string `json:"type,omitempty"`
		Amount      string `json:"amount,omitempty"`
		Currency    string `json:"currency,omitempty"`
	}

	// Grouping describes split and grouped transactions.
	Grouping struct {
		ParentID    *int64 `json:"parent_id,omitempty"`
		GroupID     *int64 `json:"group_id,omitempty"`
		HasChildren bool   `json:"has_children"`
		IsGroup     bool   `json:"is_group"`
	}

	AssetRef struct {
		ID              int64  `json:"id"`
		InstitutionName string `json:"institution_name,omitempty"`
		Name            string `json:"name,omitempty"`
		DisplayName     string `json:"display_name,omitempty"`
		Status          string `json:"status,omitempty"`
	}

	// LinkedAccount is the Plaid-synced account a transaction came from.
	LinkedAccount struct {
		ID                 int64  `json:"id"`
		Name               string `json:"name,omitempty"`
		Mask               string `json:"mask,omitempty"`
		InstitutionName    string `json:"institution_name,omitempty"`
		DisplayName        string `json:"display_name,omitempty"`
		AccountDisplayName string `json:"account_display_name,omitempty"`
	}

	Tag struct {
		ID   *int64 `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	}

	// Account is a Plaid-linked account; Balance keeps the decimal text.
	Account struct {
		ID              int64  `json:"id"`
		Name            string `json:"name"`
		DisplayName     string `json:"display_name"`
		Type            string `json:"type"`
		Subtype         string `json:"subtype"`
		Mask            string `json:"mask"`
		InstitutionName string `json:"institution_name"`
		Status          string `json:"status"`
		Balance         string `json:"balance"`
		Currency        string `json:"currency"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidDateRange = errors.New("start date after end date")
	ErrUnknownFilter    = errors.New("unknown date filter")
)

// Time parses the transaction date. The zero time is returned for malformed dates.
func (t Transaction) Time() time.Time {
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}

// SortByDateDesc orders transactions newest first. Equal dates keep their
// relative order, so earlier pages stay ahead of later ones on ties.
// ISO dates compare correctly as strings.
func SortByDateDesc(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date > txs[j].Date
	})
}

// SortAccountsByDisplayName orders accounts by display name, ascending.
func SortAccountsByDisplayName(accounts []Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].DisplayName < accounts[j].DisplayName
	})
}
