package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TransactionQuery selects transactions for one account (or all accounts)
// within an inclusive date range.
type TransactionQuery struct {
	AccountID *int64    `json:"account_id,omitempty"`
	Start     time.Time `json:"start_date"`
	End       time.Time `json:"end_date"`
}

// Validate checks the date range.
func (q TransactionQuery) Validate() error {
	if q.Start.IsZero() || q.End.IsZero() {
		return ErrInvalidDate
	}
	if dateOnly(q.Start).After(dateOnly(q.End)) {
		return ErrInvalidDateRange
	}
	return nil
}

// Key identifies the query for caches and snapshots.
func (q TransactionQuery) Key() string {
	account := "all"
	if q.AccountID != nil {
		account = strconv.FormatInt(*q.AccountID, 10)
	}
	return fmt.Sprintf("account=%s;start=%s;end=%s",
		account, q.Start.Format(DateLayout), q.End.Format(DateLayout))
}

// Contains reports whether the transaction date falls inside the range.
func (q TransactionQuery) Contains(tx Transaction) bool {
	d := tx.Date
	return d >= q.Start.Format(DateLayout) && d <= q.End.Format(DateLayout)
}

// DateFilter is a named, relative date range.
type DateFilter string

const (
	FilterWeek  DateFilter = "week"
	FilterMonth DateFilter = "month"
	FilterYear  DateFilter = "year"
	FilterAll   DateFilter = "all"
)

// DateFilters lists every filter in display order.
func DateFilters() []DateFilter {
	return []DateFilter{FilterWeek, FilterMonth, FilterYear, FilterAll}
}

// ParseDateFilter accepts a filter name, case-insensitively.
func ParseDateFilter(s string) (DateFilter, error) {
	f := DateFilter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FilterWeek, FilterMonth, FilterYear, FilterAll:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

// Range returns the filter's window ending at now. Weeks start on Sunday;
// "all" reaches back two years.
func (f DateFilter) Range(now time.Time) (time.Time, time.Time) {
	today := dateOnly(now)
	switch f {
	case FilterWeek:
		return today.AddDate(0, 0, -int(today.Weekday())), now
	case FilterMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	case FilterYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), now
	default:
		return now.AddDate(-2, 0, 0), now
	}
}

// Query builds a TransactionQuery for the filter.
func (f DateFilter) Query(accountID *int64, now time.Time) TransactionQuery {
	start, end := f.Range(now)
	return TransactionQuery{AccountID: accountID, Start: start, End: end}
}

// ParseDate parses a yyyy-mm-dd string.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
