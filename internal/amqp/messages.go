package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"getricher/internal/core"

	"github.com/google/uuid"
)

var ErrMissingRange = errors.New("refresh request has neither a filter nor a date range")

// RefreshRequestMessage asks the worker to reload one transaction query.
// Either Filter or both dates are set; Filter wins when both are present.
type RefreshRequestMessage struct {
	RequestID string    `json:"request_id"`
	AccountID *int64    `json:"account_id,omitempty"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	Filter    string    `json:"filter,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRefreshRequestMessage creates a message for an explicit date range.
func NewRefreshRequestMessage(q core.TransactionQuery) *RefreshRequestMessage {
	return &RefreshRequestMessage{
		RequestID: uuid.NewString(),
		AccountID: q.AccountID,
		StartDate: q.Start.Format(core.DateLayout),
		EndDate:   q.End.Format(core.DateLayout),
		Timestamp: time.Now(),
	}
}

// NewFilterRefreshMessage creates a message resolved against the worker's clock.
func NewFilterRefreshMessage(accountID *int64, filter core.DateFilter) *RefreshRequestMessage {
	return &RefreshRequestMessage{
		RequestID: uuid.NewString(),
		AccountID: accountID,
		Filter:    string(filter),
		Timestamp: time.Now(),
	}
}

// Query resolves the message into a validated transaction query.
func (m *RefreshRequestMessage) Query(now time.Time) (core.TransactionQuery, error) {
	if m.Filter != "" {
		f, err := core.ParseDateFilter(m.Filter)
		if err != nil {
			return core.TransactionQuery{}, err
		}
		return f.Query(m.AccountID, now), nil
	}

	if m.StartDate == "" && m.EndDate == "" {
		return core.TransactionQuery{}, ErrMissingRange
	}

	start, err := core.ParseDate(m.StartDate)
	if err != nil {
		return core.TransactionQuery{}, fmt.Errorf("start date: %w", err)
	}
	end, err := core.ParseDate(m.EndDate)
	if err != nil {
		return core.TransactionQuery{}, fmt.Errorf("end date: %w", err)
	}

	q := core.TransactionQuery{AccountID: m.AccountID, Start: start, End: end}
	if err := q.Validate(); err != nil {
		return core.TransactionQuery{}, err
	}
	return q, nil
}

// ToJSON converts the message to JSON bytes
func (m *RefreshRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshRequestMessageFromJSON creates a message from JSON bytes
func RefreshRequestMessageFromJSON(data []byte) (*RefreshRequestMessage, error) {
	var msg RefreshRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
