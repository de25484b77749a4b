// Package http provides the JSON API over one pagination session.
//
// This file parses transaction query requests from JSON bodies and URL
// query strings.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"getricher/internal/amqp"
	"getricher/internal/core"
)

// maxBodyBytes caps request bodies; every accepted body is a small object.
const maxBodyBytes = 1 << 16

var (
	ErrMissingDate = errors.New("start_date and end_date must be given together")
	ErrInvalidBody = errors.New("invalid request body")
)

// QueryRequest selects transactions either by a named filter or by an
// explicit date range. An empty request means the default filter.
type QueryRequest struct {
	AccountID *int64 `json:"account_id,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Filter    string `json:"filter,omitempty"`
}

// TokenRequest is the body of PUT /api/settings/token.
type TokenRequest struct {
	Token string `json:"token"`
}

// decodeJSONBody decodes a single JSON object into dst. An empty body leaves
// dst untouched.
func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrInvalidBody)
	}
	return nil
}

// DecodeQueryRequest reads a QueryRequest from the request body.
func DecodeQueryRequest(r *http.Request) (QueryRequest, error) {
	var req QueryRequest
	if err := decodeJSONBody(r, &req); err != nil {
		return QueryRequest{}, err
	}
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.EndDate = strings.TrimSpace(req.EndDate)
	req.Filter = strings.TrimSpace(req.Filter)
	return req, nil
}

// QueryRequestFromValues reads a QueryRequest from URL query parameters.
func QueryRequestFromValues(v url.Values) (QueryRequest, error) {
	req := QueryRequest{
		StartDate: strings.TrimSpace(v.Get("start_date")),
		EndDate:   strings.TrimSpace(v.Get("end_date")),
		Filter:    strings.TrimSpace(v.Get("filter")),
	}
	if raw := strings.TrimSpace(v.Get("account_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return QueryRequest{}, fmt.Errorf("invalid account_id %q", raw)
		}
		req.AccountID = &id
	}
	return req, nil
}

func (req QueryRequest) hasRange() bool {
	return req.StartDate != "" || req.EndDate != ""
}

// Resolve turns the request into a validated query. The filter wins over
// dates; with neither, defaultFilter is applied at now.
func (req QueryRequest) Resolve(defaultFilter core.DateFilter, now time.Time) (core.TransactionQuery, error) {
	if req.Filter != "" {
		f, err := core.ParseDateFilter(req.Filter)
		if err != nil {
			return core.TransactionQuery{}, err
		}
		return f.Query(req.AccountID, now), nil
	}
	if !req.hasRange() {
		return defaultFilter.Query(req.AccountID, now), nil
	}
	if req.StartDate == "" || req.EndDate == "" {
		return core.TransactionQuery{}, ErrMissingDate
	}

	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		return core.TransactionQuery{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := core.ParseDate(req.EndDate)
	if err != nil {
		return core.TransactionQuery{}, fmt.Errorf("end_date: %w", err)
	}

	q := core.TransactionQuery{AccountID: req.AccountID, Start: start, End: end}
	if err := q.Validate(); err != nil {
		return core.TransactionQuery{}, err
	}
	return q, nil
}

// RefreshMessage builds the broker message for the request. Filters are
// left for the worker to resolve against its own clock.
func (req QueryRequest) RefreshMessage(defaultFilter core.DateFilter, now time.Time) (*amqp.RefreshRequestMessage, error) {
	if req.Filter == "" && !req.hasRange() {
		return amqp.NewFilterRefreshMessage(req.AccountID, defaultFilter), nil
	}
	if req.Filter != "" {
		f, err := core.ParseDateFilter(req.Filter)
		if err != nil {
			return nil, err
		}
		return amqp.NewFilterRefreshMessage(req.AccountID, f), nil
	}

	q, err := req.Resolve(defaultFilter, now)
	if err != nil {
		return nil, err
	}
	return amqp.NewRefreshRequestMessage(q), nil
}
