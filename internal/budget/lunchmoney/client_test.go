package lunchmoney

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"getricher/internal/budget"
)

const transactionsBody = `{
  "transactions": [
    {
      "id": 901,
      "date": "2025-03-02",
      "payee": "Whole Foods Market",
      "amount": "85.1200",
      "currency": "usd",
      "to_base": 85.12,
      "notes": null,
      "original_name": "WHOLEFDS #123",
      "category_id": 7,
      "category_name": "Groceries",
      "category_group_id": 2,
      "category_group_name": "Food",
      "status": "cleared",
      "is_income": false,
      "is_pending": false,
      "exclude_from_budget": false,
      "exclude_from_totals": false,
      "created_at": "2025-03-02T10:00:00Z",
      "updated_at": "2025-03-02T10:00:00Z",
      "recurring_id": null,
      "parent_id": null,
      "has_children": false,
      "group_id": null,
      "is_group": false,
      "asset_id": null,
      "plaid_account_id": 2,
      "plaid_account_name": "Gold Card",
      "plaid_account_mask": "1008",
      "institution_name": "American Express",
      "plaid_account_display_name": "Amex Gold",
      "plaid_metadata": {"merchant_name": "Whole Foods"},
      "source": "plaid",
      "display_name": "Whole Foods Market",
      "tags": [{"id": 1, "name": "food"}, {"id": 1, "name": "food"}, {"id": 3, "name": "weekly"}]
    },
    {
      "id": 902,
      "date": "2025-03-01",
      "payee": "Netflix",
      "amount": "15.4900",
      "currency": "usd",
      "to_base": 15.49,
      "status": "cleared",
      "is_income": false,
      "is_pending": true,
      "exclude_from_budget": false,
      "exclude_from_totals": false,
      "created_at": "2025-03-01T10:00:00Z",
      "updated_at": "2025-03-01T10:00:00Z",
      "recurring_id": 44,
      "recurring_payee": "Netflix",
      "recurring_cadence": "monthly",
      "recurring_quantity": 1,
      "recurring_amount": "15.49",
      "has_children": false,
      "is_group": false,
      "tags": null
    }
  ]
}`

func TestFetchTransactions_RequestEncoding(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(transactionsBody))
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/v1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	account := int64(2)
	txs, err := c.FetchTransactions(context.Background(), "secret", budget.TransactionRequest{
		AccountID: &account,
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 18, 0, 0, 0, time.UTC),
		Limit:     200,
		Offset:    400,
	})
	if err != nil {
		t.Fatalf("FetchTransactions: %v", err)
	}

	if gotPath != "/v1/transactions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected authorization %q", gotAuth)
	}
	want := map[string]string{
		"start_date":       "2025-03-01",
		"end_date":         "2025-03-31",
		"limit":            "200",
		"offset":           "400",
		"plaid_account_id": "2",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Fatalf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
	if len(gotQuery) != len(want) {
		t.Fatalf("unexpected query params %v", gotQuery)
	}

	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
}

func TestFetchTransactions_OmitsAccountWhenUnset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["plaid_account_id"]; ok {
			t.Errorf("plaid_account_id should be absent")
		}
		_, _ = w.Write([]byte(`{"transactions": []}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	txs, err := c.FetchTransactions(context.Background(), "t", budget.TransactionRequest{
		StartDate: time.Now(), EndDate: time.Now(), Limit: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected empty page, got %d", len(txs))
	}
}

func TestFetchTransactions_Mapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(transactionsBody))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	txs, err := c.FetchTransactions(context.Background(), "t", budget.TransactionRequest{
		StartDate: time.Now(), EndDate: time.Now(), Limit: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wf := txs[0]
	if wf.ID != 901 || wf.Amount != "85.1200" || wf.ToBase != 85.12 || wf.Currency != "usd" {
		t.Fatalf("unexpected core fields %+v", wf)
	}
	if wf.Category == nil || wf.Category.Name != "Groceries" || wf.Category.GroupName != "Food" {
		t.Fatalf("unexpected category %+v", wf.Category)
	}
	if wf.LinkedAccount == nil || wf.LinkedAccount.ID != 2 || wf.LinkedAccount.DisplayName != "Amex Gold" {
		t.Fatalf("unexpected linked account %+v", wf.LinkedAccount)
	}
	if wf.Recurring != nil || wf.Asset != nil {
		t.Fatalf("expected absent recurring and asset blocks")
	}
	if len(wf.Tags) != 2 || *wf.Tags[0].ID != 1 || *wf.Tags[1].ID != 3 {
		t.Fatalf("expected de-duplicated tags in order, got %+v", wf.Tags)
	}
	if wf.PlaidMetadata != `{"merchant_name": "Whole Foods"}` {
		t.Fatalf("unexpected plaid metadata %q", wf.PlaidMetadata)
	}

	nf := txs[1]
	if nf.Recurring == nil || nf.Recurring.ID != 44 || nf.Recurring.Cadence != "monthly" {
		t.Fatalf("unexpected recurring %+v", nf.Recurring)
	}
	if nf.Recurring.Quantity == nil || *nf.Recurring.Quantity != 1 {
		t.Fatalf("unexpected recurring quantity")
	}
	if !nf.IsPending || nf.Category != nil || nf.LinkedAccount != nil || nf.Tags != nil {
		t.Fatalf("unexpected optional fields %+v", nf)
	}
}

func TestFetchTransactions_Errors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   "oops",
			checkFn: func(t *testing.T, err error) {
				var se *budget.ServerError
				if !errors.As(err, &se) || se.StatusCode != 500 || se.Body != "oops" {
					t.Fatalf("expected ServerError 500, got %v", err)
				}
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":"Access token does not exist."}`,
			checkFn: func(t *testing.T, err error) {
				var se *budget.ServerError
				if !errors.As(err, &se) || se.StatusCode != 401 {
					t.Fatalf("expected ServerError 401, got %v", err)
				}
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"transactions": [{"id": "not-a-number"}]}`,
			checkFn: func(t *testing.T, err error) {
				var de *budget.DecodeError
				if !errors.As(err, &de) {
					t.Fatalf("expected DecodeError, got %v", err)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, _ := New(srv.URL)
			_, err := c.FetchTransactions(context.Background(), "t", budget.TransactionRequest{
				StartDate: time.Now(), EndDate: time.Now(), Limit: 1,
			})
			tc.checkFn(t, err)
		})
	}
}

func TestFetchTransactions_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(url, WithTimeout(2*time.Second))
	_, err := c.FetchTransactions(context.Background(), "t", budget.TransactionRequest{
		StartDate: time.Now(), EndDate: time.Now(), Limit: 1,
	})
	if !errors.Is(err, budget.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestFetchAccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plaid_accounts" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer abc" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"plaid_accounts": [
			{"id": 1, "name": "Checking", "display_name": "Chase Checking", "type": "depository",
			 "subtype": "checking", "mask": "4521", "institution_name": "Chase", "status": "active",
			 "balance": "4235.6700", "currency": "usd"}
		]}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	accounts, err := c.FetchAccounts(context.Background(), "abc")
	if err != nil {
		t.Fatalf("FetchAccounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0].DisplayName != "Chase Checking" || accounts[0].Balance != "4235.6700" {
		t.Fatalf("unexpected accounts %+v", accounts)
	}
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"not a url", "://missing-scheme", "/relative/path"} {
		if _, err := New(raw); !errors.Is(err, budget.ErrInvalidURL) {
			t.Fatalf("New(%q): expected ErrInvalidURL, got %v", raw, err)
		}
	}
}

func TestRateLimitRespectsContext(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"plaid_accounts": []}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, WithRateLimit(0.001, 1))
	if _, err := c.FetchAccounts(context.Background(), "t"); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.FetchAccounts(ctx, "t"); !errors.Is(err, budget.ErrInvalidResponse) {
		t.Fatalf("expected limiter wait failure, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", calls)
	}
}
