// Package memory provides an in-process budget.TransactionAPI that serves
// generated demo data. Generated sets are memoised in an injected cache so
// repeated page requests see the same transactions.
package memory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"getricher/internal/budget"
	"getricher/internal/cache"
	"getricher/internal/core"
)

// DemoToken is the credential reported by the demo token store.
const DemoToken = "demo-token"

// historyDays is how far back generated spending reaches.
const historyDays = 90

type vendor struct {
	payee     string
	category  string
	min, max  float64
	accountID int64
}

var vendors = []vendor{
	{"Whole Foods Market", "Groceries", 45.00, 185.00, 2},
	{"Trader Joe's", "Groceries", 30.00, 95.00, 2},
	{"Costco", "Groceries", 120.00, 320.00, 1},
	{"Shell Gas Station", "Gas & Fuel", 35.00, 72.00, 1},
	{"Chevron", "Gas & Fuel", 40.00, 68.00, 1},
	{"Netflix", "Subscriptions", 15.49, 15.49, 2},
	{"Spotify", "Subscriptions", 10.99, 10.99, 2},
	{"Apple iCloud", "Subscriptions", 2.99, 2.99, 2},
	{"Chipotle", "Restaurants", 12.00, 18.00, 2},
	{"Starbucks", "Coffee Shops", 5.50, 8.75, 2},
	{"Target", "Shopping", 25.00, 150.00, 2},
	{"Amazon", "Shopping", 15.00, 200.00, 2},
	{"Uber Eats", "Food Delivery", 18.00, 45.00, 2},
	{"PG&E", "Utilities", 85.00, 145.00, 1},
	{"Comcast Internet", "Utilities", 79.99, 79.99, 1},
	{"Planet Fitness", "Health & Fitness", 24.99, 24.99, 1},
	{"CVS Pharmacy", "Health", 8.00, 45.00, 2},
	{"Home Depot", "Home", 30.00, 250.00, 1},
	{"Olive Garden", "Restaurants", 35.00, 75.00, 2},
	{"Thai Basil", "Restaurants", 22.00, 48.00, 2},
}

var accounts = []core.Account{
	{ID: 1, Name: "Checking", DisplayName: "Chase Checking", Type: "depository", Subtype: "checking", Mask: "4521", InstitutionName: "Chase", Status: "active", Balance: "4235.67", Currency: "usd"},
	{ID: 2, Name: "Credit Card", DisplayName: "Amex Gold", Type: "credit", Subtype: "credit card", Mask: "1008", InstitutionName: "American Express", Status: "active", Balance: "1847.32", Currency: "usd"},
	{ID: 3, Name: "Savings", DisplayName: "Ally Savings", Type: "depository", Subtype: "savings", Mask: "7890", InstitutionName: "Ally Bank", Status: "active", Balance: "12450.00", Currency: "usd"},
}

// transactionsPerDay picks how many purchases land on a spending day.
var transactionsPerDay = []int{1, 1, 2, 2, 2, 3}

type Client struct {
	cache cache.Cache[[]core.Transaction]
	now   func() time.Time
	seed  uint64
}

// Ensure interface conformance
var _ budget.TransactionAPI = (*Client)(nil)

type Option func(*Client)

// WithClock fixes the reference date the demo history ends at.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithSeed changes the generator seed.
func WithSeed(seed uint64) Option {
	return func(c *Client) { c.seed = seed }
}

// New creates a demo client memoising generated data in store.
func New(store cache.Cache[[]core.Transaction], opts ...Option) *Client {
	c := &Client{
		cache: store,
		now:   time.Now,
		seed:  42,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTransactions serves the requested window of the generated history.
func (c *Client) FetchTransactions(ctx context.Context, _ string, req budget.TransactionRequest) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", budget.ErrInvalidResponse, err)
	}

	q := core.TransactionQuery{AccountID: req.AccountID, Start: req.StartDate, End: req.EndDate}
	var inRange []core.Transaction
	for _, tx := range c.transactions(req.AccountID) {
		if q.Contains(tx) {
			inRange = append(inRange, tx)
		}
	}

	return page(inRange, req.Offset, req.Limit), nil
}

// FetchAccounts returns the fixed demo accounts.
func (c *Client) FetchAccounts(ctx context.Context, _ string) ([]core.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", budget.ErrInvalidResponse, err)
	}
	return append([]core.Account(nil), accounts...), nil
}

func (c *Client) transactions(accountID *int64) []core.Transaction {
	ref := c.now()
	key := ref.Format(core.DateLayout) + "/all"
	if accountID != nil {
		key = ref.Format(core.DateLayout) + "/" + strconv.FormatInt(*accountID, 10)
	}

	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	all := generate(ref, c.seed)
	out := all
	if accountID != nil {
		out = make([]core.Transaction, 0, len(all))
		for _, tx := range all {
			if tx.LinkedAccount != nil && tx.LinkedAccount.ID == *accountID {
				out = append(out, tx)
			}
		}
	}

	c.cache.Set(key, out)
	return out
}

func page(txs []core.Transaction, offset, limit int) []core.Transaction {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(txs) || limit <= 0 {
		return []core.Transaction{}
	}
	end := offset + limit
	if end > len(txs) {
		end = len(txs)
	}
	return append([]core.Transaction(nil), txs[offset:end]...)
}

// generate builds the demo history ending the day before ref. The output is
// fully determined by the reference date and the seed.
func generate(ref time.Time, seed uint64) []core.Transaction {
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewPCG(seed, uint64(today.Unix())))
	stamp := today.Add(12 * time.Hour).Format(time.RFC3339)

	var out []core.Transaction
	id := int64(1000)

	for day := 1; day <= historyDays; day++ {
		// Two spending days out of five on average.
		if rng.IntN(5) >= 2 {
			continue
		}
		date := today.AddDate(0, 0, -day).Format(core.DateLayout)
		n := transactionsPerDay[rng.IntN(len(transactionsPerDay))]
		for range n {
			v := vendors[rng.IntN(len(vendors))]
			amount := decimal.NewFromFloat(v.min + rng.Float64()*(v.max-v.min)).Round(2)
			id++
			out = append(out, purchase(id, date, stamp, v, amount))
		}
	}

	for _, date := range paydays(today) {
		id++
		out = append(out, paycheck(id, date, stamp))
	}

	core.SortByDateDesc(out)
	return out
}

// paydays lists the 1st and 15th of each month inside the history window.
func paydays(today time.Time) []string {
	earliest := today.AddDate(0, 0, -historyDays)
	var out []string
	for m := 0; m <= 3; m++ {
		month := time.Date(today.Year(), today.Month()-time.Month(m), 1, 0, 0, 0, 0, time.UTC)
		for _, d := range []int{15, 1} {
			day := month.AddDate(0, 0, d-1)
			if day.Before(today) && !day.Before(earliest) {
				out = append(out, day.Format(core.DateLayout))
			}
		}
	}
	return out
}

func purchase(id int64, date, stamp string, v vendor, amount decimal.Decimal) core.Transaction {
	account := accountByID(v.accountID)
	return core.Transaction{
		ID:           id,
		Date:         date,
		Payee:        v.payee,
		Amount:       amount.StringFixed(2),
		Currency:     "usd",
		ToBase:       amount.InexactFloat64(),
		OriginalName: v.payee,
		Status:       "cleared",
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
		Source:       "plaid",
		DisplayName:  v.payee,
		Category:     &core.CategoryRef{ID: 1, Name: v.category},
		LinkedAccount: &core.LinkedAccount{
			ID:                 account.ID,
			DisplayName:        account.DisplayName,
			AccountDisplayName: account.DisplayName,
		},
	}
}

func paycheck(id int64, date, stamp string) core.Transaction {
	account := accountByID(1)
	return core.Transaction{
		ID:           id,
		Date:         date,
		Payee:        "Employer - Direct Deposit",
		Amount:       "3250.00",
		Currency:     "usd",
		ToBase:       3250.00,
		Notes:        "Bi-weekly paycheck",
		OriginalName: "EMPLOYER DIRECT DEP",
		Status:       "cleared",
		IsIncome:     true,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
		Source:       "plaid",
		DisplayName:  "Employer - Direct Deposit",
		Category:     &core.CategoryRef{ID: 2, Name: "Income"},
		Recurring: &core.RecurringSeries{
			ID:          1,
			Payee:       "Employer",
			Description: "Bi-weekly salary",
			Cadence:     "twice a month",
			Type:        "cleared",
			Amount:      "3250.00",
			Currency:    "usd",
		},
		LinkedAccount: &core.LinkedAccount{
			ID:                 account.ID,
			DisplayName:        account.DisplayName,
			AccountDisplayName: account.DisplayName,
		},
	}
}

func accountByID(id int64) core.Account {
	for _, a := range accounts {
		if a.ID == id {
			return a
		}
	}
	return core.Account{ID: id}
}
