package lunchmoney

import "encoding/json"

// Response records for the Lunch Money v1 API. Optional fields are pointers so
// that absence on the wire is distinguishable from zero values.

type transactionsResponse struct {
	Transactions []transactionRecord `json:"transactions"`
	HasMore      *bool               `json:"has_more,omitempty"`
}

type plaidAccountsResponse struct {
	PlaidAccounts []accountRecord `json:"plaid_accounts"`
}

type transactionRecord struct {
	ID                int64   `json:"id"`
	Date              string  `json:"date"`
	Payee             string  `json:"payee"`
	Amount            string  `json:"amount"`
	Currency          string  `json:"currency"`
	ToBase            float64 `json:"to_base"`
	Notes             *string `json:"notes"`
	OriginalName      *string `json:"original_name"`
	CategoryID        *int64  `json:"category_id"`
	CategoryName      *string `json:"category_name"`
	CategoryGroupID   *int64  `json:"category_group_id"`
	CategoryGroupName *string `json:"category_group_name"`
	Status            string  `json:"status"`
	IsIncome          bool    `json:"is_income"`
	IsPending         bool    `json:"is_pending"`
	ExcludeFromBudget bool    `json:"exclude_from_budget"`
	ExcludeFromTotals bool    `json:"exclude_from_totals"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`

	RecurringID          *int64  `json:"recurring_id"`
	RecurringPayee       *string `json:"recurring_payee"`
	RecurringDescription *string `json:"recurring_description"`
	RecurringCadence     *string `json:"recurring_cadence"`
	RecurringGranularity *string `json:"recurring_granularity"`
	RecurringQuantity    *int    `json:"recurring_quantity"`
	RecurringType        *string `json:"recurring_type"`
	RecurringAmount      *string `json:"recurring_amount"`
	RecurringCurrency    *string `json:"recurring_currency"`

	ParentID    *int64 `json:"parent_id"`
	HasChildren bool   `json:"has_children"`
	GroupID     *int64 `json:"group_id"`
	IsGroup     bool   `json:"is_group"`

	AssetID              *int64  `json:"asset_id"`
	AssetInstitutionName *string `json:"asset_institution_name"`
	AssetName            *string `json:"asset_name"`
	AssetDisplayName     *string `json:"asset_display_name"`
	AssetStatus          *string `json:"asset_status"`

	PlaidAccountID          *int64          `json:"plaid_account_id"`
	PlaidAccountName        *string         `json:"plaid_account_name"`
	PlaidAccountMask        *string         `json:"plaid_account_mask"`
	InstitutionName         *string         `json:"institution_name"`
	PlaidAccountDisplayName *string         `json:"plaid_account_display_name"`
	AccountDisplayName      *string         `json:"account_display_name"`
	PlaidMetadata           json.RawMessage `json:"plaid_metadata"`

	Source       *string     `json:"source"`
	DisplayName  *string     `json:"display_name"`
	DisplayNotes *string     `json:"display_notes"`
	ExternalID   *string     `json:"external_id"`
	Tags         []tagRecord `json:"tags"`
}

type tagRecord struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
}

type accountRecord struct {
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
