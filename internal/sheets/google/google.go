package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"getricher/internal/core"
	ports "getricher/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the base report sheet name; the report year is prefixed.
const DefaultSheetName = "Vendors"

var reportHeader = []any{"Generated", "Start", "End", "Account", "Vendor", "Total", "Transactions"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

// Ensure interface conformance
var _ ports.VendorReportWriter = (*Client)(nil)

// New creates a Sheets client authenticated with service account credentials
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetBase string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheetBase), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetBase string) *Client {
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase}
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WriteVendorReport appends one row per vendor below the existing rows of the
// report sheet. A header row is written first when the sheet is empty.
func (c *Client) WriteVendorReport(ctx context.Context, r core.VendorReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(r.Vendors) == 0 {
		slog.InfoContext(ctx, "Vendor report is empty, nothing to export", "query_key", r.Query.Key())
		return "", nil
	}

	sheet := yearPrefixedName(c.sheetBase, r.GeneratedAt.Year())
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, a1(sheet, "A:A")).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", sheet, err)
	}

	rows := vendorRows(r)
	if len(resp.Values) == 0 {
		rows = append([][]any{reportHeader}, rows...)
	}
	first := len(resp.Values) + 1
	last := first + len(rows) - 1
	ref := a1(sheet, fmt.Sprintf("A%d:G%d", first, last))

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", ref, err)
	}

	slog.InfoContext(ctx, "Vendor report exported",
		"sheet", sheet,
		"range", ref,
		"vendors", len(r.Vendors))
	return ref, nil
}

func vendorRows(r core.VendorReport) [][]any {
	account := "all"
	if r.Query.AccountID != nil {
		account = strconv.FormatInt(*r.Query.AccountID, 10)
	}
	generated := r.GeneratedAt.Format(time.DateTime)
	start := r.Query.Start.Format(core.DateLayout)
	end := r.Query.End.Format(core.DateLayout)

	rows := make([][]any, 0, len(r.Vendors))
	for _, v := range r.Vendors {
		total, _ := strconv.ParseFloat(strconv.FormatFloat(v.TotalAmount, 'f', 2, 64), 64)
		rows = append(rows, []any{generated, start, end, account, v.Vendor, total, v.TransactionCount})
	}
	return rows
}

func a1(sheet, rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), rng)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
