package lunchmoney

import (
	"bytes"

	"getricher/internal/core"
)

func toTransactions(records []transactionRecord) []core.Transaction {
	out := make([]core.Transaction, 0, len(records))
	for _, r := range records {
		out = append(out, toTransaction(r))
	}
	return out
}

func toTransaction(r transactionRecord) core.Transaction {
	tx := core.Transaction{
		ID:                r.ID,
		Date:              r.Date,
		Payee:             r.Payee,
		Amount:            r.Amount,
		Currency:          r.Currency,
		ToBase:            r.ToBase,
		Notes:             deref(r.Notes),
		OriginalName:      deref(r.OriginalName),
		Status:            r.Status,
		IsIncome:          r.IsIncome,
		IsPending:         r.IsPending,
		ExcludeFromBudget: r.ExcludeFromBudget,
		ExcludeFromTotals: r.ExcludeFromTotals,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		Source:            deref(r.Source),
		DisplayName:       deref(r.DisplayName),
		DisplayNotes:      deref(r.DisplayNotes),
		ExternalID:        deref(r.ExternalID),
		PlaidMetadata:     rawString(r.PlaidMetadata),
		Grouping: core.Grouping{
			ParentID:    r.ParentID,
			GroupID:     r.GroupID,
			HasChildren: r.HasChildren,
			IsGroup:     r.IsGroup,
		},
		Tags: uniqueTags(r.Tags),
	}

	if r.CategoryID != nil {
		tx.Category = &core.CategoryRef{
			ID:        *r.CategoryID,
			Name:      deref(r.CategoryName),
			GroupID:   r.CategoryGroupID,
			GroupName: deref(r.CategoryGroupName),
		}
	}

	if r.RecurringID != nil {
		tx.Recurring = &core.RecurringSeries{
			ID:          *r.RecurringID,
			Payee:       deref(r.RecurringPayee),
			Description: deref(r.RecurringDescription),
			Cadence:     deref(r.RecurringCadence),
			Granularity: deref(r.RecurringGranularity),
			Quantity:    r.RecurringQuantity,
			Type:        deref(r.RecurringType),
			Amount:      deref(r.RecurringAmount),
			Currency:    deref(r.RecurringCurrency),
		}
	}

	if r.AssetID != nil {
		tx.Asset = &core.AssetRef{
			ID:              *r.AssetID,
			InstitutionName: deref(r.AssetInstitutionName),
			Name:            deref(r.AssetName),
			DisplayName:     deref(r.AssetDisplayName),
			Status:          deref(r.AssetStatus),
		}
	}

	if r.PlaidAccountID != nil {
		tx.LinkedAccount = &core.LinkedAccount{
			ID:                 *r.PlaidAccountID,
			Name:               deref(r.PlaidAccountName),
			Mask:               deref(r.PlaidAccountMask),
			InstitutionName:    deref(r.InstitutionName),
			DisplayName:        deref(r.PlaidAccountDisplayName),
			AccountDisplayName: deref(r.AccountDisplayName),
		}
	}

	return tx
}

// uniqueTags drops repeated tag ids and keeps the first occurrence.
func uniqueTags(records []tagRecord) []core.Tag {
	if len(records) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(records))
	tags := make([]core.Tag, 0, len(records))
	for _, r := range records {
		if r.ID != nil {
			if _, dup := seen[*r.ID]; dup {
				continue
			}
			seen[*r.ID] = struct{}{}
		}
		tags = append(tags, core.Tag{ID: r.ID, Name: deref(r.Name)})
	}
	return tags
}

func toAccounts(records []accountRecord) []core.Account {
	out := make([]core.Account, 0, len(records))
	for _, r := range records {
		out = append(out, core.Account{
			ID:              r.ID,
			Name:            r.Name,
			DisplayName:     r.DisplayName,
			Type:            r.Type,
			Subtype:         r.Subtype,
			Mask:            r.Mask,
			InstitutionName: r.InstitutionName,
			Status:          r.Status,
			Balance:         r.Balance,
			Currency:        r.Currency,
		})
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func rawString(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}
