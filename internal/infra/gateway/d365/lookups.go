package d365

import (
	"context"
	"fmt"
	"sort"

	"github.com/nordicfin/relion-bridge/internal/dimension"
	"github.com/nordicfin/relion-bridge/internal/mapping"
)

const (
	accountMappingEntityPath = "RelionAccountMappings"
	taxGroupEntityPath       = "RelionTaxGroupMappings"
	itemTaxGroupEntityPath   = "RelionItemTaxGroupMappings"
	dimensionFormatPath      = "RelionDimensionFormats"
)

// LookupAccountMapping resolves the account mapping for a ledger account and
// IFRS tag. An empty result set is a legitimate not-found, not an error.
func (c *Client) LookupAccountMapping(ctx context.Context, accountNo, ifrsTag string) (*mapping.AccountMapping, bool, error) {
	filter := fmt.Sprintf("LedgerAccountNumber eq '%s' and IFRSCode eq '%s'",
		escapeODataString(accountNo), escapeODataString(ifrsTag))

	var rows []accountMappingEntity
	if err := c.queryValue(ctx, accountMappingEntityPath, filter, &rows); err != nil {
		return nil, false, fmt.Errorf("account mapping query failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	row := rows[0]
	return &mapping.AccountMapping{
		LedgerAccount:     row.LedgerAccountNumber,
		IFRSTag:           row.IFRSCode,
		MainAccount:       row.MainAccount,
		ExcludeFromImport: row.ExcludeFromImport == "Yes",
	}, true, nil
}

// LookupTaxGroup resolves the sales tax group for a booking type and posting
// group.
func (c *Client) LookupTaxGroup(ctx context.Context, bookingType mapping.BookingType, postingGroup string) (*mapping.TaxGroupMapping, bool, error) {
	filter := fmt.Sprintf("BookingType eq '%s' and PostingGroup eq '%s'",
		escapeODataString(string(bookingType)), escapeODataString(postingGroup))

	var rows []taxGroupMappingEntity
	if err := c.queryValue(ctx, taxGroupEntityPath, filter, &rows); err != nil {
		return nil, false, fmt.Errorf("tax group query failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	return &mapping.TaxGroupMapping{TaxGroup: rows[0].TaxGroup}, true, nil
}

// LookupItemTaxGroup resolves the tax code and item tax group for a VAT
// posting group pair.
func (c *Client) LookupItemTaxGroup(ctx context.Context, vatBusGroup, vatProdGroup string) (*mapping.ItemTaxGroupMapping, bool, error) {
	filter := fmt.Sprintf("VATBusPostingGroup eq '%s' and VATProdPostingGroup eq '%s'",
		escapeODataString(vatBusGroup), escapeODataString(vatProdGroup))

	var rows []itemTaxGroupMappingEntity
	if err := c.queryValue(ctx, itemTaxGroupEntityPath, filter, &rows); err != nil {
		return nil, false, fmt.Errorf("item tax group query failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	return &mapping.ItemTaxGroupMapping{
		TaxCode:      rows[0].TaxCode,
		ItemTaxGroup: rows[0].ItemTaxGroup,
	}, true, nil
}

// FetchDimensionFormat fetches the segment order and delimiter of a dimension
// format. Rows arrive one per segment and are ordered by SegmentIndex before
// assembly.
func (c *Client) FetchDimensionFormat(ctx context.Context, name, hierarchyType string) (*dimension.Format, error) {
	filter := fmt.Sprintf("FormatName eq '%s' and HierarchyType eq '%s'",
		escapeODataString(name), escapeODataString(hierarchyType))

	var rows []dimensionFormatEntity
	if err := c.queryValue(ctx, dimensionFormatPath, filter, &rows); err != nil {
		return nil, fmt.Errorf("dimension format query failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dimension format %q not found", name)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].SegmentIndex < rows[j].SegmentIndex
	})

	format := &dimension.Format{
		Delimiter: rows[0].Delimiter,
		Segments:  make([]string, 0, len(rows)),
	}
	for _, row := range rows {
		format.Segments = append(format.Segments, row.SegmentName)
	}
	return format, nil
}
