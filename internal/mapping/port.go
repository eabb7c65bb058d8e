package mapping

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BookingType selects which tax-group mapping table a posting group resolves
// against.
type BookingType string

const (
	BookingPurchase BookingType = "Purchase"
	BookingSale     BookingType = "Sale"
)

// AccountMapping maps a Relion ledger account (plus optional IFRS tag) to a
// D365 main account. MainAccount may be empty for mappings that only carry
// the exclusion flag.
type AccountMapping struct {
	LedgerAccount     string
	IFRSTag           string
	MainAccount       string
	ExcludeFromImport bool
}

// TaxGroupMapping maps a (booking type, posting group) pair to a D365 sales
// tax group.
type TaxGroupMapping struct {
	TaxGroup string
}

// ItemTaxGroupMapping maps a VAT business/product posting group pair to a tax
// code and item sales tax group.
type ItemTaxGroupMapping struct {
	TaxCode      string
	ItemTaxGroup string
}

// AccountMappingLookup resolves account mappings. The three outcomes are
// distinct: (rec, true, nil) found, (nil, false, nil) legitimately absent,
// (nil, false, err) lookup infrastructure failure.
type AccountMappingLookup interface {
	LookupAccountMapping(ctx context.Context, accountNo, ifrsTag string) (*AccountMapping, bool, error)
}

// TaxGroupLookup resolves sales tax groups by booking type and posting group.
type TaxGroupLookup interface {
	LookupTaxGroup(ctx context.Context, bookingType BookingType, postingGroup string) (*TaxGroupMapping, bool, error)
}

// ItemTaxGroupLookup resolves item sales tax groups by VAT posting groups.
type ItemTaxGroupLookup interface {
	LookupItemTaxGroup(ctx context.Context, vatBusGroup, vatProdGroup string) (*ItemTaxGroupMapping, bool, error)
}

// AccountExistenceLookup is the secondary, Relion-side check used for
// excluded mappings: does the source entry still resolve to a ledger account.
type AccountExistenceLookup interface {
	LookupLedgerAccount(ctx context.Context, entryNo int) (string, bool, error)
}

// ErrorSink records unmappable line occurrences for operator triage. Sink
// failures must never block line processing.
type ErrorSink interface {
	Record(ctx context.Context, companyID, sourceEntryID, message, origin string) error
}

// JournalLine is a mapped, VAT-adjusted D365 journal line ready for batch
// creation under an existing journal header.
type JournalLine struct {
	CompanyID          string
	JournalBatchNumber string
	AccountType        string
	AccountDisplay     string
	Voucher            string
	DocumentNo         string
	Invoice            string
	Description        string
	TransDate          time.Time
	DocumentDate       time.Time
	DebitAmount        decimal.Decimal
	CreditAmount       decimal.Decimal
	CurrencyCode       string
	ExchangeRate       decimal.Decimal

	// Either SalesTaxCode or the group pair is set, never both.
	SalesTaxCode      string
	SalesTaxGroup     string
	ItemSalesTaxGroup string
}
