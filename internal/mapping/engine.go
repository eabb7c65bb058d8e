// Package mapping implements the journal line transformation engine: it
// derives validated, dimension-composed, tax-resolved D365 journal lines from
// raw Relion ledger entries.
package mapping

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nordicfin/relion-bridge/internal/dimension"
	"github.com/nordicfin/relion-bridge/internal/relion"
	apperrors "github.com/nordicfin/relion-bridge/internal/shared/errors"
	"github.com/nordicfin/relion-bridge/pkg/logger"
)

// Financial dimension segment names used in the account display value.
const (
	segMainAccount    = "MainAccount"
	segProject        = "D_Projekte"
	segMovementType   = "G_Bewegungsarten"
	segPartnerCompany = "H_Partnergesellschaft"
)

// Fixed journal line attributes for this flow. Amounts arrive in EUR and are
// posted with a flat exchange rate of 100, no live FX lookup.
const (
	accountTypeLedger = "Ledger"
	currencyEUR       = "EUR"
)

// OriginJournalImport tags error-sink records produced by this engine.
const OriginJournalImport = "RelionJournalImport"

var exchangeRateFlat = decimal.NewFromInt(100)

// Engine maps Relion ledger lines to D365 journal lines.
type Engine struct {
	accounts  AccountMappingLookup
	taxGroups TaxGroupLookup
	itemTax   ItemTaxGroupLookup
	existence AccountExistenceLookup
	sink      ErrorSink
	logger    *logger.Logger
}

// NewEngine creates a new line mapping engine.
func NewEngine(
	accounts AccountMappingLookup,
	taxGroups TaxGroupLookup,
	itemTax ItemTaxGroupLookup,
	existence AccountExistenceLookup,
	sink ErrorSink,
	log *logger.Logger,
) *Engine {
	return &Engine{
		accounts:  accounts,
		taxGroups: taxGroups,
		itemTax:   itemTax,
		existence: existence,
		sink:      sink,
		logger:    log.WithField("component", "mapping"),
	}
}

// MapLines maps one company's ledger lines onto journal lines under the given
// batch number. Lines are processed sequentially; unmappable lines are
// skipped (and logged or sent to the error sink), with one exception: an
// account-mapping lookup failure aborts the whole call and discards every
// line mapped so far. The tax lookups are best-effort, the account mapping is
// a prerequisite.
func (e *Engine) MapLines(
	ctx context.Context,
	companyID string,
	journalBatchNumber string,
	format *dimension.Format,
	lines []relion.LedgerLine,
) ([]JournalLine, error) {
	composer := dimension.NewComposer()
	mapped := make([]JournalLine, 0, len(lines))

	for i := range lines {
		line := &lines[i]

		out, ok, err := e.mapLine(ctx, companyID, journalBatchNumber, composer, format, line)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		mapped = append(mapped, *out)
	}

	return mapped, nil
}

// mapLine maps a single ledger line. It returns (nil, false, nil) for skipped
// lines and a non-nil error only on the fatal account-lookup path.
func (e *Engine) mapLine(
	ctx context.Context,
	companyID string,
	journalBatchNumber string,
	composer *dimension.Composer,
	format *dimension.Format,
	line *relion.LedgerLine,
) (*JournalLine, bool, error) {
	log := e.logger.WithFields(map[string]interface{}{
		"company":  companyID,
		"entry_no": line.EntryNo,
	})

	account, found, err := e.accounts.LookupAccountMapping(ctx, line.GLAccountNo, line.IFRSTag())
	if err != nil {
		msg := fmt.Sprintf("account mapping lookup failed for account %s: %v", line.GLAccountNo, err)
		log.WithError(err).Error("account mapping lookup failed, aborting batch")
		e.record(ctx, companyID, line.EntryID(), msg)
		return nil, false, apperrors.MappingFailed(
			fmt.Sprintf("account mapping lookup failed for entry %d", line.EntryNo), err)
	}
	if !found {
		// A missing mapping is a legitimate skip, not a triage case.
		log.Warn("no account mapping, skipping line", "account_no", line.GLAccountNo, "ifrs_tag", line.IFRSTag())
		return nil, false, nil
	}

	mappingExists := false
	if account.ExcludeFromImport {
		ledgerAccount, ok, err := e.existence.LookupLedgerAccount(ctx, line.EntryNo)
		if err != nil {
			// Inconclusive existence checks count as "mapping does not exist".
			log.WithError(err).Warn("ledger account existence check failed")
		} else {
			mappingExists = ok && ledgerAccount != ""
		}
	}

	composer.Initialize(format)
	composer.Add(segMainAccount, account.MainAccount)
	composer.Add(segProject, line.RelatedObjectNo)
	composer.Add(segMovementType, line.MovementType)
	composer.Add(segPartnerCompany, line.ICPartnerCode)

	out := &JournalLine{
		CompanyID:          companyID,
		JournalBatchNumber: journalBatchNumber,
		AccountType:        accountTypeLedger,
		AccountDisplay:     composer.Build(),
		Voucher:            line.DocumentNo,
		DocumentNo:         line.DocumentNo,
		Invoice:            line.ExternalDocumentNo,
		Description:        lineDescription(line),
		TransDate:          line.PostingDate.Time,
		DocumentDate:       line.DocumentDate.Time,
		DebitAmount:        line.DebitAmount,
		CreditAmount:       line.CreditAmount,
		CurrencyCode:       currencyEUR,
		ExchangeRate:       exchangeRateFlat,
	}

	// No posting profile and no existing mapping means nothing to post.
	if !mappingExists && account.ExcludeFromImport && line.GenPostingType == relion.PostingTypeNone {
		log.Debug("excluded line without ledger account and posting type, skipping")
		return nil, false, nil
	}

	if line.GenPostingType > relion.PostingTypeNone {
		ok := e.resolveTax(ctx, companyID, log, account, line, out)
		if !ok {
			return nil, false, nil
		}
	}

	applyVATNetting(out, line, account.ExcludeFromImport)

	return out, true, nil
}

// resolveTax resolves the sales-tax fields for lines carrying a posting
// profile. It reports false when the line must be skipped.
func (e *Engine) resolveTax(
	ctx context.Context,
	companyID string,
	log *logger.Logger,
	account *AccountMapping,
	line *relion.LedgerLine,
	out *JournalLine,
) bool {
	bookingType := bookingTypeOf(line.GenPostingType)

	if line.GenBusPostingGroup == "" {
		e.record(ctx, companyID, line.EntryID(),
			fmt.Sprintf("entry %d has posting type %d but no posting group", line.EntryNo, line.GenPostingType))
		return false
	}

	taxGroup, _, err := e.taxGroups.LookupTaxGroup(ctx, bookingType, line.GenBusPostingGroup)
	if err != nil {
		log.WithError(err).Error("tax group lookup failed, skipping line")
		e.record(ctx, companyID, line.EntryID(),
			fmt.Sprintf("tax group lookup failed for %s/%s: %v", bookingType, line.GenBusPostingGroup, err))
		return false
	}

	if line.VATBusPostingGroup == "" || line.VATProdPostingGroup == "" {
		e.record(ctx, companyID, line.EntryID(),
			fmt.Sprintf("entry %d is missing VAT posting groups (bus=%q, prod=%q)",
				line.EntryNo, line.VATBusPostingGroup, line.VATProdPostingGroup))
		return false
	}

	itemTax, _, err := e.itemTax.LookupItemTaxGroup(ctx, line.VATBusPostingGroup, line.VATProdPostingGroup)
	if err != nil {
		// This path deliberately does not write to the error sink; it only
		// logs. Changing it would alter the triage log's contract, so the
		// behavior is pinned by a test instead.
		log.WithError(err).Error("item tax group lookup failed, skipping line",
			"vat_bus", line.VATBusPostingGroup, "vat_prod", line.VATProdPostingGroup)
		return false
	}

	if account.ExcludeFromImport {
		if itemTax != nil {
			out.SalesTaxCode = itemTax.TaxCode
		}
	} else {
		if taxGroup != nil {
			out.SalesTaxGroup = taxGroup.TaxGroup
		}
		if itemTax != nil {
			out.ItemSalesTaxGroup = itemTax.ItemTaxGroup
		}
	}

	return true
}

// applyVATNetting nets the VAT amount into the copied debit/credit amounts.
// Excluded lines post the negated VAT amount as credit; for all other lines
// VAT only moves a side that already carries an amount, zero sides stay zero.
func applyVATNetting(out *JournalLine, line *relion.LedgerLine, excluded bool) {
	if excluded {
		out.CreditAmount = line.VATAmount.Neg()
		return
	}

	if !line.CreditAmount.IsZero() {
		out.CreditAmount = line.CreditAmount.Sub(line.VATAmount)
	} else {
		out.CreditAmount = decimal.Zero
	}

	if !line.DebitAmount.IsZero() {
		out.DebitAmount = line.DebitAmount.Add(line.VATAmount)
	} else {
		out.DebitAmount = decimal.Zero
	}
}

// bookingTypeOf maps the source posting type to a booking type. Any positive
// code other than sale falls back to purchase; the source has shipped unknown
// codes before and they book as purchases.
func bookingTypeOf(postingType int) BookingType {
	if postingType == relion.PostingTypeSale {
		return BookingSale
	}
	return BookingPurchase
}

// lineDescription picks the first non-empty description field.
func lineDescription(line *relion.LedgerLine) string {
	if line.Description != "" {
		return line.Description
	}
	return line.Description2
}

// record writes to the error sink; sink failures are logged and swallowed so
// they never block processing.
func (e *Engine) record(ctx context.Context, companyID, entryID, message string) {
	if err := e.sink.Record(ctx, companyID, entryID, message, OriginJournalImport); err != nil {
		e.logger.WithError(err).Error("failed to record import error",
			"company", companyID, "entry_id", entryID)
	}
}
