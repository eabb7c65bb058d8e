package relion

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Posting type codes as delivered by the source system.
const (
	PostingTypeNone     = 0
	PostingTypePurchase = 1
	PostingTypeSale     = 2
)

// Date wraps time.Time to accept the source system's date formats.
// Relion exports dates either as plain "2006-01-02" or as RFC3339.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unsupported date value %q", s)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// LedgerLine is one general-ledger entry as exported by Relion. Field names
// mirror the source export verbatim; they are part of the wire contract with
// the producing system and must not be renamed.
type LedgerLine struct {
	EntryNo             int             `json:"Entry No."`
	GLAccountNo         string          `json:"G/L Account No."`
	CompetenceUnit      string          `json:"Competence Unit"`
	PostingDate         Date            `json:"Posting Date"`
	DocumentDate        Date            `json:"Document Date"`
	DocumentNo          string          `json:"Document No."`
	ExternalDocumentNo  string          `json:"External Document No."`
	Description         string          `json:"Description"`
	Description2        string          `json:"Description 2"`
	DebitAmount         decimal.Decimal `json:"Debit Amount"`
	CreditAmount        decimal.Decimal `json:"Credit Amount"`
	VATAmount           decimal.Decimal `json:"VAT Amount"`
	GenPostingType      int             `json:"Gen. Posting Type"`
	GenBusPostingGroup  string          `json:"Gen. Bus. Posting Group"`
	VATBusPostingGroup  string          `json:"VAT Bus. Posting Group"`
	VATProdPostingGroup string          `json:"VAT Prod. Posting Group"`
	ShortcutDimension   string          `json:"Shortcut Dimension 1 Code"`
	MovementType        string          `json:"Movement Type"`
	RelatedObjectNo     string          `json:"Related Object No."`
	ICPartnerCode       string          `json:"IC Partner Code"`
}

// IFRSTag returns the IFRS disambiguation tag for account-mapping lookups.
// Lines without a shortcut dimension map on the bare account number.
func (l *LedgerLine) IFRSTag() string {
	return strings.TrimSpace(l.ShortcutDimension)
}

// EntryID returns the source entry identifier as a string, the form used for
// error-log correlation.
func (l *LedgerLine) EntryID() string {
	return fmt.Sprintf("%d", l.EntryNo)
}
