package d365

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nordicfin/relion-bridge/internal/mapping"
	"github.com/nordicfin/relion-bridge/internal/workflow"
)

const (
	journalHeaderEntity = "LedgerJournalHeaders"
	journalLineEntity   = "LedgerJournalLines"

	// defaultJournalName is the fixed journal name imports post under.
	defaultJournalName = "RELION"

	dateFormat = "2006-01-02T15:04:05Z"
)

// CreateHeader creates a journal header for a company and returns the
// generated batch number.
func (c *Client) CreateHeader(ctx context.Context, companyID string) (*workflow.JournalHeader, error) {
	req := journalHeaderRequest{
		DataAreaID:  companyID,
		JournalName: defaultJournalName,
		Description: "Relion journal import",
	}

	body, err := c.doRequest(ctx, http.MethodPost, journalHeaderEntity, nil, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal header for %s: %w", companyID, err)
	}

	var resp journalHeaderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse journal header response: %w", err)
	}

	return &workflow.JournalHeader{BatchNumber: resp.JournalBatchNumber}, nil
}

// CreateLines creates the mapped journal lines one by one. The entity has no
// multi-row insert; a failed line aborts the batch and surfaces as the
// company's failure.
func (c *Client) CreateLines(ctx context.Context, lines []mapping.JournalLine) error {
	for i := range lines {
		req := toJournalLineRequest(&lines[i])
		if _, err := c.doRequest(ctx, http.MethodPost, journalLineEntity, nil, req); err != nil {
			return fmt.Errorf("failed to create journal line %d of %d: %w", i+1, len(lines), err)
		}
	}
	return nil
}

func toJournalLineRequest(line *mapping.JournalLine) journalLineRequest {
	return journalLineRequest{
		DataAreaID:          line.CompanyID,
		JournalBatchNumber:  line.JournalBatchNumber,
		AccountType:         line.AccountType,
		AccountDisplayValue: line.AccountDisplay,
		Voucher:             line.Voucher,
		DocumentNo:          line.DocumentNo,
		Invoice:             line.Invoice,
		Text:                line.Description,
		TransDate:           line.TransDate.UTC().Format(dateFormat),
		DocumentDate:        line.DocumentDate.UTC().Format(dateFormat),
		DebitAmount:         line.DebitAmount.InexactFloat64(),
		CreditAmount:        line.CreditAmount.InexactFloat64(),
		CurrencyCode:        line.CurrencyCode,
		ExchRate:            line.ExchangeRate.InexactFloat64(),
		SalesTaxCode:        line.SalesTaxCode,
		SalesTaxGroup:       line.SalesTaxGroup,
		ItemSalesTaxGroup:   line.ItemSalesTaxGroup,
	}
}
