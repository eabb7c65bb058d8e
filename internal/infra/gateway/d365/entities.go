package d365

// Wire representations of the D365 F&O data entities the bridge touches.
// Field names follow the entity schemas, not Go conventions.

// journalHeaderRequest creates a LedgerJournalHeader.
type journalHeaderRequest struct {
	DataAreaID  string `json:"dataAreaId"`
	JournalName string `json:"JournalName"`
	Description string `json:"Description"`
}

// journalHeaderResponse is the created header, carrying the generated batch
// number the lines attach to.
type journalHeaderResponse struct {
	DataAreaID         string `json:"dataAreaId"`
	JournalBatchNumber string `json:"JournalBatchNumber"`
}

// journalLineRequest creates a LedgerJournalLine.
type journalLineRequest struct {
	DataAreaID          string  `json:"dataAreaId"`
	JournalBatchNumber  string  `json:"JournalBatchNumber"`
	AccountType         string  `json:"AccountType"`
	AccountDisplayValue string  `json:"AccountDisplayValue"`
	Voucher             string  `json:"Voucher,omitempty"`
	DocumentNo          string  `json:"DocumentNum,omitempty"`
	Invoice             string  `json:"Invoice,omitempty"`
	Text                string  `json:"Text,omitempty"`
	TransDate           string  `json:"TransDate"`
	DocumentDate        string  `json:"DocumentDate"`
	DebitAmount         float64 `json:"DebitAmount"`
	CreditAmount        float64 `json:"CreditAmount"`
	CurrencyCode        string  `json:"CurrencyCode"`
	ExchRate            float64 `json:"ExchRate"`
	SalesTaxCode        string  `json:"SalesTaxCode,omitempty"`
	SalesTaxGroup       string  `json:"SalesTaxGroup,omitempty"`
	ItemSalesTaxGroup   string  `json:"ItemSalesTaxGroup,omitempty"`
}

// accountMappingEntity is a row of the Relion account mapping entity.
type accountMappingEntity struct {
	LedgerAccountNumber string `json:"LedgerAccountNumber"`
	IFRSCode            string `json:"IFRSCode"`
	MainAccount         string `json:"MainAccount"`
	ExcludeFromImport   string `json:"ExcludeFromImport"` // "Yes"/"No" enum
}

// taxGroupMappingEntity is a row of the tax group mapping entity.
type taxGroupMappingEntity struct {
	BookingType  string `json:"BookingType"`
	PostingGroup string `json:"PostingGroup"`
	TaxGroup     string `json:"TaxGroup"`
}

// itemTaxGroupMappingEntity is a row of the item tax group mapping entity.
type itemTaxGroupMappingEntity struct {
	VATBusPostingGroup  string `json:"VATBusPostingGroup"`
	VATProdPostingGroup string `json:"VATProdPostingGroup"`
	TaxCode             string `json:"TaxCode"`
	ItemTaxGroup        string `json:"ItemTaxGroup"`
}

// dimensionFormatEntity is a row of the dimension format entity; segments
// arrive ordered by SegmentIndex.
type dimensionFormatEntity struct {
	FormatName    string `json:"FormatName"`
	HierarchyType string `json:"HierarchyType"`
	Delimiter     string `json:"Delimiter"`
	SegmentName   string `json:"SegmentName"`
	SegmentIndex  int    `json:"SegmentIndex"`
}
