package workflow

// Config holds configuration for the import orchestrator
type Config struct {
	// ConcurrentCompanies is the max number of company workflows run in parallel
	ConcurrentCompanies int

	// DimensionFormatName is the account structure fetched per import batch
	DimensionFormatName string

	// DimensionHierarchyType selects the dimension hierarchy variant
	DimensionHierarchyType string
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() *Config {
	return &Config{
		ConcurrentCompanies:    4,
		DimensionFormatName:    "Kontostruktur",
		DimensionHierarchyType: "AccountStructure",
	}
}

// applyDefaults fills in zero-value fields with the defaults
func (c *Config) applyDefaults() {
	if c.ConcurrentCompanies <= 0 {
		c.ConcurrentCompanies = 4
	}
	if c.DimensionFormatName == "" {
		c.DimensionFormatName = "Kontostruktur"
	}
	if c.DimensionHierarchyType == "" {
		c.DimensionHierarchyType = "AccountStructure"
	}
}
