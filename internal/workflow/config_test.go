package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 4, cfg.ConcurrentCompanies)
	assert.Equal(t, "Kontostruktur", cfg.DimensionFormatName)
	assert.Equal(t, "AccountStructure", cfg.DimensionHierarchyType)
}

func TestConfigApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		ConcurrentCompanies:    8,
		DimensionFormatName:    "Ledgerstruktur",
		DimensionHierarchyType: "DimensionHierarchy",
	}
	cfg.applyDefaults()

	assert.Equal(t, 8, cfg.ConcurrentCompanies)
	assert.Equal(t, "Ledgerstruktur", cfg.DimensionFormatName)
	assert.Equal(t, "DimensionHierarchy", cfg.DimensionHierarchyType)
}

func TestConfigApplyDefaultsNormalizesNegativeConcurrency(t *testing.T) {
	cfg := &Config{ConcurrentCompanies: -1}
	cfg.applyDefaults()

	assert.Equal(t, 4, cfg.ConcurrentCompanies)
}
