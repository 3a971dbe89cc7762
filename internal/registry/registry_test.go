package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxautomation/taxbot/internal/model"
)

func writeRuleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const minimalNY = `state_name: New York
state_code: NY
base_url: https://www.tax.ny.gov
tax_definitions_url: https://www.tax.ny.gov/bus/ct/def_art9a.htm
`

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "ny.yaml", minimalNY)

	cfg, err := Load(dir, "ny")
	require.NoError(t, err)

	assert.Equal(t, "NY", cfg.StateCode)
	assert.Equal(t, "New York", cfg.StateName)
	assert.Equal(t, "C_corp", cfg.EntityType)
	assert.Equal(t, "shipping", cfg.Industry)
	assert.Equal(t, model.AllTaxFields(), cfg.IncludedFields)
	assert.Equal(t, "market base", cfg.NexusStandard)
	assert.Equal(t, "unknown", cfg.NexusEffectiveDate)
	assert.Equal(t, "market base", cfg.SalesFactorMethod)
	assert.Equal(t, "unknown", cfg.SalesFactorDate)
}

func TestLoad_FullRuleFile(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "ny.yaml", `state_name: New York
state_code: NY
base_url: https://www.tax.ny.gov
tax_definitions_url: https://www.tax.ny.gov/bus/ct/def_art9a.htm
backup_urls:
  - https://www.tax.ny.gov/bus/ct/ctidx.htm
  - https://www.tax.ny.gov/pdf/current_forms/ct/ct3i.pdf
entity_type: C_corp
industry: shipping
included_fields: [ENI, FDM]
tax_types:
  - corporate franchise tax
extraction_hints:
  keywords: [entire net income, fixed dollar minimum]
  shipping_keywords: [marine, tonnage]
  known_rates:
    ENI: "7.25% over $5M"
fallback_selectors:
  content_area: ["#main-copy", ".page-body"]
nexus_standard: economic nexus
nexus_effective_date: "2015-01-01"
sales_factor_method: single sales factor
sales_factor_date: "2015-01-01"
`)

	cfg, err := Load(dir, "NY")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://www.tax.ny.gov/bus/ct/ctidx.htm",
		"https://www.tax.ny.gov/pdf/current_forms/ct/ct3i.pdf",
	}, cfg.BackupURLs)
	assert.Equal(t, []model.TaxField{model.FieldENI, model.FieldFDM}, cfg.IncludedFields)
	assert.Equal(t, "7.25% over $5M", cfg.Hints.KnownRates["ENI"])
	assert.Equal(t, []string{"#main-copy", ".page-body"}, cfg.Selectors.ContentArea)
	assert.Equal(t, "economic nexus", cfg.NexusStandard)

	urls := cfg.CandidateURLs()
	require.Len(t, urls, 3)
	assert.Equal(t, "https://www.tax.ny.gov/bus/ct/def_art9a.htm", urls[0])
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir, "zz")
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "ZZ", cfgErr.StateCode)
}

func TestLoad_MissingRequiredKey(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "ca.yaml", `state_name: California
state_code: CA
base_url: https://www.ftb.ca.gov
`)

	_, err := Load(dir, "ca")
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "tax_definitions_url")
}

func TestLoad_UnknownTaxField(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "tx.yaml", `state_name: Texas
state_code: TX
base_url: https://comptroller.texas.gov
tax_definitions_url: https://comptroller.texas.gov/taxes/franchise/
included_fields: [ENI, Margin]
`)

	_, err := Load(dir, "tx")
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "Margin")
}

func TestLoad_RejectsUnknownYAMLKeys(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "fl.yaml", minimalNY+"surprise_key: true\n")

	_, err := Load(dir, "fl")
	require.Error(t, err)
}

func TestLoad_CodeMismatch(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "fl.yaml", minimalNY)

	_, err := Load(dir, "fl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestLoadAll_SkipsMalformedAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "ny.yaml", minimalNY)
	writeRuleFile(t, dir, "ca.yaml", `state_name: California
state_code: CA
base_url: https://www.ftb.ca.gov
tax_definitions_url: https://www.ftb.ca.gov/file/business/types/corporations/
`)
	writeRuleFile(t, dir, "bad.yaml", "state_name: [unterminated")
	writeRuleFile(t, dir, "notes.txt", "not yaml")

	configs, err := LoadAll(dir)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "CA", configs[0].StateCode)
	assert.Equal(t, "NY", configs[1].StateCode)
}
