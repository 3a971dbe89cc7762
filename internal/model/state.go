package model

// TaxField identifies one component of a state's corporate tax structure.
type TaxField string

const (
	FieldENI     TaxField = "ENI"     // entire net income rate
	FieldFDM     TaxField = "FDM"     // fixed dollar minimum
	FieldCapital TaxField = "Capital" // capital base tax
)

// AllTaxFields returns the recognized tax-field vocabulary in canonical order.
func AllTaxFields() []TaxField {
	return []TaxField{FieldENI, FieldFDM, FieldCapital}
}

// Known reports whether f belongs to the recognized vocabulary.
func (f TaxField) Known() bool {
	switch f {
	case FieldENI, FieldFDM, FieldCapital:
		return true
	}
	return false
}

// Label returns the long-form name used in reports and reasoning logs.
func (f TaxField) Label() string {
	switch f {
	case FieldENI:
		return "ENI (Entire Net Income)"
	case FieldFDM:
		return "FDM (Fixed Dollar Minimum)"
	case FieldCapital:
		return "Capital (Business Capital Base)"
	}
	return string(f)
}

// ExtractionHints carries per-state guidance handed to the prompt builder.
type ExtractionHints struct {
	Keywords         []string          `yaml:"keywords" json:"keywords,omitempty"`
	ShippingKeywords []string          `yaml:"shipping_keywords" json:"shipping_keywords,omitempty"`
	KnownRates       map[string]string `yaml:"known_rates" json:"known_rates,omitempty"` // sanity references, never emitted as output
}

// FallbackSelectors holds optional CSS selectors tried when the built-in
// content-area selectors match nothing on a state's page.
type FallbackSelectors struct {
	ContentArea []string `yaml:"content_area" json:"content_area,omitempty"`
}

// StateConfig is one state's extraction rule set, loaded from a YAML file.
type StateConfig struct {
	StateName          string            `yaml:"state_name" json:"state_name"`
	StateCode          string            `yaml:"state_code" json:"state_code"`
	BaseURL            string            `yaml:"base_url" json:"base_url"`
	TaxDefinitionsURL  string            `yaml:"tax_definitions_url" json:"tax_definitions_url"`
	BackupURLs         []string          `yaml:"backup_urls" json:"backup_urls,omitempty"`
	EntityType         string            `yaml:"entity_type" json:"entity_type"`
	Industry           string            `yaml:"industry" json:"industry"`
	IncludedFields     []TaxField        `yaml:"included_fields" json:"included_fields"`
	TaxTypes           []string          `yaml:"tax_types" json:"tax_types,omitempty"`
	Hints              ExtractionHints   `yaml:"extraction_hints" json:"extraction_hints"`
	NexusStandard      string            `yaml:"nexus_standard" json:"nexus_standard"`
	NexusEffectiveDate string            `yaml:"nexus_effective_date" json:"nexus_effective_date"`
	SalesFactorMethod  string            `yaml:"sales_factor_method" json:"sales_factor_method"`
	SalesFactorDate    string            `yaml:"sales_factor_date" json:"sales_factor_date"`
	Selectors          FallbackSelectors `yaml:"fallback_selectors" json:"fallback_selectors,omitempty"`
}

// CandidateURLs returns the fetch order: the primary tax-definitions URL
// followed by the backups as listed.
func (c *StateConfig) CandidateURLs() []string {
	urls := make([]string, 0, 1+len(c.BackupURLs))
	if c.TaxDefinitionsURL != "" {
		urls = append(urls, c.TaxDefinitionsURL)
	}
	urls = append(urls, c.BackupURLs...)
	return urls
}

// ApplyDefaults fills the optional fields the rule files may omit.
func (c *StateConfig) ApplyDefaults() {
	if c.EntityType == "" {
		c.EntityType = "C_corp"
	}
	if c.Industry == "" {
		c.Industry = "shipping"
	}
	if len(c.IncludedFields) == 0 {
		c.IncludedFields = AllTaxFields()
	}
	if c.NexusStandard == "" {
		c.NexusStandard = "market base"
	}
	if c.NexusEffectiveDate == "" {
		c.NexusEffectiveDate = "unknown"
	}
	if c.SalesFactorMethod == "" {
		c.SalesFactorMethod = "market base"
	}
	if c.SalesFactorDate == "" {
		c.SalesFactorDate = "unknown"
	}
}
