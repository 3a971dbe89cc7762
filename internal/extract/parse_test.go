package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxautomation/taxbot/internal/model"
)

func TestParse_FullResponse(t *testing.T) {
	raw := `{
		"ENI_description": "The business income tax rate is 6.5% for corporations with income under $5 million.",
		"FDM_description": "The fixed dollar minimum ranges from $25 to $200,000 based on NY receipts.",
		"Capital_description": "The capital base tax is 0.1875% capped at $5 million.",
		"shipping_special_rule": "Marine corporations may elect an alternative apportionment.",
		"reasoning": "Rates taken from the Article 9-A definitions table.",
		"confidence": 92,
		"source_sections": ["Tax rates table", "Article 9-A"]
	}`

	res, err := Parse(raw, testStateConfig())
	require.NoError(t, err)

	assert.Len(t, res.Fields, 3)
	assert.Contains(t, res.Fields[model.FieldENI], "6.5%")
	assert.Contains(t, res.Fields[model.FieldFDM], "$25 to $200,000")
	assert.Equal(t, "Marine corporations may elect an alternative apportionment.", res.ShippingRule)
	assert.Equal(t, "Rates taken from the Article 9-A definitions table.", res.Reasoning)
	assert.Equal(t, float64(92), res.Confidence)
	assert.Equal(t, []string{"Tax rates table", "Article 9-A"}, res.SourceSections)
	assert.Empty(t, res.Unresolved)
}

func TestParse_NAFieldsOmitted(t *testing.T) {
	raw := `{
		"ENI_description": "The corporate rate is 8.84%.",
		"FDM_description": "N/A",
		"Capital_description": "N/A",
		"shipping_special_rule": "N/A",
		"reasoning": "Only an income rate is published.",
		"confidence": 85
	}`

	res, err := Parse(raw, testStateConfig())
	require.NoError(t, err)

	// N/A fields must be omitted, never zeroed or placeholder-filled.
	assert.Len(t, res.Fields, 1)
	assert.Contains(t, res.Fields, model.FieldENI)
	assert.NotContains(t, res.Fields, model.FieldFDM)
	assert.NotContains(t, res.Fields, model.FieldCapital)
	assert.Empty(t, res.ShippingRule)
	assert.ElementsMatch(t, []model.TaxField{model.FieldFDM, model.FieldCapital}, res.Unresolved)
}

func TestParse_UnrequestedFieldsDropped(t *testing.T) {
	cfg := testStateConfig()
	cfg.IncludedFields = []model.TaxField{model.FieldENI, model.FieldFDM}

	raw := `{
		"ENI_description": "Rate is 6.5%.",
		"FDM_description": "Minimum is $25.",
		"Capital_description": "Capital tax is 0.1875%.",
		"reasoning": "All three found.",
		"confidence": 90
	}`

	res, err := Parse(raw, cfg)
	require.NoError(t, err)

	assert.Len(t, res.Fields, 2)
	assert.Contains(t, res.Fields, model.FieldENI)
	assert.Contains(t, res.Fields, model.FieldFDM)
	assert.NotContains(t, res.Fields, model.FieldCapital)
}

func TestParse_MarkdownFences(t *testing.T) {
	raw := "```json\n{\"ENI_description\": \"Rate is 7.0% on net income.\", \"reasoning\": \"ok\", \"confidence\": 88}\n```"

	res, err := Parse(raw, testStateConfig())
	require.NoError(t, err)
	assert.Contains(t, res.Fields[model.FieldENI], "7.0%")
	assert.Equal(t, float64(88), res.Confidence)
}

func TestParse_ChattyPreamble(t *testing.T) {
	raw := "Sure, here is the analysis you asked for:\n{\"ENI_description\": \"Tax rate is 5.5%.\", \"confidence\": 75}\nLet me know if you need more."

	res, err := Parse(raw, testStateConfig())
	require.NoError(t, err)
	assert.Contains(t, res.Fields[model.FieldENI], "5.5%")
}

func TestParse_ConfidenceLabels(t *testing.T) {
	tests := []struct {
		value string
		want  float64
	}{
		{`"high"`, 95},
		{`"medium"`, 80},
		{`"low"`, 50},
		{`"87"`, 87},
		{`"92%"`, 92},
		{`0.85`, 85}, // fraction scale
		{`85`, 85},
		{`null`, 50}, // missing defaults into the Low band
		{`150`, 100}, // clamped
		{`"what"`, 50},
	}
	for _, tt := range tests {
		raw := `{"ENI_description": "Rate is 6.5% on income.", "confidence": ` + tt.value + `}`
		res, err := Parse(raw, testStateConfig())
		require.NoError(t, err, "confidence %s", tt.value)
		assert.Equal(t, tt.want, res.Confidence, "confidence %s", tt.value)
	}
}

func TestParse_MissingReasoningFallsBackToRaw(t *testing.T) {
	raw := `{"ENI_description": "Rate is 6.5% on income.", "confidence": 80}`

	res, err := Parse(raw, testStateConfig())
	require.NoError(t, err)
	// The audit trail is never empty.
	assert.Equal(t, raw, res.Reasoning)
}

func TestParse_NonJSONWithRates(t *testing.T) {
	raw := "The corporate franchise tax rate in this state is 6.5%, with a minimum tax of $175."

	res, err := Parse(raw, testStateConfig())
	require.NoError(t, err)

	assert.Empty(t, res.Fields)
	assert.Equal(t, raw, res.Reasoning)
	assert.Equal(t, float64(defaultConfidence), res.Confidence)
	assert.Len(t, res.Unresolved, 3)
}

func TestParse_NoTaxInformation(t *testing.T) {
	raw := "I could not find any relevant information on the provided page."

	res, err := Parse(raw, testStateConfig())
	assert.Nil(t, res)

	var pf *ParseFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, "NY", pf.StateCode)
}

func TestParse_AllNAWithoutRateText(t *testing.T) {
	raw := `{
		"ENI_description": "N/A",
		"FDM_description": "N/A",
		"Capital_description": "N/A",
		"shipping_special_rule": "N/A",
		"reasoning": "The page is a site map with no rate content.",
		"confidence": 20
	}`

	_, err := Parse(raw, testStateConfig())

	var pf *ParseFailure
	require.True(t, errors.As(err, &pf))
}

func TestHasRateStatement(t *testing.T) {
	assert.True(t, hasRateStatement("the tax rate is 6.5%"))
	assert.True(t, hasRateStatement("minimum tax of $175"))
	assert.False(t, hasRateStatement("our office is open 9-5"))
	assert.False(t, hasRateStatement("save 20% on shoes")) // no tax context
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON("prefix {\"a\":1} suffix"))
	assert.Equal(t, `{"a":1}`, cleanJSON(`{"a":1}`))
	assert.Equal(t, "no braces here", cleanJSON("no braces here"))
}
