package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	Gemini    map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// LLM computes the cost of a generation call. Unknown provider/model pairs
// cost zero so a missing price never blocks a run.
func (c *Calculator) LLM(provider, model string, input, output int64) float64 {
	var table map[string]ModelRate
	switch provider {
	case "gemini":
		table = c.rates.Gemini
	case "anthropic":
		table = c.rates.Anthropic
	}

	rate, ok := table[model]
	if !ok {
		return 0
	}

	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Gemini: map[string]ModelRate{
			"gemini-2.0-flash": {Input: 0.10, Output: 0.40},
			"gemini-1.5-pro":   {Input: 1.25, Output: 5.00},
		},
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
	}
}

// MergeOverrides layers configured prices over the defaults. Configured
// models replace the default entry wholesale.
func MergeOverrides(base Rates, gemini, anthropic map[string]ModelRate) Rates {
	for model, rate := range gemini {
		if base.Gemini == nil {
			base.Gemini = map[string]ModelRate{}
		}
		base.Gemini[model] = rate
	}
	for model, rate := range anthropic {
		if base.Anthropic == nil {
			base.Anthropic = map[string]ModelRate{}
		}
		base.Anthropic[model] = rate
	}
	return base
}
