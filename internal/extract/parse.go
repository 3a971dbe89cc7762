package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/taxautomation/taxbot/internal/model"
)

// defaultConfidence stands in when the model omits a usable confidence value.
// It classifies as Low, which routes the record to human review.
const defaultConfidence = 50

// Result is the structured outcome of parsing one model response. Only
// requested fields that the model actually described appear in Fields;
// everything absent or marked N/A lands in Unresolved.
type Result struct {
	Fields         map[model.TaxField]string
	ShippingRule   string
	Reasoning      string
	Confidence     float64
	SourceSections []string
	Unresolved     []model.TaxField
}

// ParseFailure indicates the model response contained no recognizable tax
// information at all. Partial answers are not a failure.
type ParseFailure struct {
	StateCode string
	Reason    string
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse %s: %s", e.StateCode, e.Reason)
}

// Parse extracts tax fields from a raw model response. The parse is
// tolerant: markdown fences are stripped, non-JSON replies are accepted when
// they still carry rate statements, and absent or N/A fields are omitted
// rather than defaulted.
func Parse(raw string, cfg *model.StateConfig) (*Result, error) {
	cleaned := cleanJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		// Not JSON at all. Keep the text as the audit trail if it still
		// talks about rates; otherwise there is nothing to extract.
		if !hasRateStatement(raw) {
			return nil, &ParseFailure{StateCode: cfg.StateCode, Reason: "response contains no recognizable tax information"}
		}
		zap.L().Warn("extract: response is not JSON, keeping raw text",
			zap.String("state", cfg.StateCode),
		)
		return &Result{
			Fields:     map[model.TaxField]string{},
			Reasoning:  strings.TrimSpace(raw),
			Confidence: defaultConfidence,
			Unresolved: append([]model.TaxField{}, cfg.IncludedFields...),
		}, nil
	}

	result := &Result{Fields: make(map[model.TaxField]string)}

	for _, f := range cfg.IncludedFields {
		desc, ok := data[string(f)+"_description"].(string)
		if !ok || isNA(desc) {
			result.Unresolved = append(result.Unresolved, f)
			continue
		}
		result.Fields[f] = strings.TrimSpace(desc)
	}

	if rule, ok := data["shipping_special_rule"].(string); ok && !isNA(rule) {
		result.ShippingRule = strings.TrimSpace(rule)
	}

	if reasoning, ok := data["reasoning"].(string); ok && strings.TrimSpace(reasoning) != "" {
		result.Reasoning = strings.TrimSpace(reasoning)
	} else {
		// The reasoning log must never be empty for a successful state.
		result.Reasoning = strings.TrimSpace(raw)
	}

	result.Confidence = normalizeConfidence(data["confidence"])

	if sections, ok := data["source_sections"].([]any); ok {
		for _, s := range sections {
			if str, ok := s.(string); ok && str != "" {
				result.SourceSections = append(result.SourceSections, str)
			}
		}
	}

	if len(result.Fields) == 0 && result.ShippingRule == "" && !hasRateStatement(raw) {
		return nil, &ParseFailure{StateCode: cfg.StateCode, Reason: "all requested fields N/A and no rate statements present"}
	}

	return result, nil
}

// cleanJSON strips markdown code fences and slices from the first { to the
// last } so chatty preambles do not break decoding.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// isNA reports whether a field value means "not applicable".
func isNA(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n/a", "na", "none", "not applicable", "not found":
		return true
	}
	return false
}

// normalizeConfidence maps whatever the model put in the confidence slot to
// a 0-100 score. Labels get representative scores; fractions are scaled up;
// anything unusable falls back to the Low-band default.
func normalizeConfidence(v any) float64 {
	switch c := v.(type) {
	case float64:
		return clampConfidence(c)
	case string:
		s := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(c), "%")))
		switch s {
		case "high":
			return 95
		case "medium", "moderate":
			return 80
		case "low":
			return 50
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return clampConfidence(n)
		}
	}
	return defaultConfidence
}

func clampConfidence(n float64) float64 {
	if n > 0 && n <= 1 {
		n *= 100
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

var (
	percentRe = regexp.MustCompile(`\d+(?:\.\d+)?\s*%`)
	dollarRe  = regexp.MustCompile(`\$\s?\d`)
)

// hasRateStatement reports whether text mentions a percentage or dollar
// amount in a tax context.
func hasRateStatement(text string) bool {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "tax") && !strings.Contains(lower, "rate") &&
		!strings.Contains(lower, "minimum") && !strings.Contains(lower, "franchise") {
		return false
	}
	return percentRe.MatchString(lower) || dollarRe.MatchString(lower)
}
