package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/taxautomation/taxbot/internal/model"
)

// DefaultReasoningLogName is the reasoning log filename when none is
// configured.
const DefaultReasoningLogName = "multi_state_reasoning_log.txt"

// WriteReasoningLog writes the per-state audit narrative for a run into dir,
// one section per attempted state in input order, and returns the file path.
func WriteReasoningLog(dir, name string, outcomes []model.StateOutcome) (string, error) {
	if name == "" {
		name = DefaultReasoningLogName
	}

	var b strings.Builder
	for _, o := range outcomes {
		fmt.Fprintf(&b, "=== %s ===\n%s\n\n", o.StateCode, stateEntry(&o))
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", eris.Wrapf(err, "report: write reasoning log %s", path)
	}
	return path, nil
}

func stateEntry(o *model.StateOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s Analysis ---\n", o.StateName)

	if !o.Succeeded() {
		fmt.Fprintf(&b, "FAILED at %s: %s", o.Stage, o.Reason)
		return b.String()
	}

	rec := o.Record
	for _, f := range model.AllTaxFields() {
		if desc, ok := rec.Fields[f]; ok {
			fmt.Fprintf(&b, "%s: %s\n", f, desc)
		}
	}
	if rec.ShippingRule != "" {
		fmt.Fprintf(&b, "Special shipping rule: %s\n", rec.ShippingRule)
	}
	if len(rec.SourceSections) > 0 {
		fmt.Fprintf(&b, "Source sections: %s\n", strings.Join(rec.SourceSections, "; "))
	}
	fmt.Fprintf(&b, "Source URL: %s\n", rec.SourceURL)
	fmt.Fprintf(&b, "Reasoning: %s\n", rec.Reasoning)
	fmt.Fprintf(&b, "Confidence: %.0f (%s)", rec.ConfidenceScore, rec.Confidence)
	return b.String()
}
