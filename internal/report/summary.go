package report

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/taxautomation/taxbot/internal/model"
)

// FormatSummary renders the console wrap-up for a completed run.
func FormatSummary(run *model.Run, outcomes []model.StateOutcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s: %d/%d states extracted\n\n",
		run.ID, run.StatesSucceeded, run.StatesRequested)

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE\tSTATUS\tCONFIDENCE\tDETAIL")
	for _, o := range outcomes {
		if o.Succeeded() {
			fmt.Fprintf(tw, "%s\t%s\t%s (%.0f)\t%s\n",
				o.StateCode, "ok", o.Record.Confidence, o.Record.ConfidenceScore, o.Record.SourceURL)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t\t%s: %s\n", o.StateCode, "failed", o.Stage, o.Reason)
	}
	tw.Flush()

	if run.ReportPath != "" {
		fmt.Fprintf(&b, "\nReport: %s\n", run.ReportPath)
	}
	if run.EstimatedCost > 0 {
		fmt.Fprintf(&b, "Estimated LLM cost: $%.4f\n", run.EstimatedCost)
	}
	return b.String()
}
