// Package report renders a completed run into its two artifacts: the Excel
// summary workbook and the plain-text reasoning log.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/taxautomation/taxbot/internal/model"
)

const sheetName = "State Tax Summary"

// DefaultReportPrefix is the report filename prefix when none is configured.
const DefaultReportPrefix = "multi_state_tax_summary"

// headers is the canonical column order. Readers of the workbook key off
// these names, so the order is load-bearing.
var headers = []string{
	"State",
	"State Code",
	"Nexus Standard",
	"Effective Date (Nexus)",
	"Tax Base Summary",
	"Tax Rates",
	"Source URL",
	"Sales Factor Method",
	"Effective Date (Sales Factor)",
}

// WriteExcel writes the summary workbook for a run into dir, one row per
// successful state in input order, and returns the file path. A run with no
// successes still produces a header-only workbook.
func WriteExcel(dir, prefix string, outcomes []model.StateOutcome, now time.Time) (string, error) {
	if prefix == "" {
		prefix = DefaultReportPrefix
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return "", eris.Wrap(err, "report: add sheet")
	}

	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true

	headerRow := sheet.AddRow()
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.SetStyle(headerStyle)
	}

	urlStyle := xlsx.NewStyle()
	urlStyle.Font.Color = "0000FF"
	urlStyle.Font.Underline = true

	for _, o := range outcomes {
		if !o.Succeeded() {
			continue
		}
		rec := o.Record

		row := sheet.AddRow()
		row.AddCell().SetString(rec.StateName)
		row.AddCell().SetString(rec.StateCode)
		row.AddCell().SetString(rec.NexusStandard)
		row.AddCell().SetString(rec.NexusEffectiveDate)
		row.AddCell().SetString(taxBaseSummary(rec))
		row.AddCell().SetString("") // rates live inside the summary column

		urlCell := row.AddCell()
		urlCell.SetString(rec.SourceURL)
		urlCell.SetStyle(urlStyle)

		row.AddCell().SetString(rec.SalesFactorMethod)
		row.AddCell().SetString(rec.SalesFactorDate)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.xlsx", prefix, now.Format("20060102_150405")))
	if err := f.Save(path); err != nil {
		return "", eris.Wrapf(err, "report: save workbook %s", path)
	}
	return path, nil
}

// taxBaseSummary renders the requested fields that resolved plus the
// entity/industry context. Fields the model could not resolve are simply
// absent rather than zeroed.
func taxBaseSummary(rec *model.ExtractionRecord) string {
	var parts []string
	for _, f := range model.AllTaxFields() {
		desc, ok := rec.Fields[f]
		if !ok || desc == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("**%s:** %s", f.Label(), desc))
	}
	if rec.ShippingRule != "" {
		parts = append(parts, fmt.Sprintf("**Special shipping rule:** %s", rec.ShippingRule))
	}

	summary := "No applicable rates found"
	if len(parts) > 0 {
		summary = strings.Join(parts, "\n\n")
	}

	entity := strings.ReplaceAll(rec.EntityType, "_", "-")
	return fmt.Sprintf("%s\n\n(%s in %s)", summary, entity, rec.Industry)
}
