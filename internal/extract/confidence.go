// Package extract builds analysis prompts for state tax pages and parses the
// model's loosely structured answers into extraction results.
package extract

import "github.com/taxautomation/taxbot/internal/model"

// Thresholds holds the confidence band boundaries on the 0-100 scale. A
// boundary value belongs to the lower band.
type Thresholds struct {
	High   float64
	Medium float64
}

// DefaultThresholds returns the standard 90/70 band boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 90, Medium: 70}
}

// Classify maps a numeric confidence score to its label. Scores at exactly a
// threshold fall into the lower band: 90 is Medium, 70 is Low.
func (t Thresholds) Classify(score float64) model.Confidence {
	switch {
	case score > t.High:
		return model.ConfidenceHigh
	case score > t.Medium:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
