package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/taxautomation/taxbot/internal/model"
)

// defaultMaxContentChars bounds the page content embedded in a prompt.
const defaultMaxContentChars = 8000

const analysisPrompt = `You are a tax analysis expert specializing in %s taxation in the %s industry.

%s%s
CONTENT TO ANALYZE:
%s

EXTRACTION REQUIREMENTS:
Focus on extracting these specific tax components: %s

%s%s%s
OUTPUT FORMAT:
Respond with a single JSON object in this structure:
%s

DESCRIPTION REQUIREMENTS:
- Each description must include the exact tax rate(s), thresholds, and conditions found on the page
- Each description should be a complete, client-friendly sentence that can stand alone
- "confidence" is a number from 0 to 100 reflecting how certain you are in the extracted rates
- "reasoning" is your full natural-language justification of the analysis

CRITICAL: Only include rates that apply to %ss in %s.
If a component has no applicable information on the page, set its value to "N/A" — never guess or invent a rate.`

const entityContextCCorp = `ENTITY TYPE: This is for a C-CORPORATION (regular corporation).
- Focus ONLY on rates applicable to C-corporations
- IGNORE any rules for S-corporations, LLCs, partnerships, sole proprietorships
- IGNORE special rules for banks, insurance companies, utilities, or REITs
- Look for rates applicable to "general business taxpayers" or "all other corporations"
`

const industryContextShipping = `INDUSTRY CONTEXT: This analysis is for a SHIPPING/MARINE TRANSPORTATION company.
- Look for any special rates, exemptions, or rules for water transportation, marine services, or shipping companies
- Note any tonnage taxes, port fees, or maritime-specific tax structures
- Identify if standard corporate rates apply or if there are industry-specific overrides
`

// PromptBuilder renders the single analysis request sent to the model for
// each state.
type PromptBuilder struct {
	// MaxContentChars caps the page content embedded in the prompt.
	// Zero means the default budget.
	MaxContentChars int
}

// Build produces the analysis prompt for one state's fetched page content.
func (b *PromptBuilder) Build(cfg *model.StateConfig, content string) string {
	budget := b.MaxContentChars
	if budget <= 0 {
		budget = defaultMaxContentChars
	}

	entityLabel := strings.ReplaceAll(cfg.EntityType, "_", "-")
	content = truncateByRelevance(content, hintKeywords(cfg), budget)

	return fmt.Sprintf(analysisPrompt,
		entityLabel,
		cfg.Industry,
		entityContext(cfg.EntityType),
		industryContext(cfg.Industry),
		content,
		fieldList(cfg.IncludedFields),
		fieldInstructions(cfg.IncludedFields),
		keywordHints(cfg),
		knownRates(cfg),
		answerSchema(cfg.IncludedFields),
		entityLabel,
		cfg.Industry,
	)
}

func entityContext(entityType string) string {
	if entityType == "C_corp" {
		return entityContextCCorp
	}
	label := strings.ReplaceAll(entityType, "_", "-")
	return fmt.Sprintf("ENTITY TYPE: This is for a %s. Focus ONLY on rates applicable to that entity type.\n", label)
}

func industryContext(industry string) string {
	if industry == "shipping" {
		return industryContextShipping
	}
	return fmt.Sprintf("INDUSTRY CONTEXT: This analysis is for a company in the %s industry. Note any industry-specific rates or carve-outs.\n", industry)
}

func fieldList(fields []model.TaxField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// fieldInstructions renders one numbered line per requested component.
func fieldInstructions(fields []model.TaxField) string {
	var b strings.Builder
	for i, f := range fields {
		switch f {
		case model.FieldENI:
			fmt.Fprintf(&b, "%d. ENI (Entire Net Income): standard corporate income tax rate\n", i+1)
		case model.FieldFDM:
			fmt.Fprintf(&b, "%d. FDM (Fixed Dollar Minimum): minimum tax amounts or ranges\n", i+1)
		case model.FieldCapital:
			fmt.Fprintf(&b, "%d. Capital: capital-based tax rates, if applicable\n", i+1)
		default:
			fmt.Fprintf(&b, "%d. %s\n", i+1, f)
		}
	}
	return b.String()
}

func keywordHints(cfg *model.StateConfig) string {
	var b strings.Builder
	if len(cfg.Hints.Keywords) > 0 {
		b.WriteString("KEYWORD HINTS: the relevant content likely mentions: " + strings.Join(cfg.Hints.Keywords, ", ") + "\n")
	}
	if len(cfg.Hints.ShippingKeywords) > 0 {
		b.WriteString("SHIPPING KEYWORD HINTS: watch for: " + strings.Join(cfg.Hints.ShippingKeywords, ", ") + "\n")
	}
	return b.String()
}

// knownRates renders the configured reference rates. They are a sanity check
// for the model, not an answer to copy.
func knownRates(cfg *model.StateConfig) string {
	if len(cfg.Hints.KnownRates) == 0 {
		return ""
	}
	keys := make([]string, 0, len(cfg.Hints.KnownRates))
	for k := range cfg.Hints.KnownRates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("REFERENCE RATES (sanity check only — extract what the page actually says, and flag disagreement in reasoning):\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, cfg.Hints.KnownRates[k])
	}
	return b.String()
}

// answerSchema renders the JSON answer contract with one description key per
// requested field.
func answerSchema(fields []model.TaxField) string {
	var b strings.Builder
	b.WriteString("{\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "    %q: \"Complete sentence describing %s with full context and conditions, or N/A\",\n",
			string(f)+"_description", f.Label())
	}
	b.WriteString(`    "shipping_special_rule": "Any special rule for the shipping industry or N/A",
    "reasoning": "full natural-language justification",
    "confidence": 85,
    "source_sections": ["list of page sections or table names used"]
}`)
	return b.String()
}

// hintKeywords collects the state's configured hint keywords, lowercased,
// for relevance-scored truncation.
func hintKeywords(cfg *model.StateConfig) []string {
	var keywords []string
	seen := make(map[string]bool)
	for _, kw := range append(append([]string{}, cfg.Hints.Keywords...), cfg.Hints.ShippingKeywords...) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}
	return keywords
}

// truncateByRelevance performs keyword-aware content truncation. Instead of
// blindly cutting at a character limit, it splits content into sections,
// scores each section by hint-keyword matches, and keeps the highest-scoring
// sections within the limit, reassembled in original document order. Falls
// back to prefix truncation when no keywords are configured or the content
// has no meaningful sections. The result is deterministic for a given input.
func truncateByRelevance(content string, keywords []string, limit int) string {
	if len(content) <= limit {
		return content
	}
	if len(keywords) == 0 {
		return content[:limit]
	}

	sections := splitSections(content)
	if len(sections) <= 1 {
		return content[:limit]
	}

	type scoredSection struct {
		idx   int
		text  string
		score int
	}
	scored := make([]scoredSection, len(sections))
	for i, sec := range sections {
		lower := strings.ToLower(sec)
		score := 0
		for _, kw := range keywords {
			score += strings.Count(lower, kw)
		}
		scored[i] = scoredSection{idx: i, text: sec, score: score}
	}

	// Stable sort by score descending; ties keep document order so the
	// selection never depends on map or sort nondeterminism.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	selected := make(map[int]bool)
	totalLen := 0
	for _, s := range scored {
		if totalLen+len(s.text) > limit {
			continue
		}
		selected[s.idx] = true
		totalLen += len(s.text)
	}
	if len(selected) == 0 {
		return content[:limit]
	}

	var result strings.Builder
	for i, sec := range sections {
		if selected[i] {
			if result.Len() > 0 {
				result.WriteString("\n\n")
			}
			result.WriteString(sec)
		}
	}
	return result.String()
}

// splitSections splits page text into sections on blank lines.
func splitSections(content string) []string {
	var sections []string
	for _, part := range strings.Split(content, "\n\n") {
		if s := strings.TrimSpace(part); s != "" {
			sections = append(sections, s)
		}
	}
	return sections
}
