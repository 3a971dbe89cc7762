package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taxautomation/taxbot/internal/config"
	"github.com/taxautomation/taxbot/internal/cost"
	"github.com/taxautomation/taxbot/internal/extract"
	"github.com/taxautomation/taxbot/internal/fetch"
	"github.com/taxautomation/taxbot/internal/llm"
	"github.com/taxautomation/taxbot/internal/pipeline"
	"github.com/taxautomation/taxbot/internal/report"
	"github.com/taxautomation/taxbot/internal/store"
)

var (
	extractStates      string
	extractEntityType  string
	extractIndustry    string
	extractOutputDir   string
	extractConcurrency int
)

var extractCmd = &cobra.Command{
	Use:   "extract [states...]",
	Short: "Extract corporate tax rates for a set of states",
	Long:  "Runs the full pipeline for each state: load rules, fetch the agency page, analyze with the configured LLM, and write the Excel report plus reasoning log. A state failing never stops the others.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		codes := resolveStateCodes(args)
		if len(codes) == 0 {
			return eris.New("no states to process")
		}

		outputDir := extractOutputDir
		if outputDir == "" {
			outputDir = cfg.Output.Dir
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", outputDir)
		}

		client, err := llm.New(ctx, cfg.LLM)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		chain := fetch.NewChain(
			fetch.NewHTTPFetcher(fetch.HTTPOptions{
				UserAgent:       cfg.Fetch.UserAgent,
				Timeout:         time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
				MaxBodyBytes:    cfg.Fetch.MaxBodyBytes,
				MinContentChars: cfg.Fetch.MinContentChars,
				RateLimiters:    fetch.PerHostRateLimiters(cfg.Fetch.RatePerHost),
			}),
			fetch.NewFTPFetcher(fetch.FTPOptions{
				Timeout:      time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
				MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
			}),
		)

		calc := cost.NewCalculator(costRates(cfg))

		p := pipeline.New(chain, client, st, calc, pipeline.Options{
			StatesDir:   cfg.States.Dir,
			EntityType:  extractEntityType,
			Industry:    extractIndustry,
			Concurrency: extractConcurrency,
			LLMRate:     cfg.LLM.RatePerSec,
			Thresholds: extract.Thresholds{
				High:   cfg.Extract.ConfidenceHigh,
				Medium: cfg.Extract.ConfidenceMedium,
			},
			Prompt: &extract.PromptBuilder{MaxContentChars: cfg.Extract.MaxContentChars},
		})

		zap.L().Info("extract: starting run",
			zap.Strings("states", codes),
			zap.String("provider", client.Provider()),
			zap.Int("concurrency", extractConcurrency),
		)

		run, outcomes, err := p.Run(ctx, codes)
		if err != nil {
			return err
		}

		reportPath, err := report.WriteExcel(outputDir, cfg.Output.ReportPrefix, outcomes, time.Now())
		if err != nil {
			return err
		}
		run.ReportPath = reportPath

		logPath, err := report.WriteReasoningLog(outputDir, cfg.Output.ReasoningLog, outcomes)
		if err != nil {
			return err
		}

		if err := p.Finish(ctx, run); err != nil {
			zap.L().Warn("extract: failed to persist run accounting", zap.Error(err))
		}

		fmt.Fprint(os.Stdout, report.FormatSummary(run, outcomes))
		fmt.Fprintf(os.Stdout, "Reasoning log: %s\n", logPath)
		return nil
	},
}

// resolveStateCodes picks the batch: positional args beat the --states flag,
// which beats the configured default set.
func resolveStateCodes(args []string) []string {
	raw := args
	if len(raw) == 0 && extractStates != "" {
		raw = strings.Split(extractStates, ",")
	}
	if len(raw) == 0 {
		raw = cfg.States.Default
	}

	var codes []string
	for _, c := range raw {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open audit store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate audit store")
	}
	return st, nil
}

// costRates layers configured per-model prices over the built-in defaults.
func costRates(c *config.Config) cost.Rates {
	return cost.MergeOverrides(cost.DefaultRates(),
		convertRates(c.Cost.Gemini), convertRates(c.Cost.Anthropic))
}

func convertRates(in map[string]config.ModelRate) map[string]cost.ModelRate {
	out := make(map[string]cost.ModelRate, len(in))
	for model, r := range in {
		out[model] = cost.ModelRate{Input: r.Input, Output: r.Output}
	}
	return out
}

func init() {
	extractCmd.Flags().StringVar(&extractStates, "states", "", "comma-separated state codes (e.g. NY,CA)")
	extractCmd.Flags().StringVar(&extractEntityType, "entity-type", "C_corp", "entity type the rates must apply to")
	extractCmd.Flags().StringVar(&extractIndustry, "industry", "shipping", "industry context for the analysis")
	extractCmd.Flags().StringVar(&extractOutputDir, "output-dir", "", "report directory (default from config)")
	extractCmd.Flags().IntVar(&extractConcurrency, "concurrency", 1, "states processed in parallel")
	rootCmd.AddCommand(extractCmd)
}
