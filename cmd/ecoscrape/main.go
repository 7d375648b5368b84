// ecoscrape — company financial data acquisition & ratio analysis
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/freddycharles/ecoscrape/internal/catalog"
	"github.com/freddycharles/ecoscrape/internal/config"
	"github.com/freddycharles/ecoscrape/internal/edgar"
	"github.com/freddycharles/ecoscrape/internal/extract"
	"github.com/freddycharles/ecoscrape/internal/fetch"
	"github.com/freddycharles/ecoscrape/internal/infra"
	"github.com/freddycharles/ecoscrape/internal/pipeline"
	"github.com/freddycharles/ecoscrape/internal/ratio"
	"github.com/freddycharles/ecoscrape/internal/resolve"
	"github.com/freddycharles/ecoscrape/internal/store"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, initialized in PersistentPreRunE.
var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Operator-facing message, distinct from the log stream.
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ecoscrape",
	Short: "ecoscrape — financial data acquisition & ratio analysis",
	Long: `ecoscrape acquires company financial data from loosely-structured
web sources, persists extracted metrics per company, and derives
financial ratios (current ratio, debt-to-equity, net profit margin)
from a tabular facts file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		log = newLogger(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(filingsCmd)
}

// newLogger builds the process logger from config.
func newLogger(lc config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out io.Writer = os.Stderr
	if lc.Format != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ecoscrape %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Scrape Command ---

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Acquire company metrics from web sources",
	Long: `Run the acquisition path. By default every company on the configured
index page is processed; --company (optionally with --url) targets a
single company instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		company, _ := cmd.Flags().GetString("company")
		refURL, _ := cmd.Flags().GetString("url")
		indexURL, _ := cmd.Flags().GetString("index")
		if indexURL == "" {
			indexURL = cfg.Catalog.IndexURL
		}

		limiter := infra.NewHostLimiter(cfg.Scrape.PerHostRPS, 1)
		fetcher := fetch.New(fetch.Options{
			Timeout:   cfg.Scrape.Timeout(),
			UserAgent: cfg.Scrape.UserAgent,
			Limiter:   limiter,
		}, log)

		var cat catalog.Catalog
		switch {
		case company != "":
			cat = &catalog.StaticCatalog{Name: company, URL: refURL}
		case indexURL != "":
			cat = catalog.NewTableCatalog(fetcher, indexURL, log)
		default:
			return fmt.Errorf("no catalog: set --company or configure catalog.index_url")
		}

		st, err := store.New(cfg.Scrape.DataDir, log)
		if err != nil {
			return err
		}

		p := pipeline.New(
			cat,
			resolve.New(fetcher, cfg.Scrape.FinancePatterns, log),
			fetcher,
			extract.New(log),
			st,
			pipeline.Options{
				Concurrency:     cfg.Scrape.Concurrency,
				MinSuccessRatio: cfg.Scrape.MinSuccessRatio,
				Descriptors:     cfg.Scrape.Metrics,
			},
			log,
		)

		report, err := p.Run(cmd.Context())
		if report != nil {
			fmt.Printf("Acquisition complete: %d/%d companies succeeded. Metrics in %s\n",
				report.Succeeded, report.Total, cfg.Scrape.DataDir)
		}
		return err
	},
}

func init() {
	scrapeCmd.Flags().String("company", "", "single company name to scrape")
	scrapeCmd.Flags().String("url", "", "reference URL for --company")
	scrapeCmd.Flags().String("index", "", "catalog index page URL override")
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute financial ratios from a facts CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		if input == "" {
			input = cfg.Analyze.InputCSV
		}
		if output == "" {
			output = cfg.Analyze.OutputCSV
		}

		rows, err := ratio.LoadFinancials(input, log)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			log.Warn().Str("input", input).Msg("no data rows in input, skipping ratio output")
			fmt.Println("No data rows found; nothing to analyze.")
			return nil
		}

		results := ratio.NewEngine(log).Compute(rows)
		if err := ratio.WriteRatios(output, results); err != nil {
			return err
		}

		fmt.Printf("Analysis complete. Results saved to %s (%d rows)\n", output, len(results))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("input", "", "financial facts CSV (default from config)")
	analyzeCmd.Flags().String("output", "", "ratio results CSV (default from config)")
}

// --- Filings Command ---

var filingsCmd = &cobra.Command{
	Use:   "filings",
	Short: "Download recent regulatory filings from SEC EDGAR",
	RunE: func(cmd *cobra.Command, args []string) error {
		tickersFile, _ := cmd.Flags().GetString("tickers")
		if tickersFile == "" {
			tickersFile = cfg.Edgar.IdentifiersFile
		}

		ids, err := edgar.LoadIdentifiers(tickersFile)
		if err != nil {
			return err
		}

		client := edgar.NewClient(cfg.Edgar.UserAgent, log)
		ctx := cmd.Context()

		failed := 0
		saved := 0
		for _, id := range ids {
			filings, err := client.RecentFilings(ctx, id, cfg.Edgar.FilingType, cfg.Edgar.Limit)
			if err == nil && len(filings) > 0 {
				var n int
				n, err = client.Download(ctx, filings, cfg.Edgar.DownloadDir)
				saved += n
			}
			if err != nil {
				log.Error().Str("phase", "acquisition").Str("ticker", id).Err(err).
					Msg("filing acquisition failed")
				failed++
			}
		}

		fmt.Printf("Filing download complete: %d/%d tickers succeeded, %d documents saved to %s\n",
			len(ids)-failed, len(ids), saved, cfg.Edgar.DownloadDir)
		if failed == len(ids) {
			return fmt.Errorf("filing download failed for all %d tickers", len(ids))
		}
		return nil
	},
}

func init() {
	filingsCmd.Flags().String("tickers", "", "identifiers file, one ticker/CIK per line")
}
