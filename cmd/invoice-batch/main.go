package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/ledger"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/table"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type options struct {
	configPath string
	provider   string
	workers    int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "invoice-batch <pdf-or-dir>... <api_key> <output_folder> <filename>",
		Short: "Extract invoice line items from PDFs into a spreadsheet",
		Long: "Reads every PDF (directories are searched for PDFs), structures the invoice text with an LLM\n" +
			"and appends one row per line item to <output_folder>/<filename>.xlsx.",
		Args:          cobra.MinimumNArgs(4),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd.Context(), opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "optional YAML config file overlaid on the environment")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "LLM provider: openai or gemini (overrides LLM_PROVIDER)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel text acquisition workers (overrides PIPELINE_WORKERS)")
	return cmd
}

func run(parent context.Context, opts options, args []string) error {
	inputs, credential, outDir, filename := splitArgs(args)

	cfg := common.LoadConfig()
	if opts.configPath != "" {
		if err := cfg.MergeYAMLFile(opts.configPath); err != nil {
			return err
		}
	}
	if opts.provider != "" {
		cfg.LLM.Provider = opts.provider
	}
	if opts.workers > 0 {
		cfg.Pipeline.Workers = opts.workers
	}
	if strings.TrimSpace(credential) != "" {
		cfg.LLM.APIKey = credential
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	docs, _, err := ingest.Discover(ctx, inputs, logger)
	if err != nil {
		return common.WrapError(err, "discover documents")
	}
	if len(docs) == 0 {
		return common.NewAppError("INPUT_ERROR", "no documents found", common.ErrInvalidInput)
	}

	structurer, err := newStructurer(cfg.LLM, logger)
	if err != nil {
		return err
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.Lang,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
		TessdataDir:   cfg.OCR.TessdataDir,
		PSM:           cfg.OCR.PSM,
		OEM:           cfg.OCR.OEM,
	}, logger)

	var (
		driverOpts []pipeline.Option
		runLedger  *ledger.Ledger
	)
	if cfg.Ledger.Path != "" {
		runLedger, err = openLedger(ctx, cfg.Ledger.Path, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := runLedger.Close(); err != nil {
				logger.Warn("ledger.close.failed", "error", err)
			}
		}()
		driverOpts = append(driverOpts, pipeline.WithSink(ledgerSink{l: runLedger}))
	}

	driver := pipeline.NewDriver(
		pipeline.Config{Workers: cfg.Pipeline.Workers},
		extractor,
		structurer,
		llm.NewParser(logger),
		invoice.NewFlattener(logger),
		table.NewStore(table.Config{Sheet: cfg.Table.Sheet}, logger),
		logger,
		driverOpts...,
	)

	report, err := driver.Run(ctx, docs, credential, outDir, filename)
	printReport(report)
	if runLedger != nil {
		logLedgerRun(ctx, runLedger, report.RunID, logger)
	}
	return finish(report, err)
}

// finish reports the batch outcome. No data and a failed merge are reported but not
// treated as process failures; the failed merge leaves its partial workbook behind.
func finish(report pipeline.Report, err error) error {
	var perr *common.PersistenceError
	switch {
	case err == nil:
		fmt.Printf("Data saved to %s\n", report.Path)
		return nil
	case errors.Is(err, pipeline.ErrNoData):
		fmt.Println("No data extracted.")
		return nil
	case errors.As(err, &perr):
		printError("Error: %v\n", err)
		if perr.FallbackPath != "" {
			printError("New rows were saved to %s\n", perr.FallbackPath)
		}
		return nil
	}
	return err
}

// openLedger opens the run ledger and checks it answers before the batch starts.
func openLedger(ctx context.Context, path string, logger *slog.Logger) (*ledger.Ledger, error) {
	l, err := ledger.Open(ctx, ledger.Config{Path: path}, logger)
	if err != nil {
		return nil, err
	}
	if err := l.HealthCheck(ctx, time.Second); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("ledger health: %w", err)
	}
	return l, nil
}

func logLedgerRun(ctx context.Context, l *ledger.Ledger, runID string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := l.ListRun(ctx, runID)
	if err != nil {
		logger.Warn("ledger.list.failed", "run_id", runID, "error", err)
		return
	}
	logger.Info("ledger.run.recorded", "run_id", runID, "entries", len(entries))
}

// splitArgs separates the trailing credential, output folder and file name from the
// documents. args holds at least four entries.
func splitArgs(args []string) (docs []string, credential, outDir, filename string) {
	n := len(args)
	return args[:n-3], args[n-3], args[n-2], args[n-1]
}

func newStructurer(cfg common.LLMConfig, logger *slog.Logger) (llm.Structurer, error) {
	cs, err := llm.ParseCharset(cfg.Charset)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "invalid LLM_CHARSET", err)
	}
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			Charset:     cs,
		}, logger), nil
	default:
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			Charset:     cs,
		}, logger), nil
	}
}

func printReport(r pipeline.Report) {
	fmt.Printf("Run %s: %d documents, %d rows (%d succeeded, %d skipped, %d failed) in %s\n",
		r.RunID, len(r.Events), r.Rows,
		r.Count(constants.DocumentSucceeded),
		r.Count(constants.DocumentSkipped),
		r.Count(constants.DocumentFailed),
		r.Duration.Round(time.Millisecond),
	)
	for _, ev := range r.Events {
		line := fmt.Sprintf("  %-9s %-9s %s", ev.Status, ev.Stage, ev.Document)
		if ev.Rows > 0 {
			line += fmt.Sprintf(" (%d rows)", ev.Rows)
		}
		if ev.Reason != "" {
			line += ": " + ev.Reason
		}
		fmt.Println(line)
	}
}

type ledgerSink struct {
	l *ledger.Ledger
}

func (s ledgerSink) Record(ctx context.Context, ev pipeline.Event) error {
	return s.l.Record(ctx, ledger.Entry{
		RunID:    ev.RunID,
		Document: ev.Document,
		Status:   ev.Status,
		Stage:    ev.Stage,
		Reason:   ev.Reason,
		Rows:     ev.Rows,
	})
}
