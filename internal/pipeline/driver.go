// Package pipeline runs a batch of invoice documents through acquisition, structuring,
// parsing and flattening, then persists the accumulated rows once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
)

// ErrNoData is returned when the batch produced no rows; nothing is written.
var ErrNoData = errors.New("no data extracted")

type Acquirer interface {
	Acquire(ctx context.Context, path string) (ocr.AcquisitionResult, error)
}

type Parser interface {
	Parse(completion string) ([]invoice.Record, error)
}

type Flattener interface {
	Flatten(records []invoice.Record, source string) []invoice.FlatRow
}

type Persister interface {
	MergeAndPersist(ctx context.Context, rows []invoice.FlatRow, dest string) (string, error)
}

// Sink receives every document event. Sink errors are logged and never fail the batch.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

type Config struct {
	Workers int // parallel text acquisition; 1 = sequential
}

type Driver struct {
	cfg        Config
	acquirer   Acquirer
	structurer llm.Structurer
	parser     Parser
	flattener  Flattener
	store      Persister
	sink       Sink
	logger     *slog.Logger
}

type Option func(*Driver)

// WithSink attaches an event sink such as the run ledger.
func WithSink(s Sink) Option {
	return func(d *Driver) { d.sink = s }
}

func NewDriver(cfg Config, a Acquirer, s llm.Structurer, p Parser, f Flattener, store Persister, logger *slog.Logger, opts ...Option) *Driver {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Driver{cfg: cfg, acquirer: a, structurer: s, parser: p, flattener: f, store: store, logger: logger}
	for _, o := range opts {
		o(d)
	}
	return d
}

type acquired struct {
	res ocr.AcquisitionResult
	err error
}

// Run processes docs in order and merges every extracted row into
// destination/filename. A document failing at any stage is reported and skipped.
// It returns ErrNoData when no rows were extracted and a *common.PersistenceError when
// the merge fails; the Report is filled in either case.
func (d *Driver) Run(ctx context.Context, docs []string, credential, destination, filename string) (Report, error) {
	start := time.Now()
	runID := uuid.New().String()
	ctx = common.WithRunID(ctx, runID)
	log := d.logger.With("run_id", runID)
	report := Report{RunID: runID}

	dest := filepath.Join(destination, constants.EnsureXLSX(filename))
	log.Info("pipeline.run.start", "documents", len(docs), "dest", dest, "workers", d.cfg.Workers)

	texts := d.acquireAll(ctx, docs)

	var rows []invoice.FlatRow
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
		ev, docRows := d.process(common.WithDocument(ctx, doc), doc, credential, texts[i])
		ev.RunID = runID
		rows = append(rows, docRows...)
		report.Events = append(report.Events, ev)
		d.emit(ctx, log, ev)
	}

	report.Rows = len(rows)
	if len(rows) == 0 {
		report.Duration = time.Since(start)
		log.Warn("pipeline.run.no_data", "documents", len(docs), "elapsed_ms", report.Duration.Milliseconds())
		return report, ErrNoData
	}

	if err := os.MkdirAll(destination, 0o755); err != nil {
		report.Duration = time.Since(start)
		return report, &common.PersistenceError{Path: dest, Cause: fmt.Errorf("create output folder: %w", err)}
	}
	path, err := d.store.MergeAndPersist(ctx, rows, dest)
	report.Duration = time.Since(start)
	if err != nil {
		log.Error("pipeline.run.persist_failed", "dest", dest, "rows", len(rows), "error", err)
		return report, err
	}
	report.Path = path

	log.Info("pipeline.run.ok",
		"path", path,
		"rows", len(rows),
		"succeeded", report.Count(constants.DocumentSucceeded),
		"skipped", report.Count(constants.DocumentSkipped),
		"failed", report.Count(constants.DocumentFailed),
		"elapsed_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// acquireAll runs text acquisition for every document, in parallel when configured.
// Results are indexed by document position.
func (d *Driver) acquireAll(ctx context.Context, docs []string) []acquired {
	out := make([]acquired, len(docs))
	if d.cfg.Workers == 1 {
		for i, doc := range docs {
			out[i] = d.acquire(ctx, doc)
		}
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)
	for i, doc := range docs {
		g.Go(func() error {
			out[i] = d.acquire(gctx, doc)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (d *Driver) acquire(ctx context.Context, doc string) (a acquired) {
	defer func() {
		if r := recover(); r != nil {
			a = acquired{err: fmt.Errorf("acquisition panic: %v", r)}
		}
	}()
	res, err := d.acquirer.Acquire(common.WithDocument(ctx, doc), doc)
	return acquired{res: res, err: err}
}

// process runs the stages after acquisition for one document.
func (d *Driver) process(ctx context.Context, doc, credential string, a acquired) (ev Event, rows []invoice.FlatRow) {
	start := time.Now()
	ev = Event{Document: doc, Method: a.res.Method}
	defer func() {
		if r := recover(); r != nil {
			ev.Status = constants.DocumentFailed
			ev.Reason = fmt.Sprintf("panic: %v", r)
			rows = nil
		}
		ev.Elapsed = time.Since(start) + a.res.Duration
	}()

	ev.Stage = constants.StageAcquire
	if a.err != nil {
		ev.Status = constants.DocumentFailed
		if errors.Is(a.err, common.ErrAcquisitionEmpty) {
			ev.Status = constants.DocumentSkipped
		}
		ev.Reason = a.err.Error()
		return ev, nil
	}
	if strings.TrimSpace(a.res.Text) == "" {
		ev.Status = constants.DocumentSkipped
		ev.Reason = common.ErrAcquisitionEmpty.Error()
		return ev, nil
	}

	ev.Stage = constants.StageStructure
	completion, err := d.structurer.Structure(ctx, a.res.Text, credential)
	if err != nil {
		ev.Status = constants.DocumentFailed
		ev.Reason = err.Error()
		return ev, nil
	}
	if strings.TrimSpace(completion) == "" {
		ev.Status = constants.DocumentSkipped
		ev.Reason = "empty completion"
		return ev, nil
	}

	ev.Stage = constants.StageParse
	records, err := d.parser.Parse(completion)
	if err != nil {
		ev.Status = constants.DocumentFailed
		ev.Reason = err.Error()
		return ev, nil
	}

	ev.Stage = constants.StageFlatten
	rows = d.flattener.Flatten(records, doc)
	ev.Rows = len(rows)
	if len(rows) == 0 {
		ev.Status = constants.DocumentSkipped
		ev.Reason = "no invoices found"
		return ev, nil
	}
	ev.Status = constants.DocumentSucceeded
	return ev, rows
}

func (d *Driver) emit(ctx context.Context, log *slog.Logger, ev Event) {
	attrs := []any{
		"document", ev.Document,
		"stage", ev.Stage,
		"rows", ev.Rows,
		"method", ev.Method,
		"elapsed_ms", ev.Elapsed.Milliseconds(),
	}
	switch ev.Status {
	case constants.DocumentSucceeded:
		log.Info("pipeline.document.succeeded", attrs...)
	case constants.DocumentSkipped:
		log.Warn("pipeline.document.skipped", append(attrs, "reason", ev.Reason)...)
	default:
		log.Error("pipeline.document.failed", append(attrs, "reason", ev.Reason)...)
	}
	if d.sink != nil {
		if err := d.sink.Record(ctx, ev); err != nil {
			log.Warn("pipeline.sink.failed", "document", ev.Document, "error", err)
		}
	}
}
