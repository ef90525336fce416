package table

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

type Config struct {
	Sheet string // default "Invoices"
}

// Store merges batches into a workbook on disk.
type Store struct {
	cfg    Config
	logger *slog.Logger
}

func NewStore(cfg Config, logger *slog.Logger) *Store {
	if cfg.Sheet == "" {
		cfg.Sheet = "Invoices"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{cfg: cfg, logger: logger}
}

// MergeAndPersist appends rows to the workbook at dest and returns its path.
func (s *Store) MergeAndPersist(ctx context.Context, rows []invoice.FlatRow, dest string) (string, error) {
	return s.Merge(ctx, FromRows(rows), dest)
}

// Merge stages t, appends it to dest (creating the workbook when absent) and removes
// the staging file once the workbook is in place. Failures return *common.PersistenceError;
// the staging file is kept and the new rows alone are written to a .partial.xlsx file.
func (s *Store) Merge(ctx context.Context, t Table, dest string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &common.PersistenceError{Path: dest, Cause: err}
	}
	start := time.Now()

	staged, err := Stage(filepath.Dir(dest), t)
	if err != nil {
		s.logger.Warn("table.stage.failed", "error", err)
	}

	added, existing, err := s.write(t, dest)
	if err != nil {
		s.logger.Error("table.merge.failed", "path", dest, "error", err)
		perr := &common.PersistenceError{Path: dest, Cause: err}
		fallback := partialPath(dest)
		if ferr := s.writeFresh(t, fallback); ferr != nil {
			s.logger.Error("table.fallback.failed", "path", fallback, "error", ferr)
			perr.Cause = errors.Join(err, ferr)
		} else {
			perr.FallbackPath = fallback
			s.logger.Warn("table.fallback.ok", "path", fallback, "rows", len(t.Rows))
		}
		return "", perr
	}

	if staged != "" {
		if err := os.Remove(staged); err != nil {
			s.logger.Warn("table.stage.cleanup_failed", "path", staged, "error", err)
		}
	}

	s.logger.Info("table.merge.ok",
		"path", dest,
		"existing_rows", existing,
		"new_rows", len(t.Rows),
		"added_columns", added,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return dest, nil
}

// write returns the columns added to an existing workbook and its previous row count.
func (s *Store) write(t Table, dest string) ([]string, int, error) {
	if _, err := os.Stat(dest); errors.Is(err, fs.ErrNotExist) {
		return nil, 0, s.writeFresh(t, dest)
	} else if err != nil {
		return nil, 0, fmt.Errorf("stat workbook: %w", err)
	}

	f, err := excelize.OpenFile(dest)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := s.cfg.Sheet
	if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	existing, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	var header []string
	if len(existing) > 0 {
		header = existing[0]
	}
	merged, added := reconcile(header, t)

	// Extend the header and backfill historical rows for the new columns.
	for j := len(header); j < len(merged); j++ {
		if err := setCell(f, sheet, j+1, 1, merged[j]); err != nil {
			return nil, 0, err
		}
		for r := 2; r <= len(existing); r++ {
			if err := setCell(f, sheet, j+1, r, constants.NotAvailable); err != nil {
				return nil, 0, err
			}
		}
	}

	next := len(existing) + 1
	if len(existing) == 0 {
		next = 2
	}
	if err := appendRows(f, sheet, next, t, merged); err != nil {
		return nil, 0, err
	}

	rows := len(existing) - 1
	if rows < 0 {
		rows = 0
	}
	return added, rows, saveAtomic(f, dest)
}

func (s *Store) writeFresh(t Table, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := s.cfg.Sheet
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}
	if err := appendRows(f, sheet, 2, t, t.Columns); err != nil {
		return err
	}
	if n := len(t.Columns); n > 0 {
		lastCol, _ := excelize.ColumnNumberToName(n)
		_ = f.SetColWidth(sheet, "A", lastCol, 18)
	}
	return saveAtomic(f, path)
}

func appendRows(f *excelize.File, sheet string, from int, t Table, columns []string) error {
	for i := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, from+i)
		if err != nil {
			return err
		}
		row := t.Row(i, columns)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", from+i, err)
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, v)
}

// saveAtomic writes the workbook to a temp file in the destination folder and renames it
// over path.
func saveAtomic(f *excelize.File, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".inv-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	// CreateTemp uses 0600; keep the existing workbook's mode, 0644 for a new one.
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp workbook: %w", err)
	}

	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("xlsx write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp workbook: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

func partialPath(dest string) string {
	return strings.TrimSuffix(dest, filepath.Ext(dest)) + ".partial.xlsx"
}
