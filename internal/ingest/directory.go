// Package ingest resolves command-line arguments into the ordered list of documents to process.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Deduplicated uint32
	Failed       uint32
}

// Discover expands args into documents. Files are taken as given, even when missing, so
// the batch reports them per document. Directories are walked in lexical order; hidden
// entries are skipped and only allowed extensions are kept. A path seen twice is kept once,
// at its first position.
func Discover(ctx context.Context, args []string, logger *slog.Logger) ([]string, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		docs  []string
		stats DirStats
		seen  = map[string]struct{}{}
	)
	add := func(path string) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if _, ok := seen[key]; ok {
			stats.Deduplicated++
			return
		}
		seen[key] = struct{}{}
		docs = append(docs, path)
	}

	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			return docs, stats, err
		}
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			stats.Scanned++
			stats.Matched++
			add(arg)
			continue
		}
		if err := walkDir(ctx, arg, &stats, add, logger); err != nil {
			return docs, stats, err
		}
	}

	logger.Info("ingest.discover.ok",
		"args", len(args),
		"documents", len(docs),
		"scanned", stats.Scanned,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return docs, stats, nil
}

func walkDir(ctx context.Context, root string, stats *DirStats, add func(string), logger *slog.Logger) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			logger.Warn("ingest.walk.error", "path", path, "error", walkErr)
			stats.Failed++
			return nil // continue walking
		}
		if path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !constants.IsAllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		add(path)
		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipDir) {
		return fmt.Errorf("walk %s: %w", root, err)
	}
	return nil
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
