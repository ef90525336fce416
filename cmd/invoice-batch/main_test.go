package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

func TestRootCmd_RequiresFourArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"a.pdf", "key", "out"})
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 4 arg(s)")
}

func TestSplitArgs(t *testing.T) {
	docs, key, out, name := splitArgs([]string{"a.pdf", "b.pdf", "dir", "sk-1", "./out", "report"})
	assert.Equal(t, []string{"a.pdf", "b.pdf", "dir"}, docs)
	assert.Equal(t, "sk-1", key)
	assert.Equal(t, "./out", out)
	assert.Equal(t, "report", name)
}

func TestNewStructurer(t *testing.T) {
	s, err := newStructurer(common.LLMConfig{Provider: "gemini", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, s)

	s, err = newStructurer(common.LLMConfig{Provider: "openai", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = newStructurer(common.LLMConfig{Provider: "openai", Charset: "ebcdic"}, nil)
	assert.Error(t, err)
}

func TestFinish(t *testing.T) {
	rep := pipeline.Report{Path: "out/invoice_data.xlsx"}
	assert.NoError(t, finish(rep, nil))
	assert.NoError(t, finish(rep, pipeline.ErrNoData))

	perr := &common.PersistenceError{Path: "out/x.xlsx", FallbackPath: "out/x.partial.xlsx", Cause: errors.New("disk full")}
	assert.NoError(t, finish(rep, perr), "a failed merge is reported, not a process failure")

	other := errors.New("boom")
	assert.ErrorIs(t, finish(rep, other), other)
}

func TestOpenLedger_RecordsRun(t *testing.T) {
	ctx := context.Background()
	l, err := openLedger(ctx, filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	ev := pipeline.Event{RunID: "r1", Document: "a.pdf", Status: constants.DocumentSucceeded, Stage: constants.StageFlatten, Rows: 2}
	require.NoError(t, ledgerSink{l: l}.Record(ctx, ev))

	got, err := l.ListRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Rows)
	logLedgerRun(ctx, l, "r1", nil)
}
