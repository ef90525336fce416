package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

func TestLedger_RecordAndList(t *testing.T) {
	ctx := context.Background()
	l, err := Open(ctx, Config{Path: filepath.Join(t.TempDir(), "runs.db")}, nil)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	require.NoError(t, l.HealthCheck(ctx, time.Second))

	require.NoError(t, l.Record(ctx, Entry{RunID: "r1", Document: "a.pdf", Status: constants.DocumentSucceeded, Stage: constants.StageFlatten, Rows: 3}))
	require.NoError(t, l.Record(ctx, Entry{RunID: "r2", Document: "x.pdf", Status: constants.DocumentSucceeded, Stage: constants.StageFlatten, Rows: 1}))
	require.NoError(t, l.Record(ctx, Entry{RunID: "r1", Document: "b.pdf", Status: constants.DocumentSkipped, Stage: constants.StageAcquire, Reason: "no text acquired"}))

	got, err := l.ListRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.pdf", got[0].Document)
	assert.Equal(t, 3, got[0].Rows)
	assert.Equal(t, constants.DocumentSkipped, got[1].Status)
	assert.Equal(t, constants.StageAcquire, got[1].Stage)
	assert.Equal(t, "no text acquired", got[1].Reason)
	assert.False(t, got[1].CreatedAt.IsZero())
}

func TestLedger_ReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	l, err := Open(ctx, Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, Entry{RunID: "r1", Document: "a.pdf", Status: constants.DocumentFailed, Stage: constants.StageStructure}))
	require.NoError(t, l.Close())

	l, err = Open(ctx, Config{Path: path}, nil)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	got, err := l.ListRun(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
