package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
)

type fakeAcquirer struct {
	texts map[string]string
	errs  map[string]error
	mu    sync.Mutex
	calls []string
}

func (f *fakeAcquirer) Acquire(_ context.Context, path string) (ocr.AcquisitionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	if err := f.errs[path]; err != nil {
		return ocr.AcquisitionResult{Method: ocr.MethodNone}, err
	}
	return ocr.AcquisitionResult{Text: f.texts[path], Method: ocr.MethodPDFText}, nil
}

type fakeStructurer struct {
	byText map[string]string
	errs   map[string]error
	keys   []string
}

func (f *fakeStructurer) Structure(_ context.Context, text, apiKey string) (string, error) {
	f.keys = append(f.keys, apiKey)
	if err := f.errs[text]; err != nil {
		return "", err
	}
	return f.byText[text], nil
}

type fakeStore struct {
	calls int
	rows  []invoice.FlatRow
	dest  string
	err   error
}

func (f *fakeStore) MergeAndPersist(_ context.Context, rows []invoice.FlatRow, dest string) (string, error) {
	f.calls++
	f.rows = rows
	f.dest = dest
	if f.err != nil {
		return "", f.err
	}
	return dest, nil
}

type sinkFunc func(ev Event) error

func (s sinkFunc) Record(_ context.Context, ev Event) error { return s(ev) }

const twoItems = "```json\n" + `[{"company_name":"Acme","invoice_number":"1","invoice_date":"01/01/2024","fssai_number":"N/A",
"items":[{"description":"Rice","weight":"5 qtl"},{"description":"Dal","weight":"10 kg"}]}]` + "\n```"

func newDriver(a Acquirer, s llm.Structurer, store Persister, opts ...Option) *Driver {
	return NewDriver(Config{}, a, s, llm.NewParser(nil), invoice.NewFlattener(nil), store, nil, opts...)
}

func TestRun_EmptyAcquisitionSkipped(t *testing.T) {
	acq := &fakeAcquirer{
		texts: map[string]string{"a.pdf": "invoice A"},
		errs:  map[string]error{"b.pdf": fmt.Errorf("b.pdf: %w", common.ErrAcquisitionEmpty)},
	}
	st := &fakeStructurer{byText: map[string]string{"invoice A": twoItems}}
	store := &fakeStore{}
	out := t.TempDir()

	rep, err := newDriver(acq, st, store).Run(context.Background(), []string{"a.pdf", "b.pdf"}, "key", out, "report")
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls)
	assert.Len(t, store.rows, 2)
	assert.Equal(t, filepath.Join(out, "report.xlsx"), rep.Path)
	assert.Equal(t, 2, rep.Rows)
	require.Len(t, rep.Events, 2)
	assert.Equal(t, constants.DocumentSucceeded, rep.Events[0].Status)
	assert.Equal(t, constants.DocumentSkipped, rep.Events[1].Status)
	assert.Equal(t, constants.StageAcquire, rep.Events[1].Stage)
	assert.Equal(t, []string{"key"}, st.keys)

	w := store.rows[0].Weight
	require.NotNil(t, w.Kilograms)
	assert.Equal(t, "500", w.Kilograms.String())
	assert.Equal(t, "a.pdf", store.rows[0].SourceFile)
}

func TestRun_TransportFailureIsolated(t *testing.T) {
	acq := &fakeAcquirer{texts: map[string]string{"a.pdf": "text A", "b.pdf": "text B"}}
	st := &fakeStructurer{
		byText: map[string]string{"text B": `[{"company_name":"Beta","items":[{"description":"Salt"}]}]`},
		errs:   map[string]error{"text A": &common.TransportError{Status: 500, Body: "boom"}},
	}
	store := &fakeStore{}

	rep, err := newDriver(acq, st, store).Run(context.Background(), []string{"a.pdf", "b.pdf"}, "key", t.TempDir(), "")
	require.NoError(t, err)

	require.Len(t, store.rows, 1)
	assert.Equal(t, "Beta", store.rows[0].CompanyName)
	assert.Equal(t, constants.DocumentFailed, rep.Events[0].Status)
	assert.Equal(t, constants.StageStructure, rep.Events[0].Stage)
	assert.Contains(t, rep.Events[0].Reason, "500")
	assert.Equal(t, constants.DefaultOutputName, filepath.Base(store.dest))
}

func TestRun_MalformedAndEmptyCompletionSkipped(t *testing.T) {
	acq := &fakeAcquirer{texts: map[string]string{"a.pdf": "A", "b.pdf": "B", "c.pdf": "C"}}
	st := &fakeStructurer{byText: map[string]string{
		"A": "I could not read this",
		"B": "   ",
		"C": `[{"company_name":"Gamma"}]`,
	}}
	store := &fakeStore{}

	rep, err := newDriver(acq, st, store).Run(context.Background(), []string{"a.pdf", "b.pdf", "c.pdf"}, "", t.TempDir(), "x")
	require.NoError(t, err)

	assert.Equal(t, constants.StageParse, rep.Events[0].Stage)
	assert.Equal(t, constants.DocumentFailed, rep.Events[0].Status)
	assert.Equal(t, constants.DocumentSkipped, rep.Events[1].Status)
	require.Len(t, store.rows, 1)
	assert.Equal(t, constants.NotAvailable, store.rows[0].Description)
}

func TestRun_NoData(t *testing.T) {
	acq := &fakeAcquirer{errs: map[string]error{"a.pdf": common.ErrAcquisitionEmpty}}
	store := &fakeStore{}

	rep, err := newDriver(acq, &fakeStructurer{}, store).Run(context.Background(), []string{"a.pdf"}, "k", t.TempDir(), "x")
	assert.ErrorIs(t, err, ErrNoData)
	assert.Zero(t, store.calls)
	assert.Empty(t, rep.Path)
	assert.Len(t, rep.Events, 1)
}

func TestRun_PersistenceFailureSurfaced(t *testing.T) {
	acq := &fakeAcquirer{texts: map[string]string{"a.pdf": "A"}}
	st := &fakeStructurer{byText: map[string]string{"A": `[{"company_name":"Acme"}]`}}
	store := &fakeStore{err: &common.PersistenceError{Path: "x.xlsx", Cause: errors.New("disk full")}}

	rep, err := newDriver(acq, st, store).Run(context.Background(), []string{"a.pdf"}, "k", t.TempDir(), "x")
	assert.ErrorIs(t, err, common.ErrPersistenceFailure)
	assert.Equal(t, 1, rep.Rows)
	assert.Empty(t, rep.Path)
}

func TestRun_ParallelAcquisitionKeepsOrder(t *testing.T) {
	docs := []string{"1.pdf", "2.pdf", "3.pdf", "4.pdf", "5.pdf"}
	acq := &fakeAcquirer{texts: map[string]string{}}
	st := &fakeStructurer{byText: map[string]string{}}
	for _, d := range docs {
		acq.texts[d] = "text " + d
		st.byText["text "+d] = fmt.Sprintf(`[{"company_name":%q}]`, d)
	}
	store := &fakeStore{}

	var seen []string
	sink := sinkFunc(func(ev Event) error {
		seen = append(seen, ev.Document)
		return errors.New("ledger down")
	})

	d := NewDriver(Config{Workers: 3}, acq, st, llm.NewParser(nil), invoice.NewFlattener(nil), store, nil, WithSink(sink))
	rep, err := d.Run(context.Background(), docs, "k", t.TempDir(), "x")
	require.NoError(t, err)

	require.Len(t, store.rows, len(docs))
	for i, doc := range docs {
		assert.Equal(t, doc, store.rows[i].CompanyName)
		assert.Equal(t, rep.RunID, rep.Events[i].RunID)
	}
	assert.Equal(t, docs, seen)
	assert.Len(t, acq.calls, len(docs))
}
