package gemini

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

type recorder struct {
	mu     sync.Mutex
	paths  []string
	keys   []string
	bodies []string
}

func (r *recorder) add(req *http.Request) string {
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, req.URL.Path)
	key := req.Header.Get("x-goog-api-key")
	if key == "" {
		key = req.URL.Query().Get("key")
	}
	r.keys = append(r.keys, key)
	r.bodies = append(r.bodies, string(b))
	return string(b)
}

func newServer(t *testing.T, rec *recorder, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okBody = `{"candidates":[{"content":{"role":"model","parts":[{"text":"[{\"company_name\":\"Acme\"}]"}]}}]}`

func TestStructure_Success(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, http.StatusOK, okBody)

	c := NewClient(Config{APIKey: "cfg-key", BaseURL: srv.URL + "/", Model: "test-model", Temperature: 0.1, MaxTokens: 256}, nil)
	out, err := c.Structure(context.Background(), "Invoice text", "call-key")
	require.NoError(t, err)
	assert.Equal(t, `[{"company_name":"Acme"}]`, out)

	require.Len(t, rec.paths, 1)
	assert.Contains(t, rec.paths[0], "test-model")
	assert.True(t, strings.HasSuffix(rec.paths[0], ":generateContent"), rec.paths[0])
	assert.Equal(t, "call-key", rec.keys[0])
	assert.Contains(t, rec.bodies[0], "Invoice text")
	assert.Contains(t, rec.bodies[0], "256")
}

func TestStructure_Non2xxIsTransportFailure(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, http.StatusForbidden,
		`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/"}, nil)
	_, err := c.Structure(context.Background(), "x", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransportFailure)

	var te *common.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusForbidden, te.Status)
}

func TestStructure_DegradedRetryUnderLatin1(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, http.StatusOK, okBody)

	cs, err := llm.ParseCharset("latin1")
	require.NoError(t, err)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/", Charset: cs}, nil)
	_, err = c.Structure(context.Background(), "Rate ₹40 per kg", "")
	require.NoError(t, err)

	require.Len(t, rec.bodies, 1, "the unencodable prompt is never sent")
	assert.Contains(t, rec.bodies[0], "Rs.40")
	assert.NotContains(t, rec.bodies[0], "₹")
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil)
	assert.Equal(t, "gemini-1.5-flash", c.cfg.Model)
	assert.Equal(t, 4096, c.cfg.MaxTokens)
	assert.Equal(t, 60*time.Second, c.cfg.Timeout)
	assert.Equal(t, 60*time.Second, c.http.Timeout)
}

func TestTransportError_KeepsStatus(t *testing.T) {
	err := transportError(genai.APIError{Code: 403, Message: "API key not valid", Status: "PERMISSION_DENIED"})
	assert.ErrorIs(t, err, common.ErrTransportFailure)

	var te *common.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 403, te.Status)
	assert.Equal(t, "API key not valid", te.Body)
}

func TestTransportError_Plain(t *testing.T) {
	err := transportError(errors.New("dial tcp: refused"))
	assert.ErrorIs(t, err, common.ErrTransportFailure)

	var te *common.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.Status)
}
