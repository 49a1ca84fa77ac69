package plex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

// recordingPrompter captures printed lines and never expects input
type recordingPrompter struct {
	lines []string
}

func (p *recordingPrompter) Println(a ...any) {
	p.lines = append(p.lines, strings.TrimSpace(fmt.Sprintln(a...)))
}

func (p *recordingPrompter) Prompt(string) (string, error)       { return "", io.EOF }
func (p *recordingPrompter) PromptSecret(string) (string, error) { return "", io.EOF }

func newTestAuthFlow(srv *httptest.Server) *AuthFlow {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewAuthClient(srv.URL, "test-client", shared.NewTransport(testTransport, logger), logger)
	client.interval = time.Millisecond
	return &AuthFlow{client: client}
}

func TestAuthFlowWaitsForClaim(t *testing.T) {
	var checks atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/pins", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-client", r.Header.Get("X-Plex-Client-Identifier"))
		_, _ = w.Write([]byte(`{"id":7,"code":"ABCD"}`))
	})
	mux.HandleFunc("GET /api/v2/pins/7", func(w http.ResponseWriter, r *http.Request) {
		if checks.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"id":7,"code":"ABCD","authToken":null}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":7,"code":"ABCD","authToken":"tok-123"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := &recordingPrompter{}
	result, err := newTestAuthFlow(srv).Run(context.Background(), "http://ignored:32400", p)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", result.Token)
	assert.Equal(t, int32(3), checks.Load())
	assert.Contains(t, p.lines, "Enter PIN: ABCD")
}

func TestAuthFlowExpiredPIN(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/pins", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":9,"code":"WXYZ"}`))
	})
	mux.HandleFunc("GET /api/v2/pins/9", http.NotFound)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestAuthFlow(srv).Run(context.Background(), "", &recordingPrompter{})
	assert.ErrorIs(t, err, ErrPINExpired)
}

func TestWaitForPINHonoursContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/pins/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestAuthFlow(srv).client.WaitForPIN(ctx, 1, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
