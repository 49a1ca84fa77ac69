package shared

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/mediarr/internal/domain"
)

func nullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestForEachBatchBarrier(t *testing.T) {
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"}

	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
		started  []string
		finished = map[string]bool{}
	)

	ForEachBatch(users, WatchBatchSize, func(u string) {
		mu.Lock()
		inFlight++
		maxSeen = max(maxSeen, inFlight)
		started = append(started, u)
		// batch two must not start before every user of batch one finished
		if u == "u6" || u == "u7" {
			for _, prev := range users[:5] {
				assert.True(t, finished[prev], "%s started before %s finished", u, prev)
			}
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		finished[u] = true
		mu.Unlock()
	})

	assert.Len(t, started, 7)
	assert.LessOrEqual(t, maxSeen, WatchBatchSize)
	assert.ElementsMatch(t, users[:5], started[:5])
	assert.ElementsMatch(t, users[5:], started[5:])
}

func TestForEachBatchEmpty(t *testing.T) {
	calls := 0
	ForEachBatch([]int{}, 5, func(int) { calls++ })
	assert.Zero(t, calls)
}

func TestConnectionLifecycle(t *testing.T) {
	var conn Connection[*http.Client]
	_, ok := conn.Client()
	assert.False(t, ok)
	assert.Equal(t, StateUninitialized, conn.State())

	conn.Open(http.DefaultClient)
	c, ok := conn.Client()
	assert.True(t, ok)
	assert.Same(t, http.DefaultClient, c)
	assert.Equal(t, "ready", conn.State().String())

	conn.Close()
	c, ok = conn.Client()
	assert.False(t, ok)
	assert.Nil(t, c)
}

func TestIsMigrationArtifact(t *testing.T) {
	assert.True(t, IsMigrationArtifact(""))
	assert.True(t, IsMigrationArtifact("  "))
	assert.True(t, IsMigrationArtifact("12"))
	assert.False(t, IsMigrationArtifact("f137a2dd21bbc1b99aa5c0f6bf02a805"))
	assert.False(t, IsMigrationArtifact("12a"))
}

func TestLogLibraryFailureLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogLibraryFailure(context.Background(), logger, "contents", "3", true, errors.New("boom"))
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	LogLibraryFailure(context.Background(), logger, "contents", "abc", false, errors.New("boom"))
	assert.Contains(t, buf.String(), "level=ERROR")
}

// fakeTree serves a show "s" with seasons s1 (e1, e2) and s2 (e3)
type fakeTree struct {
	calls int
	fail  bool
}

func (f *fakeTree) GetChildrenMetadata(_ context.Context, parentID string, _ domain.MediaItemType) ([]domain.MediaItem, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("network down")
	}
	switch parentID {
	case "s":
		return []domain.MediaItem{{ID: "s1"}, {ID: "s2"}}, nil
	case "s1":
		return []domain.MediaItem{{ID: "e1"}, {ID: "e2"}}, nil
	case "s2":
		return []domain.MediaItem{{ID: "e3"}}, nil
	}
	return nil, nil
}

func typ(t domain.MediaItemType) *domain.MediaItemType { return &t }

func TestExpandContext(t *testing.T) {
	tests := []struct {
		name       string
		collection *domain.MediaItemType
		selection  domain.ContextSelection
		want       []string
	}{
		{"season granularity, show selected", typ(domain.MediaItemTypeSeason), domain.ContextSelection{Type: domain.MediaItemTypeShow, ID: domain.AllContextID}, []string{"s1", "s2"}},
		{"season granularity, season selected", typ(domain.MediaItemTypeSeason), domain.ContextSelection{Type: domain.MediaItemTypeSeason, ID: "s2"}, []string{"s2"}},
		{"season granularity, episode rejected", typ(domain.MediaItemTypeSeason), domain.ContextSelection{Type: domain.MediaItemTypeEpisode, ID: "e1"}, []string{}},
		{"episode granularity, show selected", typ(domain.MediaItemTypeEpisode), domain.ContextSelection{Type: domain.MediaItemTypeShow, ID: domain.AllContextID}, []string{"e1", "e2", "e3"}},
		{"episode granularity, season selected", typ(domain.MediaItemTypeEpisode), domain.ContextSelection{Type: domain.MediaItemTypeSeason, ID: "s1"}, []string{"e1", "e2"}},
		{"episode granularity, episode selected", typ(domain.MediaItemTypeEpisode), domain.ContextSelection{Type: domain.MediaItemTypeEpisode, ID: "e3"}, []string{"e3"}},
		{"show granularity", typ(domain.MediaItemTypeShow), domain.ContextSelection{Type: domain.MediaItemTypeSeason, ID: "s1"}, []string{"s"}},
		{"movie granularity", typ(domain.MediaItemTypeMovie), domain.ContextSelection{Type: domain.MediaItemTypeEpisode, ID: "e1"}, []string{"s"}},
		{"no granularity, show", nil, domain.ContextSelection{Type: domain.MediaItemTypeShow, ID: domain.AllContextID}, []string{"s", "s1", "e1", "e2", "s2", "e3"}},
		{"no granularity, season", nil, domain.ContextSelection{Type: domain.MediaItemTypeSeason, ID: "s1"}, []string{"s1", "e1", "e2"}},
		{"no granularity, episode", nil, domain.ContextSelection{Type: domain.MediaItemTypeEpisode, ID: "e2"}, []string{"e2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandContext(context.Background(), &fakeTree{}, tt.collection, tt.selection, "s", nullLogger())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandContextPropagatesFetchErrors(t *testing.T) {
	_, err := ExpandContext(context.Background(), &fakeTree{fail: true}, nil, domain.ContextSelection{Type: domain.MediaItemTypeShow, ID: domain.AllContextID}, "s", nullLogger())
	assert.Error(t, err)
}

func TestTransportRetries5xx(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "abc", r.Header.Get("X-Test"))
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	tr := NewTransport(TransportOptions{MaxRetries: 2, RetryDelay: time.Millisecond}, nullLogger())
	body, err := tr.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL, Header: http.Header{"X-Test": {"abc"}}})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestTransportGivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewTransport(TransportOptions{MaxRetries: 1, RetryDelay: time.Millisecond}, nullLogger())
	_, err := tr.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTransportErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth":
			w.WriteHeader(http.StatusUnauthorized)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/bad":
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	tr := NewTransport(TransportOptions{MaxRetries: 3, RetryDelay: time.Millisecond}, nullLogger())
	ctx := context.Background()

	_, err := tr.Do(ctx, Request{Method: http.MethodGet, URL: srv.URL + "/auth"})
	assert.ErrorIs(t, err, domain.ErrAuthFailed)

	_, err = tr.Do(ctx, Request{Method: http.MethodGet, URL: srv.URL + "/missing"})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = tr.Do(ctx, Request{Method: http.MethodGet, URL: srv.URL + "/bad"})
	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)

	srv.Close()
	_, err = tr.Do(ctx, Request{Method: http.MethodGet, URL: srv.URL + "/auth"})
	assert.ErrorIs(t, err, domain.ErrServerOffline)
}
