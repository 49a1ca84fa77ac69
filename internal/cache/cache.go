// Package cache is a namespaced, typed TTL cache shared by the media server
// adapters and the rule resolvers.
//
// Keys have the shape <namespace>:<kind>:<qualifier>. Values are JSON encoded
// when written, so a cached entry never changes after Set returns.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// Kind classifies cache entries. Each kind has its own TTL.
type Kind string

const (
	KindStatus               Kind = "status"
	KindUsers                Kind = "users"
	KindLibraries            Kind = "libraries"
	KindWatchHistory         Kind = "watch_history"
	KindWatchedLibrary       Kind = "watched_library_bulk"
	KindCollectionMembership Kind = "collection_membership"
	KindItemLibrary          Kind = "item_library"
	KindWatchlist            Kind = "watchlist"
)

// DefaultTTLs is the TTL table used when no override is configured
var DefaultTTLs = map[Kind]time.Duration{
	KindStatus:               60 * time.Second,
	KindUsers:                30 * time.Minute,
	KindLibraries:            30 * time.Minute,
	KindWatchHistory:         5 * time.Minute,
	KindWatchedLibrary:       10 * time.Minute,
	KindCollectionMembership: 600 * time.Second,
	KindItemLibrary:          30 * time.Minute,
	KindWatchlist:            10 * time.Minute,
}

// fallbackTTL applies to kinds missing from the table
const fallbackTTL = time.Minute

// Backend stores raw bytes. Implementations must be safe for concurrent use.
type Backend interface {
	Get(key string) ([]byte, bool)
	// Set stores data. ttl is a hint for backends that expire natively.
	Set(key string, data []byte, ttl time.Duration) error
	Delete(key string) error
	DeletePrefix(prefix string) error
	Keys(prefix string) ([]string, error)
	Close() error
}

// Store wraps a Backend with expiry and the TTL table
type Store struct {
	backend Backend
	ttls    map[Kind]time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithTTL overrides the TTL of one kind
func WithTTL(kind Kind, ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttls[kind] = ttl
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for encode and backend failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store over backend. A nil backend means an in-memory one.
func New(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{
		backend: backend,
		ttls:    make(map[Kind]time.Duration, len(DefaultTTLs)),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for k, v := range DefaultTTLs {
		s.ttls[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured TTL for kind
func (s *Store) TTL(kind Kind) time.Duration {
	if ttl, ok := s.ttls[kind]; ok {
		return ttl
	}
	return fallbackTTL
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

// Namespace returns a handle whose keys are all prefixed with name
func (s *Store) Namespace(name string) *Namespace {
	return &Namespace{store: s, name: name}
}

// entry is the persisted envelope
type entry struct {
	ExpiresAt time.Time       `json:"expiresAt"`
	Value     json.RawMessage `json:"value"`
}

// Namespace is a key prefix owned by one component
type Namespace struct {
	store *Store
	name  string
}

func (n *Namespace) key(kind Kind, qualifier string) string {
	return n.name + ":" + string(kind) + ":" + qualifier
}

func (n *Namespace) prefix() string {
	return n.name + ":"
}

// Get decodes the entry for kind/qualifier into a T. Expired and undecodable entries miss.
func Get[T any](n *Namespace, kind Kind, qualifier string) (T, bool) {
	var zero T
	key := n.key(kind, qualifier)

	data, ok := n.store.backend.Get(key)
	if !ok {
		return zero, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		n.store.logger.Warn("cache entry unreadable", "key", key, "error", err)
		return zero, false
	}
	if !n.store.now().Before(e.ExpiresAt) {
		_ = n.store.backend.Delete(key)
		return zero, false
	}

	var value T
	if err := json.Unmarshal(e.Value, &value); err != nil {
		n.store.logger.Warn("cache value decode failed", "key", key, "error", err)
		return zero, false
	}
	return value, true
}

// Set overwrites the entry for kind/qualifier. Failures are logged, never returned:
// a cache write that does not happen only costs a refetch.
func Set[T any](n *Namespace, kind Kind, qualifier string, value T) {
	key := n.key(kind, qualifier)

	raw, err := json.Marshal(value)
	if err != nil {
		n.store.logger.Warn("cache value encode failed", "key", key, "error", err)
		return
	}

	ttl := n.store.TTL(kind)
	data, err := json.Marshal(entry{ExpiresAt: n.store.now().Add(ttl), Value: raw})
	if err != nil {
		n.store.logger.Warn("cache entry encode failed", "key", key, "error", err)
		return
	}

	if err := n.store.backend.Set(key, data, ttl); err != nil {
		n.store.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Delete removes one entry
func (n *Namespace) Delete(kind Kind, qualifier string) {
	key := n.key(kind, qualifier)
	if err := n.store.backend.Delete(key); err != nil {
		n.store.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// DeleteMatching removes every entry of the namespace whose qualifier is id,
// or has id as one of its ":"-separated segments
func (n *Namespace) DeleteMatching(id string) {
	keys, err := n.store.backend.Keys(n.prefix())
	if err != nil {
		n.store.logger.Warn("cache key scan failed", "namespace", n.name, "error", err)
		return
	}
	for _, key := range keys {
		q := qualifierOf(strings.TrimPrefix(key, n.prefix()))
		if q == "" || !slices.Contains(strings.Split(q, ":"), id) {
			continue
		}
		if err := n.store.backend.Delete(key); err != nil {
			n.store.logger.Warn("cache delete failed", "key", key, "error", err)
		}
	}
}

// qualifierOf strips the kind from "<kind>:<qualifier>"
func qualifierOf(rest string) string {
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		return rest[i+1:]
	}
	return ""
}

// Flush removes the whole namespace. It returns once the backend has applied the deletion.
func (n *Namespace) Flush() {
	if err := n.store.backend.DeletePrefix(n.prefix()); err != nil {
		n.store.logger.Warn("cache flush failed", "namespace", n.name, "error", err)
	}
}

// Backend names accepted by OpenBackend
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)

// OpenBackend builds the backend named by kind. An empty kind means memory.
func OpenBackend(kind, dir, redisAddr, serverURL string) (Backend, error) {
	switch kind {
	case "", BackendMemory:
		return NewMemoryBackend(), nil
	case BackendBolt:
		b, err := NewBoltBackend(dir, serverURL)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendRedis:
		r, err := NewRedisBackend(redisAddr)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", kind)
	}
}
