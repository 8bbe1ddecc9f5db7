// Package session keeps one CartStore per storefront session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/rocketshoes/internal/repository"
	"github.com/utafrali/rocketshoes/internal/service"
)

// MaxIDLength bounds client-supplied session IDs.
const MaxIDLength = 128

// Eviction defaults used unless WithLimits overrides them.
const (
	DefaultIdleTTL     = 30 * time.Minute
	DefaultMaxSessions = 10000
)

// Registry lazily loads and caches one CartStore per session ID. A store not
// used for the idle TTL is dropped and reloaded from storage on next use.
// When the registry is full the least recently used store is dropped.
type Registry struct {
	kv        repository.KV
	catalog   service.Catalog
	publisher service.EventPublisher
	notifier  service.Notifier
	logger    *slog.Logger

	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time

	mu        sync.Mutex
	stores    map[string]*entry
	lastSweep time.Time
}

// entry lets concurrent first requests for one session share a single load.
type entry struct {
	ready    chan struct{}
	store    *service.CartStore
	err      error
	lastUsed time.Time
}

func (e *entry) loaded() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// NewRegistry creates a registry whose stores share kv, each under its own
// key prefix. publisher and notifier may be nil.
func NewRegistry(kv repository.KV, catalog service.Catalog, publisher service.EventPublisher, notifier service.Notifier, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		kv:          kv,
		catalog:     catalog,
		publisher:   publisher,
		notifier:    notifier,
		logger:      logger,
		idleTTL:     DefaultIdleTTL,
		maxSessions: DefaultMaxSessions,
		now:         time.Now,
		stores:      make(map[string]*entry),
	}
}

// WithLimits sets the idle TTL and the maximum number of cached stores.
// Non-positive values keep the defaults. The idle TTL must exceed the
// longest request, so a store is never dropped while a request holds it.
func (r *Registry) WithLimits(idleTTL time.Duration, maxSessions int) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idleTTL > 0 {
		r.idleTTL = idleTTL
	}
	if maxSessions > 0 {
		r.maxSessions = maxSessions
	}
	return r
}

// NewID returns a fresh random session ID.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id can be used as a session ID.
func ValidID(id string) bool {
	if id == "" || len(id) > MaxIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Get returns the store for sessionID, loading it on first use. A failed
// load is not cached.
func (r *Registry) Get(ctx context.Context, sessionID string) (*service.CartStore, error) {
	if !ValidID(sessionID) {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}

	r.mu.Lock()
	now := r.now()
	r.sweepLocked(ctx, now)

	e, ok := r.stores[sessionID]
	if ok {
		e.lastUsed = now
		r.mu.Unlock()

		select {
		case <-e.ready:
			return e.store, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(r.stores) >= r.maxSessions {
		r.evictOldestLocked(ctx)
	}
	e = &entry{ready: make(chan struct{}), lastUsed: now}
	r.stores[sessionID] = e
	r.mu.Unlock()

	e.store, e.err = service.Load(ctx, sessionID, service.Dependencies{
		KV:        repository.Scoped(r.kv, Prefix(sessionID)),
		Catalog:   r.catalog,
		Publisher: r.publisher,
		Notifier:  r.notifier,
		Logger:    r.logger,
	})
	if e.err != nil {
		r.mu.Lock()
		if r.stores[sessionID] == e {
			delete(r.stores, sessionID)
		}
		r.mu.Unlock()
	} else {
		r.logger.DebugContext(ctx, "cart session loaded", slog.String("session_id", sessionID))
	}
	close(e.ready)
	return e.store, e.err
}

// sweepLocked drops loaded stores idle for longer than the TTL. It runs at
// most once per TTL. Must be called with r.mu held.
func (r *Registry) sweepLocked(ctx context.Context, now time.Time) {
	if now.Sub(r.lastSweep) < r.idleTTL {
		return
	}
	r.lastSweep = now

	evicted := 0
	for id, e := range r.stores {
		if e.loaded() && now.Sub(e.lastUsed) > r.idleTTL {
			delete(r.stores, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.DebugContext(ctx, "evicted idle cart sessions",
			slog.Int("evicted", evicted),
			slog.Int("remaining", len(r.stores)),
		)
	}
}

// evictOldestLocked drops the least recently used loaded store. Stores still
// loading are skipped, so the registry may briefly exceed its limit. Must be
// called with r.mu held.
func (r *Registry) evictOldestLocked(ctx context.Context) {
	var (
		oldestID string
		oldest   *entry
	)
	for id, e := range r.stores {
		if !e.loaded() {
			continue
		}
		if oldest == nil || e.lastUsed.Before(oldest.lastUsed) {
			oldestID, oldest = id, e
		}
	}
	if oldest == nil {
		return
	}
	delete(r.stores, oldestID)
	r.logger.DebugContext(ctx, "evicted least recently used cart session",
		slog.String("session_id", oldestID),
	)
}

// Len returns the number of cached sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Prefix is the KV key prefix for sessionID.
func Prefix(sessionID string) string {
	return "session:" + sessionID + ":"
}
