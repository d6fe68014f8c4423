package ranking

import (
	"context"
	"sync"
	"time"

	"github.com/listenupapp/yearlist-server/internal/domain"
)

// DefaultIdleTimeout is how long an unused session stays open.
const DefaultIdleTimeout = 15 * time.Minute

// Registry opens one Session per document on demand and closes idle ones.
type Registry struct {
	mirror      Mirror
	opts        SessionOptions
	idleTimeout time.Duration

	mu       sync.Mutex
	sessions map[domain.DocumentKey]*Session
	closed   bool
}

// NewRegistry creates a session registry backed by mirror.
func NewRegistry(mirror Mirror, opts SessionOptions, idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Registry{
		mirror:      mirror,
		opts:        opts,
		idleTimeout: idleTimeout,
		sessions:    make(map[domain.DocumentKey]*Session),
	}
}

// Session returns the open session for key, opening it if needed.
// Opening loads the document, so it runs outside the lock; when two callers
// race on the same key the loser's session is closed and the winner's kept.
func (r *Registry) Session(key domain.DocumentKey) (*Session, error) {
	if s, err := r.lookup(key); s != nil || err != nil {
		return s, err
	}

	opened := NewSession(key, r.mirror, r.opts)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		opened.Close()
		return nil, ErrSessionClosed
	}
	if s, ok := r.sessions[key]; ok && !s.isClosed() {
		r.mu.Unlock()
		opened.Close()
		s.touch()
		return s, nil
	}
	r.sessions[key] = opened
	r.mu.Unlock()

	return opened, nil
}

func (r *Registry) lookup(key domain.DocumentKey) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrSessionClosed
	}
	if s, ok := r.sessions[key]; ok {
		if !s.isClosed() {
			s.touch()
			return s, nil
		}
		delete(r.sessions, key)
	}
	return nil, nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions unused since before now minus the idle timeout.
// Returns the number closed.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.idleTimeout)
	return r.closeWhere(func(_ domain.DocumentKey, s *Session) bool {
		return s.IdleSince().Before(cutoff)
	})
}

// CloseGroup closes every session belonging to a group.
func (r *Registry) CloseGroup(groupID string) int {
	return r.closeWhere(func(k domain.DocumentKey, _ *Session) bool {
		return k.Scope.GroupID == groupID
	})
}

// CloseScope closes every session of one ranking scope, across years.
func (r *Registry) CloseScope(scope domain.Scope) int {
	return r.closeWhere(func(k domain.DocumentKey, _ *Session) bool {
		return k.Scope == scope
	})
}

// Run sweeps idle sessions until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// Shutdown closes all sessions and refuses new ones.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.closeWhere(func(domain.DocumentKey, *Session) bool { return true })
}

func (r *Registry) closeWhere(match func(domain.DocumentKey, *Session) bool) int {
	r.mu.Lock()
	var victims []*Session
	for k, s := range r.sessions {
		if match(k, s) {
			victims = append(victims, s)
			delete(r.sessions, k)
		}
	}
	r.mu.Unlock()

	// Close outside the lock; it waits for pending writes.
	for _, s := range victims {
		s.Close()
	}
	return len(victims)
}
