package ranking

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
	"github.com/listenupapp/yearlist-server/internal/metrics"
)

// ErrSessionClosed is returned for commands sent to a closed session.
// Callers may reopen the document through the Registry and retry.
var ErrSessionClosed = &domainerrors.Error{Code: domainerrors.CodeSessionClosed, Message: "ranking session closed"}

// DefaultPersistTimeout bounds a single remote write.
const DefaultPersistTimeout = 10 * time.Second

// WriteErrorHandler is told about persists that failed after the local
// change was already applied. The local state is kept.
type WriteErrorHandler func(key domain.DocumentKey, actor string, err error)

// SessionOptions configures a Session.
type SessionOptions struct {
	PersistTimeout time.Duration
	OnWriteError   WriteErrorHandler
	Logger         *slog.Logger
}

type eventKind int

const (
	eventLocal eventKind = iota + 1
	eventRemote
	eventBarrier
)

type event struct {
	kind     eventKind
	cmd      Command
	snapshot *Snapshot
	reply    chan result
}

type result struct {
	snapshot *Snapshot
	err      error
}

// Session owns the in-memory state of one document.
//
// Local commands and remote snapshots enter the same FIFO and are applied by
// one goroutine in arrival order. Every applied event yields a new immutable
// Snapshot. Local changes are handed to a second goroutine that persists them
// in order without blocking the caller.
type Session struct {
	key    domain.DocumentKey
	origin string
	mirror Mirror
	opts   SessionOptions
	logger *slog.Logger

	events *queue[event]
	writes *queue[PartialUpdate]

	mu      sync.RWMutex
	current *Snapshot

	// lastWrite is the revision of the newest local change. Run loop only.
	lastWrite uint64
	lastUsed  atomic.Int64

	unsubscribe func()
	closing     atomic.Bool
	closeOnce   sync.Once
	done        chan struct{}
	writerDone  chan struct{}
}

// NewSession opens a session and subscribes it to the mirror.
// The mirror's initial snapshot is the first event the session applies.
func NewSession(key domain.DocumentKey, mirror Mirror, opts SessionOptions) *Session {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultPersistTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Session{
		key:        key,
		origin:     uuid.NewString(),
		mirror:     mirror,
		opts:       opts,
		logger:     logger.With("document", key.String()),
		events:     newQueue[event](),
		writes:     newQueue[PartialUpdate](),
		current:    EmptySnapshot(key),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	s.touch()

	go s.run()
	go s.writeLoop()

	s.unsubscribe = mirror.Subscribe(key, s.receive)
	metrics.SessionOpened()

	return s
}

// Key returns the document this session owns.
func (s *Session) Key() domain.DocumentKey {
	return s.key
}

// Origin returns the writer identity stamped on this session's updates.
func (s *Session) Origin() string {
	return s.origin
}

// Snapshot returns the current state.
func (s *Session) Snapshot() *Snapshot {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Do applies a local command and returns the resulting snapshot.
// The change is persisted asynchronously; failures go to OnWriteError.
func (s *Session) Do(ctx context.Context, cmd Command) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !cmd.Category.Valid() {
		return nil, domainerrors.Validationf("unknown category %q", cmd.Category)
	}
	return s.send(ctx, event{kind: eventLocal, cmd: cmd})
}

// Sync waits until every event queued before the call has been applied.
func (s *Session) Sync(ctx context.Context) (*Snapshot, error) {
	return s.send(ctx, event{kind: eventBarrier})
}

// Close unsubscribes from the mirror, applies queued events and waits for
// pending writes to finish.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.events.Close()
		<-s.done
		s.writes.Close()
		<-s.writerDone
		metrics.SessionClosed()
	})
}

// IdleSince returns the last time the session was used.
func (s *Session) IdleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) isClosed() bool {
	return s.closing.Load()
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *Session) send(ctx context.Context, ev event) (*Snapshot, error) {
	s.touch()
	ev.reply = make(chan result, 1)
	if !s.events.Enqueue(ev) {
		return nil, ErrSessionClosed
	}

	select {
	case r := <-ev.reply:
		return r.snapshot, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// receive is the mirror subscription callback.
func (s *Session) receive(snap *Snapshot) {
	s.events.Enqueue(event{kind: eventRemote, snapshot: snap})
}

func (s *Session) run() {
	defer close(s.done)

	for {
		if ev, ok := s.events.TryDequeue(); ok {
			s.handle(ev)
			continue
		}

		if _, open := <-s.events.Wait(); !open {
			for {
				ev, ok := s.events.TryDequeue()
				if !ok {
					return
				}
				s.handle(ev)
			}
		}
	}
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case eventLocal:
		snap, err := s.applyLocal(ev.cmd)
		ev.reply <- result{snapshot: snap, err: err}
	case eventRemote:
		s.applyRemote(ev.snapshot)
	case eventBarrier:
		ev.reply <- result{snapshot: s.load()}
	}
}

func (s *Session) applyLocal(cmd Command) (*Snapshot, error) {
	cur := s.load()

	out, err := Apply(cur.Board(cmd.Category), cmd)
	if err != nil {
		metrics.RecordCommand(string(cmd.Kind), errorLabel(err))
		s.logger.Debug("command rejected", "command", cmd.Kind, "album_id", cmd.AlbumID, "error", err)
		return cur, err
	}
	if !out.Changed() {
		metrics.RecordCommand(string(cmd.Kind), "noop")
		return cur, nil
	}
	if err := Validate(out.Board.Ranked); err != nil {
		metrics.RecordCommand(string(cmd.Kind), errorLabel(err))
		s.logger.Error("ranked sequence invariant violated", "command", cmd.Kind, "album_id", cmd.AlbumID, "error", err)
		return cur, err
	}

	s.lastWrite++
	next := cur.with(cmd.Category, out.Board)
	next.Origin = s.origin
	next.Revision = s.lastWrite
	next.UpdatedAt = time.Now()
	s.store(next)

	update := PartialUpdate{
		Key:      s.key,
		Origin:   s.origin,
		Revision: s.lastWrite,
		Actor:    s.key.Scope.UserID,
	}
	if out.RankedChanged {
		update.Ranked = map[domain.Category][]domain.RankedEntry{
			cmd.Category: slices.Clone(out.Board.Ranked),
		}
	}
	if out.RemovedFromPool != "" {
		update.PoolRemovals = map[domain.Category][]string{
			cmd.Category: {out.RemovedFromPool},
		}
	}
	s.writes.Enqueue(update)

	metrics.RecordCommand(string(cmd.Kind), "ok")
	return next, nil
}

// applyRemote overwrites local state with a mirror snapshot.
// A snapshot stamped with this session's origin below its last local
// revision is a stale echo: newer local writes are still in flight, so the
// local ranked sequences are kept and only the pool is taken from it. The
// echo of the last write is applied whole, which repairs any optimistic
// state a foreign snapshot overwrote in the meantime.
func (s *Session) applyRemote(snap *Snapshot) {
	if snap == nil {
		snap = EmptySnapshot(s.key)
	}

	if snap.Origin == s.origin && snap.Revision < s.lastWrite {
		cur := s.load()
		next := *cur
		next.Boards = maps.Clone(cur.Boards)
		for c, remote := range snap.Boards {
			next.Boards[c] = Board{Pool: remote.Pool, Ranked: cur.Boards[c].Ranked}
		}
		s.store(&next)
		metrics.RecordRemoteSnapshot("echo")
		return
	}

	s.store(snap)
	metrics.RecordRemoteSnapshot("applied")
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)

	for {
		if u, ok := s.writes.TryDequeue(); ok {
			s.persist(u)
			continue
		}

		if _, open := <-s.writes.Wait(); !open {
			for {
				u, ok := s.writes.TryDequeue()
				if !ok {
					return
				}
				s.persist(u)
			}
		}
	}
}

func (s *Session) persist(u PartialUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.PersistTimeout)
	defer cancel()

	start := time.Now()
	err := s.mirror.Persist(ctx, u)
	if err == nil {
		metrics.RecordPersist("success", time.Since(start).Seconds())
		return
	}

	metrics.RecordPersist("error", time.Since(start).Seconds())
	s.logger.Warn("persist failed, keeping local state",
		"revision", u.Revision,
		"error", err,
	)
	if s.opts.OnWriteError != nil {
		s.opts.OnWriteError(s.key, u.Actor, domainerrors.WriteFailed(err))
	}
}

func (s *Session) load() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) store(snap *Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
}

func errorLabel(err error) string {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return string(domainErr.Code)
	}
	return "error"
}
