package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"

	"movies-mcp/internal/metrics"
)

// ErrSessionNotFound is returned when a message names no open session.
var ErrSessionNotFound = errors.New("session not found")

const sessionBuffer = 32

// Session is one open SSE stream and the protocol handler behind it.
type Session struct {
	id      string
	handler MessageHandler
	out     chan []byte
	done    chan struct{}
	once    sync.Once
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// Messages yields encoded replies to be written to the stream.
func (s *Session) Messages() <-chan []byte { return s.out }

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) close() { s.once.Do(func() { close(s.done) }) }

// deliver queues msg on the stream. A closed session drops it.
func (s *Session) deliver(ctx context.Context, msg []byte) error {
	select {
	case <-s.done:
		return nil
	default:
	}
	select {
	case s.out <- msg:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Registry maps session ids to open sessions. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	newHandler func() MessageHandler
	metrics    *metrics.Metrics
}

// NewRegistry constructs an empty Registry. newHandler is called once per
// session so that sessions never share protocol state.
func NewRegistry(newHandler func() MessageHandler, m *metrics.Metrics) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		newHandler: newHandler,
		metrics:    m,
	}
}

// Open allocates a session with a fresh id and handler.
func (r *Registry) Open() *Session {
	s := &Session{
		handler: r.newHandler(),
		out:     make(chan []byte, sessionBuffer),
		done:    make(chan struct{}),
	}
	r.mu.Lock()
	for {
		s.id = uuid.NewString()
		if _, taken := r.sessions[s.id]; !taken {
			break
		}
	}
	r.sessions[s.id] = s
	r.mu.Unlock()
	r.metrics.SessionOpened()
	return s
}

// Close removes the session and releases it. It reports whether id was open.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.close()
	r.metrics.SessionClosed()
	return true
}

// CloseAll closes every open session.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		r.Close(id)
	}
}

// Get returns the open session for id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	return s, ok
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Post hands payload to the session's handler and queues the reply, if any,
// on that session's stream. It returns ErrSessionNotFound for an unknown or
// closed id. A reply for a session closed meanwhile is dropped.
func (r *Registry) Post(ctx context.Context, id string, payload json.RawMessage) error {
	s, ok := r.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	reply := s.handler.HandleMessage(ctx, payload)
	if reply == nil {
		return nil
	}
	b, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return s.deliver(ctx, b)
}
