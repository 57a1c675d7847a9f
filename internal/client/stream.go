package client

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"
)

// State of the shared stream connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// degradeAfter is the number of consecutive connection failures after which the
// stream is reported as unavailable and clients rely on the periodic refresh.
const degradeAfter = 3

// Listener receives the data of one event.
type Listener func(data string)

// StreamOpener opens the server-push stream.
type StreamOpener interface {
	OpenStream(ctx context.Context) (io.ReadCloser, error)
}

// Stream is the one stream connection of a client process. Listeners are
// reference counted: the first registration connects, the last unregister
// disconnects.
type Stream struct {
	opener StreamOpener
	logger *zap.Logger

	mu        sync.Mutex
	listeners map[string]map[uint64]Listener
	count     int
	nextID    uint64
	state     State
	gen       uint64
	cancel    context.CancelFunc
	failures  int
	degraded  bool
	closed    bool

	readers sync.WaitGroup
}

func NewStream(opener StreamOpener, logger *zap.Logger) *Stream {
	return &Stream{
		opener:    opener,
		logger:    logger.Named("Stream"),
		listeners: make(map[string]map[uint64]Listener),
	}
}

// AddListener registers fn for eventType and returns its unregister function.
// Unregister is idempotent. After Close, AddListener is a no-op.
func (s *Stream) AddListener(eventType string, fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	s.nextID++
	id := s.nextID
	if s.listeners[eventType] == nil {
		s.listeners[eventType] = make(map[uint64]Listener)
	}
	s.listeners[eventType][id] = fn
	s.count++
	if s.state == StateDisconnected {
		s.connectLocked()
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.removeListener(eventType, id) })
	}
}

func (s *Stream) removeListener(eventType string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.listeners[eventType]
	if !ok {
		return
	}
	if _, ok := set[id]; !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(s.listeners, eventType)
	}
	s.count--
	if s.count == 0 {
		s.disconnectLocked()
	}
}

// State reports the current connection state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Degraded reports whether repeated failures have put the client in poll-only mode.
func (s *Stream) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// HealthCheck reconnects when there are listeners but no live connection.
func (s *Stream) HealthCheck() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.count == 0 || s.state == StateConnected {
		return
	}
	s.logger.Debug("Health check found stream down, reconnecting", zap.Stringer("state", s.state))
	s.connectLocked()
}

// Reconnect drops any existing connection and opens a new one.
func (s *Stream) Reconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.count == 0 {
		return
	}
	s.connectLocked()
}

// Close disconnects, clears every listener and waits for the reader to exit.
// It must not be called from inside a Listener.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.listeners = make(map[string]map[uint64]Listener)
	s.count = 0
	s.disconnectLocked()
	s.mu.Unlock()

	s.readers.Wait()
}

// connectLocked closes any half-open connection before starting a new one, so
// at most one connection is live.
func (s *Stream) connectLocked() {
	s.disconnectLocked()

	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = StateConnecting

	s.readers.Add(1)
	go s.read(ctx, gen)
}

func (s *Stream) disconnectLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	// Bumping the generation makes the old reader's events and errors stale.
	s.gen++
	s.state = StateDisconnected
}

func (s *Stream) read(ctx context.Context, gen uint64) {
	defer s.readers.Done()

	body, err := s.opener.OpenStream(ctx)
	if err != nil {
		s.lost(gen, err)
		return
	}
	defer body.Close()

	events := newEventReader(body)
	for {
		ev, err := events.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("stream closed by server")
			}
			s.lost(gen, err)
			return
		}
		if ev.Type == "connected" {
			s.connected(gen)
		}
		s.dispatch(gen, ev)
	}
}

func (s *Stream) connected(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	if s.degraded {
		s.logger.Info("Stream recovered")
	}
	s.state = StateConnected
	s.failures = 0
	s.degraded = false
	s.logger.Debug("Stream connected")
}

func (s *Stream) lost(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateDisconnected
	s.failures++
	if s.failures > degradeAfter && !s.degraded {
		s.degraded = true
		s.logger.Warn("Stream unavailable, relying on periodic refresh", zap.Int("failures", s.failures), zap.Error(err))
		return
	}
	s.logger.Debug("Stream disconnected", zap.Int("failures", s.failures), zap.Error(err))
}

// dispatch calls the listeners outside the lock so they may unregister themselves.
func (s *Stream) dispatch(gen uint64, ev Event) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	set := s.listeners[ev.Type]
	fns := make([]Listener, 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev.Data)
	}
}
