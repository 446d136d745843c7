package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"gsd/internal/models"
	"gsd/internal/providers"
)

type Status int32

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusRunning
	StatusStopping
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

var ErrSessionActive = fmt.Errorf("session already active")

const defaultStopTimeout = 5 * time.Second

// Session is the isolated monitoring unit for one target: it owns the feed
// connection and is the only writer of the target's ledger. Failures stay
// local to the session; there is no automatic reconnect, a disconnect is
// surfaced as StatusError until the operator restarts it.
type Session struct {
	username    string
	ledger      *models.Ledger
	store       *LedgerStore
	source      EventSource
	logger      providers.Logger
	metrics     providers.MetricsProviderInterface
	stopTimeout time.Duration

	status     atomic.Int32
	lastErr    atomic.String
	lastUpdate atomic.Int64

	mu     sync.Mutex // serializes Start/Stop
	cancel context.CancelFunc
	done   chan struct{}

	connMu        sync.Mutex
	conn          EventConn
	stopRequested atomic.Bool
}

func NewSession(username string, ledger *models.Ledger, store *LedgerStore, source EventSource, logger providers.Logger, metrics providers.MetricsProviderInterface, stopTimeout time.Duration) *Session {
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}
	return &Session{
		username:    username,
		ledger:      ledger,
		store:       store,
		source:      source,
		logger:      logger,
		metrics:     metrics,
		stopTimeout: stopTimeout,
	}
}

func (s *Session) Username() string { return s.username }

func (s *Session) Ledger() *models.Ledger { return s.ledger }

func (s *Session) Status() Status { return Status(s.status.Load()) }

// ErrReason returns the failure message of the last Error transition, empty
// otherwise.
func (s *Session) ErrReason() string { return s.lastErr.Load() }

// LastUpdate returns the time of the most recent ledger update, zero when no
// event has been seen since process start.
func (s *Session) LastUpdate() time.Time {
	ts := s.lastUpdate.Load()
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// Start begins monitoring. Allowed from Idle, and from Error as the
// acknowledged reset of a failed session. The connection handshake and event
// loop run on their own goroutine.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Status()
	if cur != StatusIdle && cur != StatusError {
		return fmt.Errorf("start %s: %w", s.username, ErrSessionActive)
	}

	s.lastErr.Store("")
	s.stopRequested.Store(false)
	s.status.Store(int32(StatusConnecting))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
	return nil
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	conn, err := s.source.Open(ctx, s.username)
	if err != nil {
		if s.stopRequested.Load() {
			s.status.Store(int32(StatusIdle))
			return
		}
		s.fail("connect failed: %s", err)
		return
	}

	s.connMu.Lock()
	if s.stopRequested.Load() {
		s.connMu.Unlock()
		conn.Close()
		s.status.Store(int32(StatusIdle))
		return
	}
	s.conn = conn
	s.connMu.Unlock()

	s.status.Store(int32(StatusRunning))
	s.logger.Infof(providers.TypeSession, "Connected to @%s", s.username)

	for {
		ev, err := conn.Next()
		if err != nil {
			s.clearConn()
			s.flush()
			if s.stopRequested.Load() {
				s.status.Store(int32(StatusIdle))
				s.logger.Infof(providers.TypeSession, "Stopped monitoring @%s", s.username)
				return
			}
			s.fail("disconnected: %s", err)
			return
		}
		s.consume(ev)
	}
}

func (s *Session) consume(ev *GiftEvent) {
	s.ledger.Upsert(ev.GiftID, ev.GiftName, ev.RepeatCount, ev.At)
	s.lastUpdate.Store(time.Now().Unix())

	count := ev.RepeatCount
	if count < 1 {
		count = 1
	}
	s.metrics.IncGiftEvents(s.username, count)
	s.metrics.SetLedgerRecords(s.username, s.ledger.Len())

	// Persist after every event: a crash loses at most the in-flight update.
	if err := s.store.Save(s.username, s.ledger); err != nil {
		s.logger.Errorf(providers.TypeSession, "Cannot persist ledger for %s: %s", s.username, err)
	}
}

func (s *Session) fail(format string, args ...interface{}) {
	reason := fmt.Sprintf(format, args...)
	s.lastErr.Store(reason)
	s.status.Store(int32(StatusError))
	s.metrics.IncSessionErrors(s.username)
	s.logger.Errorf(providers.TypeSession, "Session %s: %s", s.username, reason)
}

func (s *Session) clearConn() {
	s.connMu.Lock()
	s.conn = nil
	s.connMu.Unlock()
}

func (s *Session) closeConn() {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (s *Session) flush() {
	if err := s.store.Save(s.username, s.ledger); err != nil {
		s.logger.Errorf(providers.TypeSession, "Cannot flush ledger for %s: %s", s.username, err)
	}
}

// Stop closes the feed connection, which unblocks a pending Next, and waits
// a bounded time for the run goroutine to flush and exit. Stop on an Idle or
// Error session is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Status()
	if cur != StatusConnecting && cur != StatusRunning {
		return nil
	}

	s.status.Store(int32(StatusStopping))
	s.stopRequested.Store(true)
	s.cancel()
	s.closeConn()

	select {
	case <-s.done:
		// The run goroutine may have raced into Error just before the stop
		// request was visible; an operator-requested stop always ends Idle.
		s.status.Store(int32(StatusIdle))
		return nil
	case <-time.After(s.stopTimeout):
		return fmt.Errorf("stop %s: timed out after %s", s.username, s.stopTimeout)
	}
}
