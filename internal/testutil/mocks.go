package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"gsd/internal/monitor"
	"gsd/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Entries returns a copy of the recorded log entries.
func (m *MockLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogEntry, len(m.Logs))
	copy(out, m.Logs)
	return out
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu             sync.Mutex
	Requests       map[string]int
	GiftEvents     map[string]int
	SessionErrors  map[string]int
	SessionsState  map[string]int
	LedgerRecords  map[string]int
	PersistObserve int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Requests:      make(map[string]int),
		GiftEvents:    make(map[string]int),
		SessionErrors: make(map[string]int),
		SessionsState: make(map[string]int),
		LedgerRecords: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(method, endpoint string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[method+" "+endpoint]++
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncGiftEvents(target string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GiftEvents[target] += count
}

func (m *MockMetrics) IncSessionErrors(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionErrors[target]++
}

func (m *MockMetrics) SetSessionsByState(state string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsState[state] = count
}

func (m *MockMetrics) SetLedgerRecords(target string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LedgerRecords[target] = count
}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistObserve++
}

func (m *MockMetrics) GiftEventCount(target string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GiftEvents[target]
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	CloseCalls   int
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {
	m.CloseCalls++
}

// ErrConnClosed is what MockEventConn.Next returns after the connection is
// closed from either side.
var ErrConnClosed = errors.New("connection closed")

// MockEventConn is a scriptable feed connection: tests push events with Emit
// and simulate an upstream disconnect with Disconnect.
type MockEventConn struct {
	events    chan *monitor.GiftEvent
	closed    chan struct{}
	closeOnce sync.Once
}

func NewMockEventConn() *MockEventConn {
	return &MockEventConn{
		events: make(chan *monitor.GiftEvent, 16),
		closed: make(chan struct{}),
	}
}

func (c *MockEventConn) Emit(ev *monitor.GiftEvent) {
	c.events <- ev
}

func (c *MockEventConn) Next() (*monitor.GiftEvent, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-c.closed:
		return nil, ErrConnClosed
	}
}

func (c *MockEventConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Disconnect simulates the upstream side dropping the connection.
func (c *MockEventConn) Disconnect() {
	_ = c.Close()
}

// MockEventSource implements monitor.EventSource. Opens succeed with a fresh
// MockEventConn unless OpenErr has an entry for the username.
type MockEventSource struct {
	mu      sync.Mutex
	OpenErr map[string]error
	conns   map[string]*MockEventConn
	opens   []string
}

func NewMockEventSource() *MockEventSource {
	return &MockEventSource{
		OpenErr: make(map[string]error),
		conns:   make(map[string]*MockEventConn),
	}
}

func (s *MockEventSource) Open(_ context.Context, username string) (monitor.EventConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens = append(s.opens, username)
	if err, ok := s.OpenErr[username]; ok {
		return nil, err
	}
	c := NewMockEventConn()
	s.conns[username] = c
	return c, nil
}

// Conn returns the most recent connection opened for username.
func (s *MockEventSource) Conn(username string) *MockEventConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[username]
}

func (s *MockEventSource) OpenCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.opens))
	copy(out, s.opens)
	return out
}
