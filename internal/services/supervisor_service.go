package services

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gsd/internal/models"
	"gsd/internal/monitor"
	"gsd/internal/providers"
	"gsd/internal/structures"
)

var (
	ErrDuplicateTarget = errors.New("target already registered")
	ErrTargetBusy      = errors.New("target has an active session")
	ErrTargetNotFound  = errors.New("target not registered")
)

// TargetStatus is one row of the observer status snapshot.
type TargetStatus struct {
	Username   string           `json:"username"`
	OutPath    string           `json:"out_path"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	TotalSeen  int              `json:"total_seen"`
	LastUpdate models.Timestamp `json:"last_update"`
}

type SupervisorInterface interface {
	Add(raw string) (string, error)
	Remove(username string) error
	Start(username string) error
	StartAll() int
	Stop(username string) error
	StopAll() int
	StatusSnapshot() []TargetStatus
	Export(path string) (int, string, error)
	SetAPIKey(key string) error
	Restore()
	PersistAll() error
	LedgerSnapshots() map[string]map[string]models.GiftRecord
}

type target struct {
	session *monitor.Session
	ledger  *models.Ledger
	outPath string
}

// Supervisor owns the registry of monitored targets and their sessions. All
// mutations are serialized through mu; sessions keep running in their own
// goroutines and are never paused by reads.
type Supervisor struct {
	conf     *structures.Config
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	store    *monitor.LedgerStore
	state    *monitor.StateStore
	source   monitor.EventSource
	exporter *monitor.Exporter

	mu      sync.Mutex
	targets map[string]*target
}

func NewSupervisor(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, store *monitor.LedgerStore, state *monitor.StateStore, source monitor.EventSource, exporter *monitor.Exporter) SupervisorInterface {
	return &Supervisor{
		conf:     conf,
		logger:   logger,
		metrics:  metrics,
		store:    store,
		state:    state,
		source:   source,
		exporter: exporter,
		targets:  make(map[string]*target),
	}
}

// Add resolves the raw identifier and registers the target in Idle state
// with its ledger loaded from disk (or empty). The registered target list is
// persisted to the state file.
func (sv *Supervisor) Add(raw string) (string, error) {
	username, err := monitor.Canonical(raw)
	if err != nil {
		return "", fmt.Errorf("add %q: %w", raw, err)
	}

	sv.mu.Lock()
	defer sv.mu.Unlock()

	if _, exists := sv.targets[username]; exists {
		return "", fmt.Errorf("add %s: %w", username, ErrDuplicateTarget)
	}

	sv.register(username)
	sv.saveTargetsLocked()
	sv.logger.Infof(providers.TypeApp, "Registered target %s", username)
	return username, nil
}

// register creates the target entry. Caller holds mu.
func (sv *Supervisor) register(username string) {
	ledger := sv.store.Load(username)
	sv.targets[username] = &target{
		session: monitor.NewSession(username, ledger, sv.store, sv.source, sv.logger, sv.metrics, sv.conf.Monitor.StopTimeout),
		ledger:  ledger,
		outPath: sv.store.Path(username),
	}
}

// Remove deregisters a target. The session must be Idle (or Error): the
// supervisor never stops a live connection implicitly. The on-disk ledger
// file is retained.
func (sv *Supervisor) Remove(username string) error {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	t, exists := sv.targets[username]
	if !exists {
		return fmt.Errorf("remove %s: %w", username, ErrTargetNotFound)
	}
	switch t.session.Status() {
	case monitor.StatusIdle, monitor.StatusError:
	default:
		return fmt.Errorf("remove %s: %w", username, ErrTargetBusy)
	}

	delete(sv.targets, username)
	sv.saveTargetsLocked()
	sv.logger.Infof(providers.TypeApp, "Removed target %s", username)
	return nil
}

func (sv *Supervisor) Start(username string) error {
	sv.mu.Lock()
	t, exists := sv.targets[username]
	sv.mu.Unlock()

	if !exists {
		return fmt.Errorf("start %s: %w", username, ErrTargetNotFound)
	}
	return t.session.Start()
}

// StartAll starts every startable target independently; one target's
// failure never prevents the others from starting. Returns the number of
// sessions that entered Connecting.
func (sv *Supervisor) StartAll() int {
	started := 0
	for _, t := range sv.sessions() {
		if err := t.Start(); err != nil {
			continue
		}
		started++
	}
	return started
}

func (sv *Supervisor) Stop(username string) error {
	sv.mu.Lock()
	t, exists := sv.targets[username]
	sv.mu.Unlock()

	if !exists {
		return fmt.Errorf("stop %s: %w", username, ErrTargetNotFound)
	}
	return t.session.Stop()
}

// StopAll stops every session, tolerating targets already Idle. Returns the
// number of sessions that were actually stopped.
func (sv *Supervisor) StopAll() int {
	stopped := 0
	for _, s := range sv.sessions() {
		active := s.Status() == monitor.StatusConnecting || s.Status() == monitor.StatusRunning
		if err := s.Stop(); err != nil {
			sv.logger.Errorf(providers.TypeApp, "Stop failed: %s", err)
			continue
		}
		if active {
			stopped++
		}
	}
	return stopped
}

// sessions snapshots the session list so starts and stops do not hold the
// registry lock while waiting on a session.
func (sv *Supervisor) sessions() []*monitor.Session {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	out := make([]*monitor.Session, 0, len(sv.targets))
	for _, u := range sv.usernamesLocked() {
		out = append(out, sv.targets[u].session)
	}
	return out
}

// StatusSnapshot reports every target's state without pausing any session.
func (sv *Supervisor) StatusSnapshot() []TargetStatus {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	byState := make(map[string]int)
	result := make([]TargetStatus, 0, len(sv.targets))
	for _, u := range sv.usernamesLocked() {
		t := sv.targets[u]
		status := t.session.Status()
		byState[status.String()]++
		sv.metrics.SetLedgerRecords(u, t.ledger.Len())

		result = append(result, TargetStatus{
			Username:   u,
			OutPath:    t.outPath,
			Status:     status.String(),
			Error:      t.session.ErrReason(),
			TotalSeen:  t.ledger.Total(),
			LastUpdate: models.NewTimestamp(t.session.LastUpdate()),
		})
	}

	for _, state := range []monitor.Status{monitor.StatusIdle, monitor.StatusConnecting, monitor.StatusRunning, monitor.StatusStopping, monitor.StatusError} {
		sv.metrics.SetSessionsByState(state.String(), byState[state.String()])
	}
	return result
}

// Export merges all ledgers into the mapping template at path (default path
// when empty). Returns the entry count and the path written.
func (sv *Supervisor) Export(path string) (int, string, error) {
	if path == "" {
		path = sv.exporter.DefaultPath()
	}
	n, err := sv.exporter.Export(path, sv.LedgerSnapshots())
	if err != nil {
		return 0, "", fmt.Errorf("export: %w", err)
	}
	return n, path, nil
}

func (sv *Supervisor) SetAPIKey(key string) error {
	return sv.state.SetAPIKey(key)
}

// Restore re-registers the targets persisted in the state file. Called once
// at startup; malformed entries are skipped.
func (sv *Supervisor) Restore() {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	for _, raw := range sv.state.Targets() {
		username, err := monitor.Canonical(raw)
		if err != nil {
			sv.logger.Warnf(providers.TypeApp, "Skipping unparsable saved target %q", raw)
			continue
		}
		if _, exists := sv.targets[username]; exists {
			continue
		}
		sv.register(username)
	}
	sv.logger.Infof(providers.TypeApp, "Restored %d targets", len(sv.targets))
}

// PersistAll flushes every registered ledger to its file.
func (sv *Supervisor) PersistAll() error {
	sv.mu.Lock()
	usernames := sv.usernamesLocked()
	ledgers := make(map[string]*models.Ledger, len(usernames))
	for _, u := range usernames {
		ledgers[u] = sv.targets[u].ledger
	}
	sv.mu.Unlock()

	var firstErr error
	for _, u := range usernames {
		if err := sv.store.Save(u, ledgers[u]); err != nil {
			sv.logger.Errorf(providers.TypeApp, "Cannot persist ledger for %s: %s", u, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// LedgerSnapshots returns a consistent point-in-time copy of every ledger.
func (sv *Supervisor) LedgerSnapshots() map[string]map[string]models.GiftRecord {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	result := make(map[string]map[string]models.GiftRecord, len(sv.targets))
	for u, t := range sv.targets {
		result[u] = t.ledger.Snapshot()
	}
	return result
}

// usernamesLocked returns registered usernames sorted. Caller holds mu.
func (sv *Supervisor) usernamesLocked() []string {
	usernames := make([]string, 0, len(sv.targets))
	for u := range sv.targets {
		usernames = append(usernames, u)
	}
	sort.Strings(usernames)
	return usernames
}

// saveTargetsLocked persists the registry to the state file. Failures are
// logged, never fatal to monitoring. Caller holds mu.
func (sv *Supervisor) saveTargetsLocked() {
	if err := sv.state.SetTargets(sv.usernamesLocked()); err != nil {
		sv.logger.Errorf(providers.TypeApp, "Cannot persist target list: %s", err)
	}
}
