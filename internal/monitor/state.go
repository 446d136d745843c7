package monitor

import (
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/structures"
)

const stateFileName = "gift_sniffer.json"

// StateStore persists the operator state (API key, registered targets) to
// gift_sniffer.json. A missing or malformed file yields defaults; save
// failures are surfaced but never fatal to monitoring.
type StateStore struct {
	path   string
	logger providers.Logger

	mu    sync.RWMutex
	state models.SnifferState
}

func NewStateStore(conf *structures.Config, logger providers.Logger) *StateStore {
	ss := &StateStore{
		path:   filepath.Join(conf.Monitor.DataDir, stateFileName),
		logger: logger,
	}
	ss.load()
	return ss
}

func (ss *StateStore) load() {
	data, err := os.ReadFile(ss.path)
	if err != nil {
		if !os.IsNotExist(err) {
			ss.logger.Warnf(providers.TypeApp, "Cannot read state file %s: %s", ss.path, err)
		}
		return
	}
	var state models.SnifferState
	if err := json.Unmarshal(data, &state); err != nil {
		ss.logger.Warnf(providers.TypeApp, "Malformed state file %s, starting with defaults: %s", ss.path, err)
		return
	}
	ss.state = state
}

func (ss *StateStore) Save() error {
	ss.mu.RLock()
	state := ss.state
	ss.mu.RUnlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(ss.path), 0755); err != nil {
		return err
	}
	return atomicWrite(ss.path, data)
}

func (ss *StateStore) APIKey() string {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.state.APIKey
}

func (ss *StateStore) SetAPIKey(key string) error {
	ss.mu.Lock()
	ss.state.APIKey = key
	ss.mu.Unlock()
	return ss.Save()
}

func (ss *StateStore) Targets() []string {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	out := make([]string, len(ss.state.Targets))
	copy(out, ss.state.Targets)
	return out
}

func (ss *StateStore) SetTargets(targets []string) error {
	ss.mu.Lock()
	ss.state.Targets = make([]string, len(targets))
	copy(ss.state.Targets, targets)
	ss.mu.Unlock()
	return ss.Save()
}

// atomicWrite writes data to a temp file in the target directory, syncs it,
// and renames it over path so a crash never leaves a torn file.
func atomicWrite(path string, data []byte) error {
	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}
	return os.Rename(tmpFile, path)
}
