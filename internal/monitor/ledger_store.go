package monitor

import (
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/structures"
)

// LedgerStore reads and writes per-target ledger files
// (gifts_seen_<username>.json) under the data directory.
type LedgerStore struct {
	dir     string
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewLedgerStore(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) *LedgerStore {
	return &LedgerStore{
		dir:     conf.Monitor.DataDir,
		logger:  logger,
		metrics: metrics,
	}
}

func (ls *LedgerStore) Path(username string) string {
	return filepath.Join(ls.dir, "gifts_seen_"+username+".json")
}

// Load reads a target's ledger from disk. A missing or malformed file is
// recoverable: monitoring starts with an empty ledger.
func (ls *LedgerStore) Load(username string) *models.Ledger {
	ledger := models.NewLedger()

	data, err := os.ReadFile(ls.Path(username))
	if err != nil {
		if !os.IsNotExist(err) {
			ls.logger.Warnf(providers.TypeApp, "Cannot read ledger for %s: %s", username, err)
		}
		return ledger
	}

	var records map[string]models.GiftRecord
	if err := json.Unmarshal(data, &records); err != nil {
		ls.logger.Warnf(providers.TypeApp, "Corrupt ledger for %s, starting fresh: %s", username, err)
		return ledger
	}
	ledger.PutData(records)
	return ledger
}

// Save writes a point-in-time snapshot of the ledger atomically.
func (ls *LedgerStore) Save(username string, ledger *models.Ledger) error {
	start := time.Now()

	data, err := json.MarshalIndent(ledger.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(ls.dir, 0755); err != nil {
		return err
	}
	if err := atomicWrite(ls.Path(username), data); err != nil {
		return err
	}

	ls.metrics.ObservePersistenceDuration(time.Since(start))
	return nil
}
