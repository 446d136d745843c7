package monitor

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"gsd/internal/models"
	"gsd/internal/monitor/interfaces"
	"gsd/internal/providers"
	"gsd/internal/structures"
)

const backupFileName = "ledgers_backup.bin.zst"

// Archiver writes a compressed binary backup of every registered ledger into
// a single file. The per-target JSON files remain the source of truth; the
// backup is a compact recovery artifact.
type Archiver struct {
	dir        string
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func NewArchiver(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *Archiver {
	return &Archiver{
		dir:        conf.Monitor.DataDir,
		compressor: compressor,
		logger:     logger,
		metrics:    metrics,
	}
}

func (a *Archiver) Path() string {
	return filepath.Join(a.dir, backupFileName)
}

func (a *Archiver) Backup(ledgers map[string]map[string]models.GiftRecord) error {
	start := time.Now()

	var buf bytes.Buffer
	if err := models.WriteBackupTo(&buf, ledgers); err != nil {
		return err
	}
	data, err := a.compressor.Compress(buf.Bytes())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return err
	}
	if err := atomicWrite(a.Path(), data); err != nil {
		return err
	}

	a.metrics.ObservePersistenceDuration(time.Since(start))
	a.logger.Debugf(providers.TypeApp, "Backed up %d ledgers to %s", len(ledgers), a.Path())
	return nil
}

// LoadBackup reads the backup file back into ledger maps. A missing file
// yields an empty result.
func (a *Archiver) LoadBackup() (map[string]map[string]models.GiftRecord, error) {
	data, err := os.ReadFile(a.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]map[string]models.GiftRecord{}, nil
		}
		return nil, err
	}
	raw, err := a.compressor.Decompress(data)
	if err != nil {
		return nil, err
	}
	return models.ReadBackupFrom(bytes.NewReader(raw))
}

func (a *Archiver) Close() {
	a.compressor.Close()
}
