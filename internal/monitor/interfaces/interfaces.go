package interfaces

import "gsd/internal/models"

type SchedulerInterface interface {
	Init()
	Stop()
	Persist() error
}

type CompressorInterface interface {
	Compress(val []byte) ([]byte, error)
	Decompress(val []byte) ([]byte, error)
	Close()
}

// LedgerSource exposes the supervisor's ledgers to the scheduler and the
// archiver without a package cycle.
type LedgerSource interface {
	PersistAll() error
	LedgerSnapshots() map[string]map[string]models.GiftRecord
}
