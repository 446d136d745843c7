package monitor

import (
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"gsd/internal/monitor/interfaces"
	"gsd/internal/providers"
	"gsd/internal/structures"
)

// Scheduler drives the periodic safety-net flush of all ledgers and the
// compressed backup. Per-event persistence already makes each ledger
// durable; the flush covers writes that failed at event time.
type Scheduler struct {
	config   *structures.Config
	logger   providers.Logger
	ledgers  interfaces.LedgerSource
	archiver *Archiver
	cron     *gron.Cron
	opsMu    sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	flushInterval := s.config.Monitor.FlushInterval
	backupInterval := s.config.Monitor.BackupInterval

	s.cron.AddFunc(gron.Every(flushInterval*time.Second), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		if err := s.ledgers.PersistAll(); err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while flushing ledgers: %s", err)
			return
		}
		s.logger.Debugf(providers.TypeApp, "Flushed all ledgers")
	})

	if backupInterval > 0 {
		s.cron.AddFunc(gron.Every(backupInterval*time.Second), func() {
			s.opsMu.Lock()
			defer s.opsMu.Unlock()

			if err := s.archiver.Backup(s.ledgers.LedgerSnapshots()); err != nil {
				s.logger.Errorf(providers.TypeApp, "Error while backing up ledgers: %s", err)
				return
			}
			s.logger.Infof(providers.TypeApp, "Ledger backup written")
		})
	}

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Persist runs a final flush and backup, used during shutdown.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting ledgers...")
	if err := s.ledgers.PersistAll(); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting ledgers: %s", err)
		return err
	}
	if err := s.archiver.Backup(s.ledgers.LedgerSnapshots()); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while backing up ledgers: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, ledgers interfaces.LedgerSource, archiver *Archiver) interfaces.SchedulerInterface {
	return &Scheduler{
		config:   config,
		logger:   logger,
		ledgers:  ledgers,
		archiver: archiver,
	}
}
