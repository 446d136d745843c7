package monitor_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/monitor"
	"gsd/internal/structures"
	"gsd/internal/testutil"
)

func testConfig(dir string) *structures.Config {
	return &structures.Config{
		Monitor: structures.MonitorConfig{
			DataDir:        dir,
			SourceURL:      "ws://127.0.0.1:1/feed",
			FlushInterval:  30,
			BackupInterval: 300,
			StopTimeout:    2 * time.Second,
		},
	}
}

func newTestLedgerStore(t *testing.T) (*monitor.LedgerStore, *testutil.MockLogger) {
	t.Helper()
	logger := &testutil.MockLogger{}
	return monitor.NewLedgerStore(testConfig(t.TempDir()), logger, testutil.NewMockMetrics()), logger
}

func TestLedgerStore_Path(t *testing.T) {
	store, _ := newTestLedgerStore(t)
	assert.Equal(t, "gifts_seen_alice.json", filepath.Base(store.Path("alice")))
}

func TestLedgerStore_SaveLoadRoundTrip(t *testing.T) {
	store, _ := newTestLedgerStore(t)

	ledger := store.Load("alice")
	ledger.Upsert("5655", "Rose", 2, time.Date(2026, 8, 1, 10, 0, 0, 0, time.Local))
	ledger.Upsert("", "Lion", 1, time.Date(2026, 8, 1, 11, 0, 0, 0, time.Local))
	require.NoError(t, store.Save("alice", ledger))

	restored := store.Load("alice")
	assert.Equal(t, ledger.Snapshot(), restored.Snapshot())
}

func TestLedgerStore_LoadMissingYieldsEmpty(t *testing.T) {
	store, _ := newTestLedgerStore(t)
	ledger := store.Load("nobody")
	assert.Equal(t, 0, ledger.Len())
}

func TestLedgerStore_LoadCorruptYieldsEmpty(t *testing.T) {
	store, logger := newTestLedgerStore(t)
	require.NoError(t, os.WriteFile(store.Path("alice"), []byte("{broken"), 0644))

	ledger := store.Load("alice")
	assert.Equal(t, 0, ledger.Len())

	entries := logger.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "warn", entries[len(entries)-1].Level)
}

func TestLedgerStore_SaveLeavesNoTempFile(t *testing.T) {
	store, _ := newTestLedgerStore(t)
	ledger := store.Load("alice")
	ledger.Upsert("1", "Rose", 1, time.Now())
	require.NoError(t, store.Save("alice", ledger))

	_, err := os.Stat(store.Path("alice") + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLedgerStore_SaveObservesPersistence(t *testing.T) {
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	store := monitor.NewLedgerStore(testConfig(t.TempDir()), logger, metrics)

	ledger := store.Load("alice")
	ledger.Upsert("1", "Rose", 1, time.Now())
	require.NoError(t, store.Save("alice", ledger))
	assert.Equal(t, 1, metrics.PersistObserve)
}
