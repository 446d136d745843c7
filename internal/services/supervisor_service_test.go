package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/models"
	"gsd/internal/monitor"
	"gsd/internal/structures"
	"gsd/internal/testutil"
)

type supervisorFixture struct {
	sv     SupervisorInterface
	conf   *structures.Config
	source *testutil.MockEventSource
	state  *monitor.StateStore
	logger *testutil.MockLogger
}

func newSupervisorFixture(t *testing.T) *supervisorFixture {
	t.Helper()
	conf := &structures.Config{
		Monitor: structures.MonitorConfig{
			DataDir:        t.TempDir(),
			SourceURL:      "ws://127.0.0.1:1/feed",
			FlushInterval:  30,
			BackupInterval: 300,
			StopTimeout:    2 * time.Second,
		},
	}
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	store := monitor.NewLedgerStore(conf, logger, metrics)
	state := monitor.NewStateStore(conf, logger)
	source := testutil.NewMockEventSource()
	exporter := monitor.NewExporter(conf, logger)

	return &supervisorFixture{
		sv:     NewSupervisor(conf, logger, metrics, store, state, source, exporter),
		conf:   conf,
		source: source,
		state:  state,
		logger: logger,
	}
}

func (f *supervisorFixture) waitStatus(t *testing.T, username string, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, row := range f.sv.StatusSnapshot() {
			if row.Username == username {
				return row.Status == want
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "target %s never reached %s", username, want)
}

func (f *supervisorFixture) statusOf(t *testing.T, username string) TargetStatus {
	t.Helper()
	for _, row := range f.sv.StatusSnapshot() {
		if row.Username == username {
			return row
		}
	}
	t.Fatalf("target %s not in snapshot", username)
	return TargetStatus{}
}

func TestSupervisor_AddCanonicalizes(t *testing.T) {
	f := newSupervisorFixture(t)

	username, err := f.sv.Add("https://www.tiktok.com/@Alice_Smith?lang=en")
	require.NoError(t, err)
	assert.Equal(t, "alice_smith", username)

	row := f.statusOf(t, "alice_smith")
	assert.Equal(t, "idle", row.Status)
	assert.Equal(t, "gifts_seen_alice_smith.json", filepath.Base(row.OutPath))
}

func TestSupervisor_AddInvalidIdentifier(t *testing.T) {
	f := newSupervisorFixture(t)

	_, err := f.sv.Add("   ")
	assert.ErrorIs(t, err, monitor.ErrInvalidIdentifier)
	assert.Empty(t, f.sv.StatusSnapshot())
}

func TestSupervisor_AddDuplicate(t *testing.T) {
	f := newSupervisorFixture(t)

	_, err := f.sv.Add("alice")
	require.NoError(t, err)

	_, err = f.sv.Add("https://tiktok.com/@ALICE/live")
	assert.ErrorIs(t, err, ErrDuplicateTarget)
	assert.Len(t, f.sv.StatusSnapshot(), 1)
}

func TestSupervisor_AddPersistsTargetList(t *testing.T) {
	f := newSupervisorFixture(t)

	_, err := f.sv.Add("bob")
	require.NoError(t, err)
	_, err = f.sv.Add("alice")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, f.state.Targets())
}

func TestSupervisor_RemoveUnknown(t *testing.T) {
	f := newSupervisorFixture(t)
	assert.ErrorIs(t, f.sv.Remove("ghost"), ErrTargetNotFound)
}

func TestSupervisor_RemoveBusyThenAfterStop(t *testing.T) {
	f := newSupervisorFixture(t)

	_, err := f.sv.Add("alice")
	require.NoError(t, err)
	require.NoError(t, f.sv.Start("alice"))
	f.waitStatus(t, "alice", "running")

	assert.ErrorIs(t, f.sv.Remove("alice"), ErrTargetBusy)

	require.NoError(t, f.sv.Stop("alice"))
	f.waitStatus(t, "alice", "idle")
	assert.NoError(t, f.sv.Remove("alice"))
	assert.Empty(t, f.sv.StatusSnapshot())
	assert.Empty(t, f.state.Targets())
}

func TestSupervisor_RemoveKeepsLedgerFile(t *testing.T) {
	f := newSupervisorFixture(t)

	_, err := f.sv.Add("alice")
	require.NoError(t, err)
	require.NoError(t, f.sv.Start("alice"))
	f.waitStatus(t, "alice", "running")

	f.source.Conn("alice").Emit(&monitor.GiftEvent{GiftID: "5655", GiftName: "Rose", RepeatCount: 1, At: time.Now()})
	f.waitStatus(t, "alice", "running")
	require.Eventually(t, func() bool {
		return f.statusOf(t, "alice").TotalSeen == 1
	}, 2*time.Second, 5*time.Millisecond)

	path := f.statusOf(t, "alice").OutPath
	require.NoError(t, f.sv.Stop("alice"))
	f.waitStatus(t, "alice", "idle")
	require.NoError(t, f.sv.Remove("alice"))

	_, err = os.Stat(path)
	assert.NoError(t, err, "ledger file must survive target removal")
}

func TestSupervisor_StartUnknown(t *testing.T) {
	f := newSupervisorFixture(t)
	assert.ErrorIs(t, f.sv.Start("ghost"), ErrTargetNotFound)
}

func TestSupervisor_StartAllIsolatesFailures(t *testing.T) {
	f := newSupervisorFixture(t)

	for _, u := range []string{"alice", "bob", "carol"} {
		_, err := f.sv.Add(u)
		require.NoError(t, err)
	}
	f.source.OpenErr["bob"] = errors.New("relay refused")

	started := f.sv.StartAll()
	assert.Equal(t, 3, started)

	f.waitStatus(t, "alice", "running")
	f.waitStatus(t, "carol", "running")
	f.waitStatus(t, "bob", "error")
	assert.Contains(t, f.statusOf(t, "bob").Error, "relay refused")
}

func TestSupervisor_StartAllSkipsActive(t *testing.T) {
	f := newSupervisorFixture(t)

	_, err := f.sv.Add("alice")
	require.NoError(t, err)
	require.NoError(t, f.sv.Start("alice"))
	f.waitStatus(t, "alice", "running")

	assert.Equal(t, 0, f.sv.StartAll())
}

func TestSupervisor_StopAllCountsOnlyActive(t *testing.T) {
	f := newSupervisorFixture(t)

	for _, u := range []string{"alice", "bob"} {
		_, err := f.sv.Add(u)
		require.NoError(t, err)
	}
	require.NoError(t, f.sv.Start("alice"))
	f.waitStatus(t, "alice", "running")

	stopped := f.sv.StopAll()
	assert.Equal(t, 1, stopped)
	f.waitStatus(t, "alice", "idle")
	assert.Equal(t, "idle", f.statusOf(t, "bob").Status)
}

func TestSupervisor_StatusSnapshotSorted(t *testing.T) {
	f := newSupervisorFixture(t)

	for _, u := range []string{"carol", "alice", "bob"} {
		_, err := f.sv.Add(u)
		require.NoError(t, err)
	}

	rows := f.sv.StatusSnapshot()
	require.Len(t, rows, 3)
	assert.Equal(t, "alice", rows[0].Username)
	assert.Equal(t, "bob", rows[1].Username)
	assert.Equal(t, "carol", rows[2].Username)
}

func TestSupervisor_EventsReachLedgerAndDisk(t *testing.T) {
	f := newSupervisorFixture(t)

	_, err := f.sv.Add("alice")
	require.NoError(t, err)
	require.NoError(t, f.sv.Start("alice"))
	f.waitStatus(t, "alice", "running")

	at := time.Now()
	f.source.Conn("alice").Emit(&monitor.GiftEvent{GiftID: "5655", GiftName: "Rose", RepeatCount: 2, At: at})
	f.source.Conn("alice").Emit(&monitor.GiftEvent{GiftID: "5655", GiftName: "Rose", RepeatCount: 3, At: at.Add(time.Second)})

	require.Eventually(t, func() bool {
		return f.statusOf(t, "alice").TotalSeen == 5
	}, 2*time.Second, 5*time.Millisecond)

	snapshots := f.sv.LedgerSnapshots()
	require.Contains(t, snapshots, "alice")
	rec, ok := snapshots["alice"]["5655"]
	require.True(t, ok)
	assert.Equal(t, 5, rec.CountTotal)

	_, err = os.Stat(f.statusOf(t, "alice").OutPath)
	assert.NoError(t, err)
}

func TestSupervisor_ExportDelegates(t *testing.T) {
	f := newSupervisorFixture(t)

	_, err := f.sv.Add("alice")
	require.NoError(t, err)
	require.NoError(t, f.sv.Start("alice"))
	f.waitStatus(t, "alice", "running")
	f.source.Conn("alice").Emit(&monitor.GiftEvent{GiftID: "5655", GiftName: "Rose", RepeatCount: 1, At: time.Now()})
	require.Eventually(t, func() bool {
		return f.statusOf(t, "alice").TotalSeen == 1
	}, 2*time.Second, 5*time.Millisecond)

	path := filepath.Join(f.conf.Monitor.DataDir, "out.json")
	n, written, err := f.sv.Export(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, path, written)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSupervisor_ExportEmpty(t *testing.T) {
	f := newSupervisorFixture(t)

	_, _, err := f.sv.Export("")
	assert.ErrorIs(t, err, monitor.ErrNothingToExport)
}

func TestSupervisor_ExportDefaultPath(t *testing.T) {
	f := newSupervisorFixture(t)

	_, err := f.sv.Add("alice")
	require.NoError(t, err)
	require.NoError(t, f.sv.Start("alice"))
	f.waitStatus(t, "alice", "running")
	f.source.Conn("alice").Emit(&monitor.GiftEvent{GiftID: "1", GiftName: "Lion", RepeatCount: 1, At: time.Now()})
	require.Eventually(t, func() bool {
		return f.statusOf(t, "alice").TotalSeen == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, written, err := f.sv.Export("")
	require.NoError(t, err)
	assert.Equal(t, "gift_map_template.json", filepath.Base(written))
}

func TestSupervisor_SetAPIKey(t *testing.T) {
	f := newSupervisorFixture(t)

	require.NoError(t, f.sv.SetAPIKey("k-123"))
	assert.Equal(t, "k-123", f.state.APIKey())
}

func TestSupervisor_RestoreFromStateFile(t *testing.T) {
	f := newSupervisorFixture(t)
	require.NoError(t, f.state.SetTargets([]string{"alice", "@Bob", "@"}))

	f.sv.Restore()

	rows := f.sv.StatusSnapshot()
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].Username)
	assert.Equal(t, "bob", rows[1].Username)
	for _, row := range rows {
		assert.Equal(t, "idle", row.Status)
	}
}

func TestSupervisor_RestoreLoadsExistingLedgers(t *testing.T) {
	conf := &structures.Config{
		Monitor: structures.MonitorConfig{
			DataDir:       t.TempDir(),
			SourceURL:     "ws://127.0.0.1:1/feed",
			FlushInterval: 30,
			StopTimeout:   2 * time.Second,
		},
	}
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	store := monitor.NewLedgerStore(conf, logger, metrics)

	seeded := models.NewLedger()
	seeded.Upsert("5655", "Rose", 4, time.Now())
	require.NoError(t, store.Save("alice", seeded))

	state := monitor.NewStateStore(conf, logger)
	require.NoError(t, state.SetTargets([]string{"alice"}))

	sv := NewSupervisor(conf, logger, metrics, store, state, testutil.NewMockEventSource(), monitor.NewExporter(conf, logger))
	sv.Restore()

	rows := sv.StatusSnapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].TotalSeen)
}

func TestSupervisor_PersistAll(t *testing.T) {
	f := newSupervisorFixture(t)

	for _, u := range []string{"alice", "bob"} {
		_, err := f.sv.Add(u)
		require.NoError(t, err)
	}
	require.NoError(t, f.sv.PersistAll())

	for _, u := range []string{"alice", "bob"} {
		_, err := os.Stat(f.statusOf(t, u).OutPath)
		assert.NoError(t, err)
	}
}
