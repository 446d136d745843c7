package monitor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/monitor"
	"gsd/internal/testutil"
)

func TestStateStore_DefaultsWhenMissing(t *testing.T) {
	ss := monitor.NewStateStore(testConfig(t.TempDir()), &testutil.MockLogger{})
	assert.Empty(t, ss.APIKey())
	assert.Empty(t, ss.Targets())
}

func TestStateStore_RoundTrip(t *testing.T) {
	conf := testConfig(t.TempDir())
	ss := monitor.NewStateStore(conf, &testutil.MockLogger{})

	require.NoError(t, ss.SetAPIKey("secret"))
	require.NoError(t, ss.SetTargets([]string{"alice", "bob"}))

	reloaded := monitor.NewStateStore(conf, &testutil.MockLogger{})
	assert.Equal(t, "secret", reloaded.APIKey())
	assert.Equal(t, []string{"alice", "bob"}, reloaded.Targets())
}

func TestStateStore_MalformedFileYieldsDefaults(t *testing.T) {
	conf := testConfig(t.TempDir())
	path := filepath.Join(conf.Monitor.DataDir, "gift_sniffer.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	logger := &testutil.MockLogger{}
	ss := monitor.NewStateStore(conf, logger)
	assert.Empty(t, ss.APIKey())
	require.NotEmpty(t, logger.Entries())
	assert.Equal(t, "warn", logger.Entries()[0].Level)
}

// window_geometry written by older GUI builds must survive a load/save cycle.
func TestStateStore_PreservesWindowGeometry(t *testing.T) {
	conf := testConfig(t.TempDir())
	path := filepath.Join(conf.Monitor.DataDir, "gift_sniffer.json")
	blob := `{"api_key":"k","window_geometry":"AdnQywACAAA=","targets":["alice"]}`
	require.NoError(t, os.WriteFile(path, []byte(blob), 0644))

	ss := monitor.NewStateStore(conf, &testutil.MockLogger{})
	require.NoError(t, ss.SetTargets([]string{"alice", "bob"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AdnQywACAAA=")
}

func TestStateStore_TargetsReturnsCopy(t *testing.T) {
	conf := testConfig(t.TempDir())
	ss := monitor.NewStateStore(conf, &testutil.MockLogger{})
	require.NoError(t, ss.SetTargets([]string{"alice"}))

	got := ss.Targets()
	got[0] = "mallory"
	assert.Equal(t, []string{"alice"}, ss.Targets())
}
