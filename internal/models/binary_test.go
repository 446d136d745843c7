package models

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() map[string]GiftRecord {
	at := NewTimestamp(time.Date(2026, 8, 1, 12, 0, 0, 0, time.Local))
	return map[string]GiftRecord{
		"5655": {GiftID: "5655", GiftName: "Rose", CountTotal: 3, FirstSeenAt: at, LastSeenAt: at},
		"rose": {GiftID: "", GiftName: "Rose", CountTotal: 1, FirstSeenAt: at, LastSeenAt: at},
	}
}

func TestBinary_LedgerRoundTrip(t *testing.T) {
	l := NewLedger()
	l.PutData(sampleRecords())

	var buf bytes.Buffer
	require.NoError(t, l.WriteBinaryTo(&buf))

	restored := NewLedger()
	require.NoError(t, restored.ReadBinaryFrom(&buf))

	assert.Equal(t, l.Snapshot(), restored.Snapshot())
}

func TestBinary_BackupRoundTrip(t *testing.T) {
	in := map[string]map[string]GiftRecord{
		"alice": sampleRecords(),
		"bob":   {},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBackupTo(&buf, in))

	out, err := ReadBackupFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBinary_ReadTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBackupTo(&buf, map[string]map[string]GiftRecord{"alice": sampleRecords()}))

	truncated := buf.Bytes()[:buf.Len()/2]
	_, err := ReadBackupFrom(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestBinary_ReadGarbage(t *testing.T) {
	_, err := ReadBackupFrom(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x01}))
	assert.Error(t, err)
}
