package models

import (
	"io"
	"sync"
	"time"
)

// Ledger aggregates gift statistics for a single monitored target.
// Records are stored by value so an Upsert replaces the whole record under
// the write lock; a Snapshot reader can never observe a half-applied update.
type Ledger struct {
	mu   sync.RWMutex
	data map[string]GiftRecord
}

func NewLedger() *Ledger {
	return &Ledger{
		data: make(map[string]GiftRecord),
	}
}

// Upsert records count occurrences of a gift at the given time. A count
// below 1 is treated as 1. Events with neither an id nor a name are dropped.
func (l *Ledger) Upsert(giftID, giftName string, count int, at time.Time) {
	key := LedgerKey(giftID, giftName)
	if key == "" {
		return
	}
	if count < 1 {
		count = 1
	}
	ts := NewTimestamp(at)

	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.data[key]; ok {
		if rec.GiftID == "" {
			rec.GiftID = giftID
		}
		if rec.GiftName == "" {
			rec.GiftName = giftName
		}
		rec.CountTotal += count
		rec.LastSeenAt = ts
		l.data[key] = rec
		return
	}
	l.data[key] = GiftRecord{
		GiftID:      giftID,
		GiftName:    giftName,
		CountTotal:  count,
		FirstSeenAt: ts,
		LastSeenAt:  ts,
	}
}

func (l *Ledger) Get(key string) (*GiftRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	val, ok := l.data[key]
	if !ok {
		return nil, false
	}
	copy := val
	return &copy, true
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.data)
}

// Total returns the sum of CountTotal across all records.
func (l *Ledger) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := 0
	for _, rec := range l.data {
		total += rec.CountTotal
	}
	return total
}

// Snapshot returns a point-in-time deep copy safe to read while the owning
// session keeps calling Upsert.
func (l *Ledger) Snapshot() map[string]GiftRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]GiftRecord, len(l.data))
	for k, v := range l.data {
		result[k] = v
	}
	return result
}

func (l *Ledger) PutData(data map[string]GiftRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = make(map[string]GiftRecord, len(data))
	for k, v := range data {
		if k == "" {
			continue
		}
		l.data[k] = v
	}
}

// WriteBinaryTo writes the ledger records in the compact backup format.
func (l *Ledger) WriteBinaryTo(w io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return writeGiftRecords(w, l.data)
}

// ReadBinaryFrom replaces the ledger content from the compact backup format.
func (l *Ledger) ReadBinaryFrom(r io.Reader) error {
	data, err := readGiftRecords(r)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = data
	return nil
}
