package models

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

var byteOrder = binary.LittleEndian

const maxBinaryRecords = 1 << 20

// writeString writes a uint16 length-prefixed UTF-8 string.
func writeString(w io.Writer, s string) error {
	if len(s) > int(^uint16(0)) {
		return fmt.Errorf("string too long: %d bytes", len(s))
	}
	if err := binary.Write(w, byteOrder, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// readString reads a uint16 length-prefixed UTF-8 string.
func readString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, byteOrder, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// writeGiftRecords writes a map[string]GiftRecord in binary format.
// Format: count(uint32) + for each: key, gift_id, gift_name,
// count_total(int64), first_seen(unix int64), last_seen(unix int64).
func writeGiftRecords(w io.Writer, data map[string]GiftRecord) error {
	if err := binary.Write(w, byteOrder, uint32(len(data))); err != nil {
		return err
	}
	for key, rec := range data {
		if err := writeString(w, key); err != nil {
			return err
		}
		if err := writeString(w, rec.GiftID); err != nil {
			return err
		}
		if err := writeString(w, rec.GiftName); err != nil {
			return err
		}
		if err := binary.Write(w, byteOrder, int64(rec.CountTotal)); err != nil {
			return err
		}
		if err := binary.Write(w, byteOrder, rec.FirstSeenAt.Unix()); err != nil {
			return err
		}
		if err := binary.Write(w, byteOrder, rec.LastSeenAt.Unix()); err != nil {
			return err
		}
	}
	return nil
}

// readGiftRecords reads a map[string]GiftRecord from binary format.
func readGiftRecords(r io.Reader) (map[string]GiftRecord, error) {
	var count uint32
	if err := binary.Read(r, byteOrder, &count); err != nil {
		return nil, err
	}
	if count > maxBinaryRecords {
		return nil, fmt.Errorf("record count %d exceeds limit", count)
	}
	data := make(map[string]GiftRecord, count)
	for i := uint32(0); i < count; i++ {
		key, err := readString(r)
		if err != nil {
			return nil, err
		}
		giftID, err := readString(r)
		if err != nil {
			return nil, err
		}
		giftName, err := readString(r)
		if err != nil {
			return nil, err
		}
		var total, first, last int64
		if err := binary.Read(r, byteOrder, &total); err != nil {
			return nil, err
		}
		if err := binary.Read(r, byteOrder, &first); err != nil {
			return nil, err
		}
		if err := binary.Read(r, byteOrder, &last); err != nil {
			return nil, err
		}
		data[key] = GiftRecord{
			GiftID:      giftID,
			GiftName:    giftName,
			CountTotal:  int(total),
			FirstSeenAt: NewTimestamp(time.Unix(first, 0)),
			LastSeenAt:  NewTimestamp(time.Unix(last, 0)),
		}
	}
	return data, nil
}

// WriteBackupTo writes a set of ledgers keyed by username in binary format.
func WriteBackupTo(w io.Writer, ledgers map[string]map[string]GiftRecord) error {
	if err := binary.Write(w, byteOrder, uint32(len(ledgers))); err != nil {
		return err
	}
	for username, records := range ledgers {
		if err := writeString(w, username); err != nil {
			return err
		}
		if err := writeGiftRecords(w, records); err != nil {
			return err
		}
	}
	return nil
}

// ReadBackupFrom reads a set of ledgers keyed by username in binary format.
func ReadBackupFrom(r io.Reader) (map[string]map[string]GiftRecord, error) {
	var count uint32
	if err := binary.Read(r, byteOrder, &count); err != nil {
		return nil, err
	}
	if count > maxBinaryRecords {
		return nil, fmt.Errorf("ledger count %d exceeds limit", count)
	}
	ledgers := make(map[string]map[string]GiftRecord, count)
	for i := uint32(0); i < count; i++ {
		username, err := readString(r)
		if err != nil {
			return nil, err
		}
		records, err := readGiftRecords(r)
		if err != nil {
			return nil, err
		}
		ledgers[username] = records
	}
	return ledgers, nil
}
