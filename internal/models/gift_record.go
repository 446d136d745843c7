package models

import "strings"

// GiftRecord is one aggregated gift line inside a target's ledger.
// CountTotal only ever grows; FirstSeenAt is fixed at insert time.
type GiftRecord struct {
	GiftID      string    `json:"gift_id"`
	GiftName    string    `json:"gift_name"`
	CountTotal  int       `json:"count_total"`
	FirstSeenAt Timestamp `json:"first_seen_at"`
	LastSeenAt  Timestamp `json:"last_seen_at"`
}

// LedgerKey returns the map key for a gift: the numeric id when present,
// otherwise the lowercased display name.
func LedgerKey(giftID, giftName string) string {
	if giftID != "" {
		return giftID
	}
	return strings.ToLower(giftName)
}
