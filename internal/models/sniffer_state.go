package models

// SnifferState is the persisted operator state (gift_sniffer.json).
// WindowGeometry is an opaque blob written by older GUI builds; it is
// round-tripped untouched so the file stays compatible.
type SnifferState struct {
	APIKey         string   `json:"api_key"`
	WindowGeometry string   `json:"window_geometry,omitempty"`
	Targets        []string `json:"targets"`
}
