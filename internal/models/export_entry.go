package models

// ExportEntry is one row of the gift mapping template. Path is left empty
// for the operator to fill in.
type ExportEntry struct {
	Gid  string `json:"gid"`
	Kw   string `json:"kw"`
	Path string `json:"path"`
}
