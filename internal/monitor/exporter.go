package monitor

import (
	"errors"
	"path/filepath"
	"sort"

	json "github.com/goccy/go-json"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/structures"
)

const exportFileName = "gift_map_template.json"

var ErrNothingToExport = errors.New("no gift data to export")

// Exporter merges every target's ledger into one deduplicated mapping
// template.
type Exporter struct {
	dir    string
	logger providers.Logger
}

func NewExporter(conf *structures.Config, logger providers.Logger) *Exporter {
	return &Exporter{
		dir:    conf.Monitor.DataDir,
		logger: logger,
	}
}

func (e *Exporter) DefaultPath() string {
	return filepath.Join(e.dir, exportFileName)
}

// Export merges the given ledgers by gift key and writes the template
// atomically. Targets and keys are visited in sorted order so the output is
// deterministic; the first-encountered display name for a key wins. Returns
// the number of entries written.
func (e *Exporter) Export(path string, ledgers map[string]map[string]models.GiftRecord) (int, error) {
	if path == "" {
		path = e.DefaultPath()
	}

	usernames := make([]string, 0, len(ledgers))
	for u := range ledgers {
		usernames = append(usernames, u)
	}
	sort.Strings(usernames)

	seen := make(map[string]struct{})
	entries := make([]models.ExportEntry, 0)
	for _, u := range usernames {
		records := ledgers[u]
		keys := make([]string, 0, len(records))
		for k := range records {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			rec := records[k]
			key := models.LedgerKey(rec.GiftID, rec.GiftName)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			entries = append(entries, models.ExportEntry{
				Gid:  rec.GiftID,
				Kw:   rec.GiftName,
				Path: "",
			})
		}
	}

	if len(entries) == 0 {
		return 0, ErrNothingToExport
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := atomicWrite(path, data); err != nil {
		return 0, err
	}

	e.logger.Infof(providers.TypeApp, "Exported %d entries to %s", len(entries), path)
	return len(entries), nil
}
