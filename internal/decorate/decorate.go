// Package decorate marks rows of the module management list that have an
// update available.
package decorate

import (
	"fmt"
	"strings"

	"modnotifier/internal/update"
)

const (
	// BadgeUpdateAvailable is the badge class set on outdated rows.
	BadgeUpdateAvailable = "update-available"
	// IconUpdateAvailable replaces the row icon on outdated rows.
	IconUpdateAvailable = "⇈"
)

// Row is one entry of the module management list.
type Row struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
	Badge   string `json:"badge,omitempty" yaml:"badge,omitempty"`
	Icon    string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Tooltip string `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	// Locked keeps the tooltip open so its link can be followed.
	Locked bool `json:"locked,omitempty" yaml:"locked,omitempty"`
}

// UpdateText is the tooltip line announcing a newer version.
func UpdateText(latest string) string {
	return fmt.Sprintf("Update available: %s", latest)
}

// Decorate returns a copy of rows with every row that has a matching record
// marked as outdated. Records without a row and rows without a record are
// left alone.
func Decorate(rows []Row, records []update.Record) []Row {
	out := append([]Row(nil), rows...)
	if len(records) == 0 {
		return out
	}
	index := make(map[string]int, len(out))
	for i, row := range out {
		if _, seen := index[row.ID]; !seen {
			index[row.ID] = i
		}
	}
	for _, rec := range records {
		i, ok := index[rec.ID]
		if !ok {
			continue
		}
		out[i] = decorateRow(out[i], rec)
	}
	return out
}

func decorateRow(row Row, rec update.Record) Row {
	row.Badge = BadgeUpdateAvailable
	row.Icon = IconUpdateAvailable

	lines := make([]string, 0, 3)
	if strings.TrimSpace(row.Tooltip) != "" {
		lines = append(lines, row.Tooltip)
	}
	lines = append(lines, UpdateText(rec.Latest))
	if rec.ReleaseNotes != "" {
		lines = append(lines, fmt.Sprintf("Release Notes: %s", rec.ReleaseNotes))
		row.Locked = true
	}
	row.Tooltip = strings.Join(lines, "\n")
	return row
}
