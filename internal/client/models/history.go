// Package models defines the viewer's local data models.
package models

import "time"

// HistoryEntry records one attempt to open a link in the viewer.
// The link key is never stored.
type HistoryEntry struct {
	ID          string
	Label       string
	ManifestURL string
	Flags       string

	// Status is the manifest status on success, empty otherwise.
	Status    string
	FileCount int
	Success   bool
	Error     string
	OpenedAt  time.Time
}
