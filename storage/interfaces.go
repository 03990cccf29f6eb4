package storage

import "zigbang-scraper/models"

// RunRecorder persists per-combination run outcomes. Listings themselves
// are never stored; they are forwarded to the core service and discarded.
type RunRecorder interface {
	Record(record *models.RunRecord) error
	Close() error
}

// NopRecorder is used when no scraper database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(*models.RunRecord) error { return nil }
func (NopRecorder) Close() error                   { return nil }
