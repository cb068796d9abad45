package ingestion

import (
	"time"

	"github.com/google/uuid"

	"ingest/pkg/models"
)

// ApplyDefaults fills the fields a caller may omit: a fresh UUID for id, now
// for timestamp and an empty object for metadata. Fields already set are kept.
func ApplyDefaults(rec models.Record, now time.Time) models.Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now.UTC()
	}
	if models.IsNull(rec.Metadata) {
		rec.Metadata = models.EmptyObject()
	}
	return rec
}
