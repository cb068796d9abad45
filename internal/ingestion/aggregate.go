package ingestion

import (
	"time"

	"ingest/internal/constants"
	"ingest/pkg/models"
)

// ItemResult is the outcome of one batch item. Err is nil only when the item
// was published.
type ItemResult struct {
	Index   int
	ID      string
	Outcome string
	Err     error
}

func (r ItemResult) Published() bool {
	return r.Err == nil && r.Outcome == constants.OutcomePublished
}

// Aggregate folds item results, already in input order, into the batch response.
// Items skipped for validation and items whose publish failed are dropped alike.
func Aggregate(results []ItemResult, finishedAt time.Time) models.BatchOutcome {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.Published() {
			ids = append(ids, r.ID)
		}
	}

	return models.BatchOutcome{
		Status:    models.StatusSuccess,
		Count:     len(ids),
		IDs:       ids,
		Timestamp: finishedAt.UTC(),
	}
}
