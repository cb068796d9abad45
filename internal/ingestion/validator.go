package ingestion

import (
	"strings"

	"ingest/pkg/errors"
	"ingest/pkg/models"
)

const (
	ReasonSourceEmpty      = "source empty"
	ReasonContentTypeEmpty = "content_type empty"
	ReasonPayloadNull      = "payload null"
)

// Validate checks source, content_type and payload in that order and reports
// the first failure. Metadata and payload contents are never inspected.
func Validate(rec models.Record) error {
	if strings.TrimSpace(rec.Source) == "" {
		return errors.ErrValidation.WithMessage(ReasonSourceEmpty)
	}
	if rec.ContentType == "" {
		return errors.ErrValidation.WithMessage(ReasonContentTypeEmpty)
	}
	if models.IsNull(rec.Payload) {
		return errors.ErrValidation.WithMessage(ReasonPayloadNull)
	}
	return nil
}
