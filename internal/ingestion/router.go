package ingestion

import "ingest/internal/constants"

// Route returns the bus topic for a content type. The content type is used verbatim.
func Route(contentType string) string {
	return constants.TopicPrefix + contentType
}
