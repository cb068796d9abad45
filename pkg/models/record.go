package models

import (
	"bytes"
	"encoding/json"
	"time"
)

const StatusSuccess = "success"

// Record is a single externally sourced item accepted for ingestion.
// Payload and Metadata are carried as raw JSON and never inspected beyond a null check.
type Record struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	ContentType string          `json:"content_type"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
	Metadata    json.RawMessage `json:"metadata"`
}

type BatchRequest struct {
	Items []Record `json:"items"`
}

type IngestOutcome struct {
	Status    string    `json:"status"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

type BatchOutcome struct {
	Status    string    `json:"status"`
	Count     int       `json:"count"`
	IDs       []string  `json:"ids"`
	Timestamp time.Time `json:"timestamp"`
}

// IsNull reports whether raw is absent or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// EmptyObject is the metadata value used when a record carries none.
func EmptyObject() json.RawMessage {
	return json.RawMessage(`{}`)
}
