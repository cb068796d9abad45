package models

import (
	"encoding/json"
	"time"
)

type RecordBuilder struct {
	record *Record
}

func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{
		record: &Record{
			Metadata: EmptyObject(),
		},
	}
}

func (b *RecordBuilder) WithID(id string) *RecordBuilder {
	b.record.ID = id
	return b
}

func (b *RecordBuilder) WithSource(source string) *RecordBuilder {
	b.record.Source = source
	return b
}

func (b *RecordBuilder) WithContentType(contentType string) *RecordBuilder {
	b.record.ContentType = contentType
	return b
}

func (b *RecordBuilder) WithTimestamp(timestamp time.Time) *RecordBuilder {
	b.record.Timestamp = timestamp
	return b
}

func (b *RecordBuilder) WithRawPayload(payload json.RawMessage) *RecordBuilder {
	b.record.Payload = payload
	return b
}

// WithPayload marshals v as the record payload. Values that cannot be marshaled leave the payload unset.
func (b *RecordBuilder) WithPayload(v interface{}) *RecordBuilder {
	raw, err := json.Marshal(v)
	if err != nil {
		b.record.Payload = nil
		return b
	}
	b.record.Payload = raw
	return b
}

func (b *RecordBuilder) WithMetadata(metadata json.RawMessage) *RecordBuilder {
	b.record.Metadata = metadata
	return b
}

func (b *RecordBuilder) Build() Record {
	return *b.record
}
