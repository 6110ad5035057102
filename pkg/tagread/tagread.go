// Package tagread defines the wire format for RFID tag-read reports.
// The same JSON shape is accepted on the HTTP ingest endpoint and on the
// RabbitMQ ingest queue.
package tagread

import (
	"encoding/json"
	"time"
)

// TagRead is a single RFID tag observation reported by a reader device.
type TagRead struct {
	// TagID is the opaque identifier of the observed tag.
	TagID string
	// Status is the read outcome reported by the device (e.g. "detected").
	Status string
	// Timestamp is the device-side observation time. Zero when the device
	// did not supply one; the server assigns ingestion time in that case.
	Timestamp time.Time
}

// wireTagRead mirrors the JSON payload. Older reader firmware sends the tag
// identifier as "rfid_tag" instead of "tagId"; both are accepted.
type wireTagRead struct {
	TagID     string     `json:"tagId,omitempty"`
	RFIDTag   string     `json:"rfid_tag,omitempty"`
	Status    string     `json:"status"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// UnmarshalJSON decodes a tag read, preferring "tagId" over the legacy
// "rfid_tag" key when both are present.
func (t *TagRead) UnmarshalJSON(data []byte) error {
	var w wireTagRead
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	t.TagID = w.TagID
	if t.TagID == "" {
		t.TagID = w.RFIDTag
	}
	t.Status = w.Status
	if w.Timestamp != nil {
		t.Timestamp = *w.Timestamp
	} else {
		t.Timestamp = time.Time{}
	}
	return nil
}

// MarshalJSON encodes a tag read using the canonical "tagId" key.
func (t TagRead) MarshalJSON() ([]byte, error) {
	w := wireTagRead{
		TagID:  t.TagID,
		Status: t.Status,
	}
	if !t.Timestamp.IsZero() {
		ts := t.Timestamp
		w.Timestamp = &ts
	}
	return json.Marshal(w)
}
