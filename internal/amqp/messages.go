package amqp

import (
	"encoding/json"
	"time"

	"monexa/internal/core"
)

// Event kinds carried on the import events queue.
const (
	EventBatchCommitted = "batch.committed"
	EventBatchCancelled = "batch.cancelled"
)

// ImportEventMessage announces a durable change to import state. Consumers
// get identifiers and counts only; anyone needing row data reads the store.
type ImportEventMessage struct {
	Kind         string    `json:"kind"`
	BatchID      string    `json:"batch_id"`
	SourceID     string    `json:"source_id,omitempty"`
	HeaderCount  int       `json:"header_count,omitempty"`
	DetailCount  int       `json:"detail_count,omitempty"`
	DeletedCount int       `json:"deleted_count,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewBatchCommittedMessage(batch core.ImportBatch) *ImportEventMessage {
	return &ImportEventMessage{
		Kind:        EventBatchCommitted,
		BatchID:     batch.BatchID,
		SourceID:    batch.SourceID,
		HeaderCount: batch.ImportedHeaderCount,
		DetailCount: batch.ImportedDetailCount,
		Timestamp:   time.Now(),
	}
}

func NewBatchCancelledMessage(result core.CancelResult) *ImportEventMessage {
	return &ImportEventMessage{
		Kind:         EventBatchCancelled,
		BatchID:      result.BatchID,
		DeletedCount: result.DeletedCount,
		Timestamp:    time.Now(),
	}
}

func (m *ImportEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportEventMessageFromJSON(data []byte) (*ImportEventMessage, error) {
	var msg ImportEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
