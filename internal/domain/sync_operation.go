package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OpKind identifies which record type a sync operation carries, and
// therefore which remote table it targets. The merge resolver and the
// queue's remote dispatch both switch on this tag rather than inspecting
// payload shape.
type OpKind string

// Possible operation kinds.
const (
	OpProgress        OpKind = "progress"
	OpCard            OpKind = "card"
	OpCompletedLesson OpKind = "completed_lesson"
	OpExamResult      OpKind = "exam_result"
)

// Valid reports whether the kind is one of the known record tags.
func (k OpKind) Valid() bool {
	switch k {
	case OpProgress, OpCard, OpCompletedLesson, OpExamResult:
		return true
	default:
		return false
	}
}

// SyncOperation is one pending remote write. Operations live only in the
// queue and are deduplicated by (kind, key): a newer operation for the
// same logical record replaces the older one in place, no history kept.
type SyncOperation struct {
	ID        uuid.UUID       `json:"id"`
	Kind      OpKind          `json:"kind"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewSyncOperation creates an operation carrying the JSON serialization
// of payload.
func NewSyncOperation(kind OpKind, key string, payload any, now time.Time) (SyncOperation, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return SyncOperation{}, err
	}
	return SyncOperation{
		ID:        uuid.New(),
		Kind:      kind,
		Key:       key,
		Payload:   raw,
		CreatedAt: now,
	}, nil
}

// DedupeKey is the (kind, key) identity under which the queue
// deduplicates operations.
func (op SyncOperation) DedupeKey() string {
	return string(op.Kind) + ":" + op.Key
}

// UnmarshalPayload decodes the operation payload into v.
func (op SyncOperation) UnmarshalPayload(v any) error {
	return json.Unmarshal(op.Payload, v)
}
