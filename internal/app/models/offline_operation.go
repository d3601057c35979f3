package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OperationType discriminates the payload of an offline sync operation.
type OperationType string

const (
	// OperationUpdate re-pushes the full student record.
	OperationUpdate OperationType = "update"
	// OperationAdd pushes a newly created checklist assignment.
	OperationAdd OperationType = "add"
	// OperationComment pushes updated instructor comments for an assignment.
	OperationComment OperationType = "comment"
	// OperationCompletion pushes a single item completion change.
	OperationCompletion OperationType = "completion"
)

// MaxOperationRetries is the per-operation retry budget. An operation that
// exhausts it stays pending but is excluded from replay until manually reset.
const MaxOperationRetries = 5

// OfflineOperation is one entry in the durable log of sync intents recorded
// while the remote store is unreachable. The log is append-only: rows are
// only ever mutated to bump the retry count or mark completion, and rows are
// garbage-collected seven days after they complete.
type OfflineOperation struct {
	ID              uuid.UUID       `json:"id"`
	OperationType   OperationType   `json:"operationType"`
	StudentID       uuid.UUID       `json:"studentId"`
	ChecklistID     *uuid.UUID      `json:"checklistId,omitempty"`
	ItemID          *uuid.UUID      `json:"itemId,omitempty"`
	OperationData   json.RawMessage `json:"operationData,omitempty"`
	RetryCount      int             `json:"retryCount"`
	MaxRetries      int             `json:"maxRetries"`
	IsCompleted     bool            `json:"isCompleted"`
	CreatedAt       time.Time       `json:"createdAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	LastAttemptedAt *time.Time      `json:"lastAttemptedAt,omitempty"`
}

// CompletionPayload is the OperationData carried by a completion operation.
// It records the absolute target state plus the originating change time, so
// two completion operations for the same item converge last-writer-wins
// regardless of replay order.
type CompletionPayload struct {
	TemplateItemID uuid.UUID `json:"templateItemId"`
	IsComplete     bool      `json:"isComplete"`
	Notes          string    `json:"notes,omitempty"`
	ChangedAt      time.Time `json:"changedAt"`
}

// CommentPayload is the OperationData carried by a comment operation.
type CommentPayload struct {
	Comments string `json:"comments"`
}

// CanRetry reports whether the operation is still inside its retry budget.
func (op *OfflineOperation) CanRetry() bool {
	return !op.IsCompleted && op.RetryCount < op.MaxRetries
}

// IsDeadLettered reports whether the operation exhausted its retries without
// completing.
func (op *OfflineOperation) IsDeadLettered() bool {
	return !op.IsCompleted && op.RetryCount >= op.MaxRetries
}
