package app

import (
	"time"

	"github.com/google/uuid"
)

// Operation tracks one CLI command against the log store. Its ID tags every
// log line written while the command runs.
type Operation struct {
	ID        string
	Name      string
	ExecID    string
	Status    string // "success" or "error"
	StartedAt time.Time
}

// NewOperation creates an operation with a fresh random ID.
func NewOperation(name string) *Operation {
	return &Operation{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    "success",
		StartedAt: time.Now(),
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}
