// Package tasks tracks asynchronous pipeline runs started through the HTTP API.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/Ramsey-B/thistle/pkg/models"
)

const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

var ErrTaskNotFound = errors.New("task not found")

// Task is the status of one run
type Task struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	Dataset    string         `json:"dataset"`
	Report     *models.Report `json:"report,omitempty"`
	Message    string         `json:"message,omitempty"`
	StatusCode int            `json:"status_code,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Finished reports whether the run reached a terminal status
func (t *Task) Finished() bool {
	return t.Status == StatusDone || t.Status == StatusFailed
}

// Store persists task statuses
type Store interface {
	Save(ctx context.Context, task *Task) error
	Get(ctx context.Context, id string) (*Task, error)
}
