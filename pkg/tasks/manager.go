package tasks

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/pipeline"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Runner executes one pipeline run
type Runner interface {
	RunWithID(ctx context.Context, runID, dir string) (*pipeline.Result, error)
}

// Manager starts runs in the background and records their status
type Manager struct {
	ctx    context.Context
	store  Store
	runner Runner
	logger ectologger.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewManager creates a manager. Runs are bound to ctx, so canceling it aborts every run in flight.
func NewManager(ctx context.Context, store Store, runner Runner, logger ectologger.Logger) *Manager {
	return &Manager{
		ctx:    ctx,
		store:  store,
		runner: runner,
		logger: logger,
		now:    time.Now,
	}
}

// Submit records a new in_progress task and runs the pipeline over dir in its own goroutine
func (m *Manager) Submit(ctx context.Context, dir string) (*Task, error) {
	ctx, span := tracing.StartSpan(ctx, "tasks.Manager.Submit")
	defer span.End()

	now := m.now().UTC()
	task := &Task{
		ID:        uuid.NewString(),
		Status:    StatusInProgress,
		Dataset:   filepath.Base(dir),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.Save(ctx, task); err != nil {
		return nil, err
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"task_id": task.ID,
		"dataset": dir,
	}).Info("Submitted pipeline run")

	m.wg.Add(1)
	go func(task Task) {
		defer m.wg.Done()
		m.run(&task, dir)
	}(*task)

	return task, nil
}

// Get returns the current status of a task
func (m *Manager) Get(ctx context.Context, id string) (*Task, error) {
	return m.store.Get(ctx, id)
}

// Wait blocks until every submitted run has finished
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) run(task *Task, dir string) {
	ctx := m.ctx
	logger := m.logger.WithContext(ctx).WithField("task_id", task.ID)

	result, err := m.runner.RunWithID(ctx, task.ID, dir)
	switch {
	case result != nil:
		task.Status = StatusDone
		task.Report = result.Report
		if err != nil {
			task.Message = err.Error()
		}
	default:
		task.Status = StatusFailed
		task.Message = err.Error()
		task.StatusCode = failureCode(err)
	}
	task.UpdatedAt = m.now().UTC()

	// the run context may already be canceled; the final status is still recorded
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.store.Save(saveCtx, task); err != nil {
		logger.WithError(err).Error("Failed to save task status")
		return
	}

	logger.WithField("status", task.Status).Info("Pipeline run finished")
}

func failureCode(err error) int {
	if errors.IsDataQualityError(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
