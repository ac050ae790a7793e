package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"libraryadmin/internal/models"
)

// ─── Saga Runner ──────────────────────────────────────────────────────────────

// sagaStep is one collaborator call in a lifecycle operation. Every step is
// terminal-abort: a failure stops the run and nothing is undone.
type sagaStep struct {
	name string
	run  func(ctx context.Context) error
}

// StepError reports the step at which a lifecycle run stopped and which
// steps had already been committed by the collaborator.
type StepError struct {
	Saga      string
	RunID     uuid.UUID
	Step      string
	Completed []string
	Err       error
}

func (e *StepError) Error() string {
	if e.Partial() {
		return fmt.Sprintf("%s: step %s failed after %s: %v", e.Saga, e.Step, strings.Join(e.Completed, ", "), e.Err)
	}
	return fmt.Sprintf("%s: step %s failed: %v", e.Saga, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Partial reports whether some steps were committed before the failure.
func (e *StepError) Partial() bool { return len(e.Completed) > 0 }

// runSaga executes steps in order on a context that ignores the caller's
// cancellation, so a started chain always runs to completion or to its first
// failure. Each outcome is written to the journal when one is configured.
func (s *libraryService) runSaga(ctx context.Context, name, subject, operator string, steps []sagaStep) (uuid.UUID, error) {
	ctx = context.WithoutCancel(ctx)

	run := &models.SagaRun{
		ID:        uuid.New(),
		Name:      name,
		Subject:   subject,
		Status:    models.SagaStatusRunning,
		Operator:  operator,
		StartedAt: s.now().UTC(),
	}
	s.journal(func() error { return s.sagaRepo.CreateRun(nil, run) })

	completed := make([]string, 0, len(steps))
	for i, step := range steps {
		err := step.run(ctx)

		rec := &models.SagaStep{
			SagaRunID: run.ID,
			Position:  i + 1,
			Name:      step.name,
			Status:    models.StepStatusDone,
			At:        s.now().UTC(),
		}
		if err != nil {
			rec.Status = models.StepStatusFailed
			rec.Error = err.Error()
		}
		s.journal(func() error { return s.sagaRepo.AppendStep(nil, rec) })

		if err != nil {
			stepErr := &StepError{Saga: name, RunID: run.ID, Step: step.name, Completed: completed, Err: err}
			status := models.SagaStatusAborted
			if stepErr.Partial() {
				status = models.SagaStatusPartial
				log.Printf("[ERROR] %s: run %s (%s) left partial at %s: %v", name, run.ID, subject, step.name, err)
			} else {
				log.Printf("[WARN] %s: run %s (%s) aborted at %s: %v", name, run.ID, subject, step.name, err)
			}
			s.journal(func() error {
				return s.sagaRepo.FinishRun(nil, run.ID, status, step.name, err.Error(), s.now().UTC())
			})
			return run.ID, stepErr
		}
		completed = append(completed, step.name)
	}

	s.journal(func() error {
		return s.sagaRepo.FinishRun(nil, run.ID, models.SagaStatusCompleted, "", "", s.now().UTC())
	})
	return run.ID, nil
}

// journal runs a journal write when a journal is configured. Journal failures
// are logged and never change the outcome of the run.
func (s *libraryService) journal(write func() error) {
	if s.sagaRepo == nil {
		return
	}
	if err := write(); err != nil {
		log.Printf("[WARN] journal: %v", err)
	}
}
