package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryadmin/internal/models"
	"libraryadmin/internal/session"
)

// ─── Saga Journal ─────────────────────────────────────────────────────────────

const (
	DefaultSagaLimit = 50
	MaxSagaLimit     = 200
)

// ListSagas lists journal runs newest first. limit is clamped to
// 1..MaxSagaLimit; a non-positive limit means DefaultSagaLimit.
func (s *libraryService) ListSagas(_ context.Context, status models.SagaStatus, limit int) ([]models.SagaRun, error) {
	if s.sagaRepo == nil {
		return nil, ErrJournalDisabled
	}
	switch {
	case limit <= 0:
		limit = DefaultSagaLimit
	case limit > MaxSagaLimit:
		limit = MaxSagaLimit
	}
	return s.sagaRepo.ListRuns(nil, status, limit)
}

// ResolveSaga records that an operator has reconciled a partial run by hand.
func (s *libraryService) ResolveSaga(_ context.Context, sess *session.Session, id uuid.UUID) (*models.SagaRun, error) {
	if s.sagaRepo == nil {
		return nil, ErrJournalDisabled
	}
	if sess == nil {
		return nil, ErrNoSession
	}

	if err := s.sagaRepo.MarkResolved(nil, id, sess.Operator()); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if _, getErr := s.sagaRepo.GetByID(nil, id); getErr != nil {
			if errors.Is(getErr, gorm.ErrRecordNotFound) {
				return nil, ErrSagaRunNotFound
			}
			return nil, getErr
		}
		return nil, ErrSagaNotPartial
	}

	run, err := s.sagaRepo.GetByID(nil, id)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] ResolveSaga: run %s (%s %s) resolved by %s", run.ID, run.Name, run.Subject, sess.Operator())
	return run, nil
}
