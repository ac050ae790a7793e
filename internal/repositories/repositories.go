package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"libraryadmin/internal/models"
)

// SagaRepository is the journal of lifecycle runs. Every method takes an
// optional transaction; nil means the repository's own connection.
type SagaRepository interface {
	CreateRun(db *gorm.DB, run *models.SagaRun) error
	AppendStep(db *gorm.DB, step *models.SagaStep) error
	FinishRun(db *gorm.DB, id uuid.UUID, status models.SagaStatus, failedStep, errMsg string, finishedAt time.Time) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.SagaRun, error)
	ListRuns(db *gorm.DB, status models.SagaStatus, limit int) ([]models.SagaRun, error)
	MarkResolved(db *gorm.DB, id uuid.UUID, resolvedBy string) error
}

type sagaRepository struct {
	db *gorm.DB
}

func NewSagaRepository(db *gorm.DB) SagaRepository {
	return &sagaRepository{db: db}
}

func (r *sagaRepository) CreateRun(db *gorm.DB, run *models.SagaRun) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Create(run).Error
}

func (r *sagaRepository) AppendStep(db *gorm.DB, step *models.SagaStep) error {
	if db == nil {
		db = r.db
	}
	return db.Create(step).Error
}

func (r *sagaRepository) FinishRun(db *gorm.DB, id uuid.UUID, status models.SagaStatus, failedStep, errMsg string, finishedAt time.Time) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.SagaRun{}).
		Where("id = ? AND status = ?", id, models.SagaStatusRunning).
		Updates(map[string]interface{}{
			"status":      status,
			"failed_step": failedStep,
			"error":       errMsg,
			"finished_at": finishedAt,
		}).Error
}

func (r *sagaRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.SagaRun, error) {
	if db == nil {
		db = r.db
	}
	var run models.SagaRun
	err := db.
		Preload("Steps", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the newest runs first. An empty status lists every run.
func (r *sagaRepository) ListRuns(db *gorm.DB, status models.SagaStatus, limit int) ([]models.SagaRun, error) {
	if db == nil {
		db = r.db
	}
	q := db.Preload("Steps", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Order("started_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []models.SagaRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// MarkResolved closes a PARTIAL run after an operator reconciled it by hand.
// It returns gorm.ErrRecordNotFound when no PARTIAL run has that id.
func (r *sagaRepository) MarkResolved(db *gorm.DB, id uuid.UUID, resolvedBy string) error {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.SagaRun{}).
		Where("id = ? AND status = ?", id, models.SagaStatusPartial).
		Updates(map[string]interface{}{
			"status":      models.SagaStatusResolved,
			"resolved_by": resolvedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
