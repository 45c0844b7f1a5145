package repository

import (
	"errors"
	"time"

	"onboard_proctor_backend/internal/model"
	"onboard_proctor_backend/internal/util"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// FindByKey returns the live attempt for a key, or (nil, nil) when none
// exists yet.
func (r *AttemptRepository) FindByKey(userID uint, week, day, task int) (*model.AssessmentAttempt, error) {
	var a model.AssessmentAttempt
	err := r.keyed(r.DB, userID, week, day, task).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindByID(id uint) (*model.AssessmentAttempt, error) {
	var a model.AssessmentAttempt
	if err := r.DB.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) Update(a *model.AssessmentAttempt) error {
	return r.DB.Save(a).Error
}

func (r *AttemptRepository) ListByUser(userID uint) ([]model.AssessmentAttempt, error) {
	var attempts []model.AssessmentAttempt
	err := r.DB.Where("user_id = ?", userID).
		Order("week_index, day_index, task_index").
		Find(&attempts).Error
	return attempts, err
}

// StartAttempt moves the attempt for a key into in_progress, incrementing
// attempt_count, creating the row on the first start. The guard is a single
// conditional UPDATE checked via RowsAffected, so two concurrent starts for
// the same key cannot both win or double-apply the increment.
func (r *AttemptRepository) StartAttempt(userID uint, week, day, task int, taskTitle string, maxAttempts int) (*model.AssessmentAttempt, error) {
	var attempt model.AssessmentAttempt

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		res := r.keyed(tx.Model(&model.AssessmentAttempt{}), userID, week, day, task).
			Where("status <> ? AND attempt_count < ?", model.AttemptInProgress, maxAttempts).
			Updates(map[string]interface{}{
				"status":        model.AttemptInProgress,
				"attempt_count": gorm.Expr("attempt_count + 1"),
				"started_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var existing model.AssessmentAttempt
			err := r.keyed(tx, userID, week, day, task).First(&existing).Error
			if err == nil {
				// A row exists but the guard rejected it: either it is
				// already in progress or the attempt cap is reached.
				if existing.Status == model.AttemptInProgress {
					return util.ErrAttemptInProgress
				}
				return util.ErrMaxAttemptsExceeded
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			attempt = model.AssessmentAttempt{
				UserID:       userID,
				WeekIndex:    week,
				DayIndex:     day,
				TaskIndex:    task,
				TaskTitle:    taskTitle,
				Status:       model.AttemptInProgress,
				AttemptCount: 1,
				StartedAt:    now,
			}
			if err := tx.Create(&attempt).Error; err != nil {
				// Duplicate key means a concurrent start created the row
				// between our UPDATE and INSERT; treat it as in progress.
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return util.ErrAttemptInProgress
				}
				return err
			}
			return nil
		}

		return r.keyed(tx, userID, week, day, task).First(&attempt).Error
	})
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) keyed(tx *gorm.DB, userID uint, week, day, task int) *gorm.DB {
	return tx.Where("user_id = ? AND week_index = ? AND day_index = ? AND task_index = ?",
		userID, week, day, task)
}
