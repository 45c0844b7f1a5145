package repository

import (
	"time"

	"onboard_proctor_backend/internal/model"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(s *model.ProctorSession) error {
	return r.DB.Create(s).Error
}

func (r *SessionRepository) FindByID(id string) (*model.ProctorSession, error) {
	var s model.ProctorSession
	if err := r.DB.Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Update(s *model.ProctorSession) error {
	return r.DB.Save(s).Error
}

// AddViolation appends one row to the session's violation log. Appends only,
// no dedup and no cap.
func (r *SessionRepository) AddViolation(v *model.SessionViolation) error {
	return r.DB.Create(v).Error
}

func (r *SessionRepository) CountViolations(sessionID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.SessionViolation{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

func (r *SessionRepository) ListViolations(sessionID string) ([]model.SessionViolation, error) {
	var violations []model.SessionViolation
	err := r.DB.Where("session_id = ?", sessionID).
		Order("id").
		Find(&violations).Error
	return violations, err
}

// ListStaleActive returns sessions still marked active that started before
// the cutoff. Used by the optional reaper sweep.
func (r *SessionRepository) ListStaleActive(cutoff time.Time) ([]model.ProctorSession, error) {
	var sessions []model.ProctorSession
	err := r.DB.Where("status = ? AND start_time < ?", model.SessionActive, cutoff).
		Find(&sessions).Error
	return sessions, err
}
