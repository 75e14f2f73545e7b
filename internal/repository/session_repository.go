package repository

import (
	"context"

	"github.com/fadilmartias/ats-resume-bot/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db}
}

func (r *SessionRepository) Save(ctx context.Context, s *model.ResumeSession) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(s).Error
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.ResumeSession, error) {
	var sessions []model.ResumeSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}
