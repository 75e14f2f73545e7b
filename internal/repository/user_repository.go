package repository

import (
	"context"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db}
}

// Touch creates the user or refreshes its name and last activity.
func (r *UserRepository) Touch(ctx context.Context, userID, displayName string, at time.Time) error {
	user := model.User{ID: userID, DisplayName: displayName, LastActive: at}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "last_active", "updated_at"}),
	}).Create(&user).Error
}

func (r *UserRepository) IncrementResumes(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"total_resumes": gorm.Expr("total_resumes + ?", 1),
			"last_active":   at,
		}).Error
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", userID).Error
	return &u, err
}
