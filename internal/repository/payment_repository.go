package repository

import (
	"context"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/model"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) FindByPaymentID(ctx context.Context, paymentID string) (*model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).First(&p, "payment_id = ?", paymentID).Error
	return &p, err
}

// MarkVerified only moves pending or failed rows, so a late webhook cannot
// undo a refund.
func (r *PaymentRepository) MarkVerified(ctx context.Context, paymentID, utr string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("payment_id = ? AND status IN ?", paymentID, []string{model.PaymentPending, model.PaymentFailed}).
		Updates(map[string]any{
			"status":      model.PaymentVerified,
			"utr":         utr,
			"verified_at": at,
		}).Error
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, paymentID, utr string) error {
	return r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("payment_id = ? AND status = ?", paymentID, model.PaymentPending).
		Updates(map[string]any{
			"status": model.PaymentFailed,
			"utr":    utr,
		}).Error
}

func (r *PaymentRepository) MarkRefunded(ctx context.Context, paymentID, refundID string) error {
	return r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("payment_id = ?", paymentID).
		Updates(map[string]any{
			"status":    model.PaymentRefunded,
			"refund_id": refundID,
		}).Error
}

func (r *PaymentRepository) List(ctx context.Context, status string, page, pageSize int) ([]model.Payment, int64, error) {
	byStatus := func(db *gorm.DB) *gorm.DB {
		if status == "" {
			return db
		}
		return db.Where("status = ?", status)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Payment{}).Scopes(byStatus).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []model.Payment
	err := r.db.WithContext(ctx).Scopes(byStatus).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments).Error
	return payments, total, err
}
