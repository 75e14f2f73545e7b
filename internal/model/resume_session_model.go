package model

import (
	"time"

	"github.com/google/uuid"
)

// ResumeSession is the audit trail of one pass through the bot.
type ResumeSession struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string     `gorm:"type:varchar(64);index" json:"user_id"`
	Step           string     `gorm:"type:varchar(50)" json:"step"`
	ResumeFormat   string     `gorm:"type:varchar(10)" json:"resume_format"`
	ResumeChars    int        `json:"resume_chars"`
	OriginalScore  float64    `gorm:"type:float" json:"original_score"`
	OptimizedScore float64    `gorm:"type:float" json:"optimized_score"`
	UsedFallback   bool       `json:"used_fallback"`
	PaymentID      string     `gorm:"type:varchar(100);index" json:"payment_id"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (s *ResumeSession) TableName() string {
	return "resume_sessions"
}
