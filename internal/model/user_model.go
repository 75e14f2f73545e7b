package model

import "time"

type User struct {
	ID           string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	DisplayName  string    `gorm:"type:varchar(255)" json:"display_name"`
	TotalResumes int       `gorm:"not null" json:"total_resumes"`
	LastActive   time.Time `json:"last_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) TableName() string {
	return "users"
}
