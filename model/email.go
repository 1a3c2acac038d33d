package model

import "time"

type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

type EmailRecord struct {
	ID        string      `json:"_id" gorm:"primaryKey"`
	UserID    string      `json:"userId" gorm:"index"`
	Recipient string      `json:"recipient" gorm:"not null"`
	Subject   string      `json:"subject"`
	Body      string      `json:"body" gorm:"type:text"`
	Status    EmailStatus `json:"status" gorm:"index;not null;default:pending"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
