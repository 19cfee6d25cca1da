package models

import "time"

// Outbox message statuses.
const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// EmailOutbox is a durable outbound mail queue row. Rows are written in the
// same transaction as the review transition they announce, so a mail relay
// outage can never fail or roll back the transition itself.
type EmailOutbox struct {
	MessageID      string     `gorm:"primaryKey;column:message_id" json:"message_id"`
	Recipient      string     `gorm:"column:recipient" json:"recipient"`
	Subject        string     `gorm:"column:subject" json:"subject"`
	Body           string     `gorm:"column:body;type:text" json:"body"`
	Attachment     []byte     `gorm:"column:attachment;type:longblob" json:"-"`
	AttachmentName string     `gorm:"column:attachment_name" json:"attachment_name,omitempty"`
	ReportID       *string    `gorm:"column:report_id" json:"report_id,omitempty"`
	Status         string     `gorm:"column:status;index" json:"status"`
	Attempts       int        `gorm:"column:attempts" json:"attempts"`
	LastError      string     `gorm:"column:last_error" json:"last_error,omitempty"`
	CreateAt       time.Time  `gorm:"column:create_at" json:"create_at"`
	SentAt         *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
}

func (EmailOutbox) TableName() string { return "email_outbox" }
