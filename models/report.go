package models

import (
	"time"
)

// ReviewStatus is the three-way review state of a report. Exactly one value
// holds at a time; it is stored as a single column so the states cannot drift
// apart the way independent booleans can.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

// Valid reports whether s is one of the three known states.
func (s ReviewStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Report is a student's submitted project document plus its review metadata.
// StudentName and StudentEmail are snapshots taken at submission time so the
// record stays stable even if the account is later renamed or removed.
type Report struct {
	ReportID          string       `gorm:"primaryKey;column:report_id" json:"id"`
	OwnerID           int          `gorm:"column:owner_id;index" json:"ownerId"`
	StudentName       string       `gorm:"column:student_name" json:"studentName"`
	StudentEmail      string       `gorm:"column:student_email" json:"studentEmail"`
	ProjectTitle      string       `gorm:"column:project_title" json:"projectTitle"`
	FileData          []byte       `gorm:"column:file_data;type:longblob" json:"-"`
	FileType          string       `gorm:"column:file_type" json:"-"`
	OriginalFilename  string       `gorm:"column:original_filename" json:"-"`
	SubmissionDate    time.Time    `gorm:"column:submission_date;index" json:"submissionDate"`
	ReviewStatus      ReviewStatus `gorm:"column:review_status" json:"reviewStatus"`
	RejectionReason   string       `gorm:"column:rejection_reason" json:"rejectionReason"`
	CertificateIssued bool         `gorm:"column:certificate_issued" json:"certificateIssued"`
	UpdateAt          *time.Time   `gorm:"column:update_at" json:"-"`
}

func (Report) TableName() string {
	return "reports"
}
