package services

import (
	"context"
	"errors"
	"time"

	"project-report-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// listColumns excludes the binary payload from listing queries.
var listColumns = []string{
	"report_id", "owner_id", "student_name", "student_email", "project_title",
	"submission_date", "review_status", "rejection_reason", "certificate_issued",
}

// ReportStore is the persistence contract for reports. UpdateLocked serializes
// writers per report identifier: fn runs against the row held under a write
// lock, and the mutated report plus any queued outbox messages commit in one
// transaction.
type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	ListByOwner(ctx context.Context, ownerID int) ([]models.Report, error)
	ListAll(ctx context.Context) ([]models.Report, error)
	Delete(ctx context.Context, id string) error
	UpdateLocked(ctx context.Context, id string, fn func(r *models.Report) ([]models.EmailOutbox, error)) error
}

// GormReportStore implements ReportStore on a gorm MySQL handle.
type GormReportStore struct {
	DB *gorm.DB
}

func NewGormReportStore(db *gorm.DB) *GormReportStore {
	return &GormReportStore{DB: db}
}

func (s *GormReportStore) Create(ctx context.Context, report *models.Report) error {
	if err := s.DB.WithContext(ctx).Create(report).Error; err != nil {
		return storageErr("create report", err)
	}
	return nil
}

func (s *GormReportStore) GetByID(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := s.DB.WithContext(ctx).Where("report_id = ?", id).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("load report", err)
	}
	return &report, nil
}

func (s *GormReportStore) ListByOwner(ctx context.Context, ownerID int) ([]models.Report, error) {
	var reports []models.Report
	err := s.DB.WithContext(ctx).Select(listColumns).
		Where("owner_id = ?", ownerID).
		Order("submission_date DESC").
		Find(&reports).Error
	if err != nil {
		return nil, storageErr("list reports by owner", err)
	}
	return reports, nil
}

func (s *GormReportStore) ListAll(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	err := s.DB.WithContext(ctx).Select(listColumns).
		Order("submission_date DESC").
		Find(&reports).Error
	if err != nil {
		return nil, storageErr("list reports", err)
	}
	return reports, nil
}

func (s *GormReportStore) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("report_id = ?", id).Delete(&models.Report{})
	if res.Error != nil {
		return storageErr("delete report", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormReportStore) UpdateLocked(ctx context.Context, id string, fn func(r *models.Report) ([]models.EmailOutbox, error)) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report models.Report
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("report_id = ?", id).
			First(&report).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return storageErr("lock report", err)
		}

		outbox, err := fn(&report)
		if err != nil {
			return err
		}

		now := time.Now()
		report.UpdateAt = &now
		if err := tx.Save(&report).Error; err != nil {
			return storageErr("save report", err)
		}
		for i := range outbox {
			if err := tx.Create(&outbox[i]).Error; err != nil {
				return storageErr("enqueue notification", err)
			}
		}
		return nil
	})
}
