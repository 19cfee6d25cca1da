package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"project-report-api/models"

	"github.com/google/uuid"
)

// DefaultRejectionReason is recorded when a reviewer rejects without giving one.
const DefaultRejectionReason = "No reason provided"

// Identity is the verified caller identity consumed from the auth middleware.
// The service trusts it verbatim; token verification happens upstream.
type Identity struct {
	UserID int
	Name   string
	Email  string
	Role   string
}

// IsReviewer reports whether the identity may act on other students' reports.
func (id Identity) IsReviewer() bool {
	return id.Role == models.RoleTeacher || id.Role == models.RoleAdmin
}

// MessageDispatcher is the synchronous best-effort send hook used right after
// a transition commits. The background dispatcher remains the durable path.
type MessageDispatcher interface {
	DispatchMessage(ctx context.Context, messageID string) error
}

// Dispatch outcome strings reported to HTTP callers. A transition is durable
// either way; "queued" means the background dispatcher will deliver the mail.
const (
	DispatchSent   = "sent"
	DispatchQueued = "queued"
)

// ReportService owns the report review state machine. It is the sole writer of
// review status fields; every mutation goes through the store's per-report
// lock so concurrent reviewer decisions cannot lose updates.
type ReportService struct {
	Store      ReportStore
	Renderer   *CertificateRenderer
	Dispatcher MessageDispatcher
}

func NewReportService(store ReportStore, renderer *CertificateRenderer, dispatcher MessageDispatcher) *ReportService {
	return &ReportService{Store: store, Renderer: renderer, Dispatcher: dispatcher}
}

// Submit creates a new report in Pending state. The actor's name and email are
// snapshotted onto the record for audit stability.
func (s *ReportService) Submit(ctx context.Context, actor Identity, title string, data []byte, mediaType, filename string) (*models.Report, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationErr("project title is required")
	}
	if len(data) == 0 {
		return nil, validationErr("report document is required")
	}

	report := &models.Report{
		ReportID:         uuid.NewString(),
		OwnerID:          actor.UserID,
		StudentName:      actor.Name,
		StudentEmail:     actor.Email,
		ProjectTitle:     title,
		FileData:         data,
		FileType:         mediaType,
		OriginalFilename: filename,
		SubmissionDate:   time.Now(),
		ReviewStatus:     models.StatusPending,
	}
	if err := s.Store.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Get returns one report including its document payload.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	return s.Store.GetByID(ctx, id)
}

// GetDocument returns a report for payload download. Only the owner or a
// reviewer may fetch the binary.
func (s *ReportService) GetDocument(ctx context.Context, id string, actor Identity) (*models.Report, error) {
	report, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.OwnerID != actor.UserID && !actor.IsReviewer() {
		return nil, fmt.Errorf("%w: not the report owner", ErrForbidden)
	}
	if len(report.FileData) == 0 {
		return nil, fmt.Errorf("%w: document payload missing", ErrNotFound)
	}
	return report, nil
}

// ListByOwner returns the caller's reports, most recent submission first.
func (s *ReportService) ListByOwner(ctx context.Context, ownerID int) ([]models.Report, error) {
	return s.Store.ListByOwner(ctx, ownerID)
}

// ListAll returns every report, most recent submission first.
func (s *ReportService) ListAll(ctx context.Context) ([]models.Report, error) {
	return s.Store.ListAll(ctx)
}

// Approve transitions a report to Approved. Approving an approved report is a
// no-op success; approving a rejected report is the explicit re-approval edge
// and clears the rejection reason.
func (s *ReportService) Approve(ctx context.Context, id string, actor Identity) error {
	return s.Store.UpdateLocked(ctx, id, func(r *models.Report) ([]models.EmailOutbox, error) {
		switch r.ReviewStatus {
		case models.StatusApproved:
			// idempotent
			return nil, nil
		case models.StatusRejected:
			log.Printf("Report %s re-approved after rejection by user %d; clearing reason", r.ReportID, actor.UserID)
			r.ReviewStatus = models.StatusApproved
			r.RejectionReason = ""
		default:
			r.ReviewStatus = models.StatusApproved
			r.RejectionReason = ""
		}
		return nil, nil
	})
}

// Reject transitions a report to Rejected and queues the rejection notice to
// the student in the same transaction. The returned dispatch outcome never
// affects the transition, which is durable before any send is attempted. An
// already-issued certificate flag is left alone; the approval gate makes
// further issuance fail regardless.
func (s *ReportService) Reject(ctx context.Context, id string, actor Identity, reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	var messageID string
	err := s.Store.UpdateLocked(ctx, id, func(r *models.Report) ([]models.EmailOutbox, error) {
		if r.StudentEmail == "" {
			return nil, fmt.Errorf("%w: student email missing", ErrNotFound)
		}
		r.ReviewStatus = models.StatusRejected
		r.RejectionReason = reason

		msg := rejectionMessage(r, reason)
		messageID = msg.MessageID
		return []models.EmailOutbox{msg}, nil
	})
	if err != nil {
		return "", err
	}
	return s.kickDispatch(ctx, messageID), nil
}

// IssueCertificate renders the completion certificate for an approved report,
// marks it issued, queues the certificate mail with the rendered bytes
// attached, and returns those bytes. The caller always receives the document
// when rendering succeeds, whatever the dispatch outcome.
func (s *ReportService) IssueCertificate(ctx context.Context, id string, actor Identity) ([]byte, string, error) {
	var (
		pdfBytes  []byte
		messageID string
	)
	err := s.Store.UpdateLocked(ctx, id, func(r *models.Report) ([]models.EmailOutbox, error) {
		if r.ReviewStatus != models.StatusApproved {
			return nil, fmt.Errorf("%w: report is not approved", ErrPrecondition)
		}
		if r.StudentEmail == "" {
			return nil, fmt.Errorf("%w: student email missing", ErrPrecondition)
		}

		rendered, err := s.Renderer.Render(r)
		if err != nil {
			return nil, err
		}
		pdfBytes = rendered
		r.CertificateIssued = true

		msg := certificateMessage(r, rendered)
		messageID = msg.MessageID
		return []models.EmailOutbox{msg}, nil
	})
	if err != nil {
		return nil, "", err
	}
	return pdfBytes, s.kickDispatch(ctx, messageID), nil
}

// Delete removes a report and its payload. Allowed for the owner and for
// reviewer roles; anyone else gets ErrForbidden and the report is untouched.
func (s *ReportService) Delete(ctx context.Context, id string, actor Identity) error {
	report, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if report.OwnerID != actor.UserID && !actor.IsReviewer() {
		return fmt.Errorf("%w: not allowed to delete this report", ErrForbidden)
	}
	return s.Store.Delete(ctx, id)
}

// kickDispatch makes one best-effort synchronous send of the just-queued
// message. Failure degrades to "queued": the background dispatcher retries,
// and the committed transition is never revisited.
func (s *ReportService) kickDispatch(ctx context.Context, messageID string) string {
	if s.Dispatcher == nil || messageID == "" {
		return DispatchQueued
	}
	if err := s.Dispatcher.DispatchMessage(ctx, messageID); err != nil {
		log.Printf("Immediate dispatch of message %s failed, left for retry: %v", messageID, err)
		return DispatchQueued
	}
	return DispatchSent
}

func rejectionMessage(r *models.Report, reason string) models.EmailOutbox {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour project report titled %q has been rejected.\n\nReason: %s\n\nPlease review and resubmit.\n\nBest regards,\nProject Review Committee",
		r.StudentName, r.ProjectTitle, reason,
	)
	id := r.ReportID
	return models.EmailOutbox{
		MessageID: uuid.NewString(),
		Recipient: r.StudentEmail,
		Subject:   "Project Report Rejected",
		Body:      body,
		ReportID:  &id,
		Status:    models.OutboxPending,
		CreateAt:  time.Now(),
	}
}

func certificateMessage(r *models.Report, pdf []byte) models.EmailOutbox {
	body := fmt.Sprintf(
		"Dear %s,\n\nPlease find your official project completion certificate attached.\n\nBest regards,\nProject Review Committee",
		r.StudentName,
	)
	id := r.ReportID
	return models.EmailOutbox{
		MessageID:      uuid.NewString(),
		Recipient:      r.StudentEmail,
		Subject:        "Project Completion Certificate",
		Body:           body,
		Attachment:     pdf,
		AttachmentName: CertificateFilename,
		ReportID:       &id,
		Status:         models.OutboxPending,
		CreateAt:       time.Now(),
	}
}
