package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"project-report-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ReportStore used to exercise the lifecycle without
// a database. UpdateLocked serializes through one mutex, which satisfies the
// per-report locking contract for tests.
type memStore struct {
	mu      sync.Mutex
	reports map[string]*models.Report
	outbox  []models.EmailOutbox
}

func newMemStore() *memStore {
	return &memStore{reports: make(map[string]*models.Report)}
}

func (s *memStore) Create(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *report
	s.reports[report.ReportID] = &cp
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) ListByOwner(ctx context.Context, ownerID int) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Report
	for _, r := range s.reports {
		if r.OwnerID == ownerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memStore) ListAll(ctx context.Context) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Report
	for _, r := range s.reports {
		out = append(out, *r)
	}
	return out, nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *memStore) UpdateLocked(ctx context.Context, id string, fn func(r *models.Report) ([]models.EmailOutbox, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	cp := *r
	msgs, err := fn(&cp)
	if err != nil {
		return err
	}
	s.reports[id] = &cp
	s.outbox = append(s.outbox, msgs...)
	return nil
}

type stubDispatcher struct {
	kicked []string
	err    error
}

func (d *stubDispatcher) DispatchMessage(ctx context.Context, messageID string) error {
	d.kicked = append(d.kicked, messageID)
	return d.err
}

var (
	student  = Identity{UserID: 7, Name: "Asha Patil", Email: "asha@example.com", Role: models.RoleStudent}
	otherKid = Identity{UserID: 8, Name: "Ravi Jadhav", Email: "ravi@example.com", Role: models.RoleStudent}
	reviewer = Identity{UserID: 2, Name: "Prof. Kulkarni", Email: "prof@example.com", Role: models.RoleTeacher}
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*ReportService, *memStore, *stubDispatcher) {
	t.Helper()
	store := newMemStore()
	dispatcher := &stubDispatcher{}
	renderer := NewCertificateRenderer()
	renderer.Now = fixedClock
	return NewReportService(store, renderer, dispatcher), store, dispatcher
}

func submitTestReport(t *testing.T, svc *ReportService, title string) *models.Report {
	t.Helper()
	report, err := svc.Submit(context.Background(), student, title, []byte("%PDF-1.4 test"), "application/pdf", "report.pdf")
	require.NoError(t, err)
	return report
}

func TestSubmitValidation(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, student, "  ", []byte("%PDF-1.4"), "application/pdf", "report.pdf")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Submit(ctx, student, "Library System", nil, "application/pdf", "report.pdf")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, store.reports)
}

func TestSubmitCreatesPendingSnapshot(t *testing.T) {
	svc, _, _ := newTestService(t)

	report := submitTestReport(t, svc, "Library System")

	assert.NotEmpty(t, report.ReportID)
	assert.Equal(t, models.StatusPending, report.ReviewStatus)
	assert.Equal(t, student.UserID, report.OwnerID)
	assert.Equal(t, "Asha Patil", report.StudentName)
	assert.Equal(t, "asha@example.com", report.StudentEmail)
	assert.Empty(t, report.RejectionReason)
	assert.False(t, report.CertificateIssued)
}

func TestApproveLifecycle(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	report := submitTestReport(t, svc, "Library System")

	require.NoError(t, svc.Approve(ctx, report.ReportID, reviewer))

	got, err := store.GetByID(ctx, report.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.ReviewStatus)
	assert.Empty(t, got.RejectionReason)

	// Idempotent: approving again yields the same final state.
	require.NoError(t, svc.Approve(ctx, report.ReportID, reviewer))
	again, err := store.GetByID(ctx, report.ReportID)
	require.NoError(t, err)
	assert.Equal(t, got.ReviewStatus, again.ReviewStatus)
	assert.Equal(t, got.RejectionReason, again.RejectionReason)
}

func TestApproveUnknownReport(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Approve(context.Background(), "missing-id", reviewer)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectRecordsReasonAndQueuesNotice(t *testing.T) {
	svc, store, dispatcher := newTestService(t)
	ctx := context.Background()
	report := submitTestReport(t, svc, "Library System")

	dispatch, err := svc.Reject(ctx, report.ReportID, reviewer, "Incomplete analysis")
	require.NoError(t, err)
	assert.Equal(t, DispatchSent, dispatch)

	got, err := store.GetByID(ctx, report.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.ReviewStatus)
	assert.Equal(t, "Incomplete analysis", got.RejectionReason)

	require.Len(t, store.outbox, 1)
	msg := store.outbox[0]
	assert.Equal(t, "asha@example.com", msg.Recipient)
	assert.Contains(t, msg.Body, "Incomplete analysis")
	assert.Contains(t, msg.Body, "Library System")
	assert.Empty(t, msg.Attachment)
	assert.Equal(t, []string{msg.MessageID}, dispatcher.kicked)
}

func TestRejectDefaultsReason(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	report := submitTestReport(t, svc, "Library System")

	_, err := svc.Reject(ctx, report.ReportID, reviewer, "   ")
	require.NoError(t, err)

	got, err := store.GetByID(ctx, report.ReportID)
	require.NoError(t, err)
	assert.Equal(t, DefaultRejectionReason, got.RejectionReason)
}

func TestReapprovalClearsRejectionReason(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	report := submitTestReport(t, svc, "Library System")

	_, err := svc.Reject(ctx, report.ReportID, reviewer, "Incomplete analysis")
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, report.ReportID, reviewer))

	got, err := store.GetByID(ctx, report.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.ReviewStatus)
	assert.Empty(t, got.RejectionReason)
}

func TestStatusReasonInvariant(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	report := submitTestReport(t, svc, "Library System")

	steps := []func() error{
		func() error { return svc.Approve(ctx, report.ReportID, reviewer) },
		func() error { _, err := svc.Reject(ctx, report.ReportID, reviewer, "weak"); return err },
		func() error { return svc.Approve(ctx, report.ReportID, reviewer) },
	}
	for _, step := range steps {
		require.NoError(t, step())
		got, err := store.GetByID(ctx, report.ReportID)
		require.NoError(t, err)
		require.True(t, got.ReviewStatus.Valid())
		if got.ReviewStatus == models.StatusRejected {
			assert.NotEmpty(t, got.RejectionReason)
		} else {
			assert.Empty(t, got.RejectionReason)
		}
	}
}

func TestIssueCertificateGate(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	report := submitTestReport(t, svc, "Library System")

	// Pending report fails the gate
	pdf, _, err := svc.IssueCertificate(ctx, report.ReportID, reviewer)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Nil(t, pdf)

	// Rejected report fails too
	_, err = svc.Reject(ctx, report.ReportID, reviewer, "weak")
	require.NoError(t, err)
	pdf, _, err = svc.IssueCertificate(ctx, report.ReportID, reviewer)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Nil(t, pdf)

	// No document bytes, no flag, no queued mail
	got, err := store.GetByID(ctx, report.ReportID)
	require.NoError(t, err)
	assert.False(t, got.CertificateIssued)
	for _, msg := range store.outbox {
		assert.Empty(t, msg.Attachment)
	}
}

func TestIssueCertificateForApprovedReport(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	report := submitTestReport(t, svc, "Library System")
	require.NoError(t, svc.Approve(ctx, report.ReportID, reviewer))

	pdf, dispatch, err := svc.IssueCertificate(ctx, report.ReportID, reviewer)
	require.NoError(t, err)
	assert.Equal(t, DispatchSent, dispatch)
	require.NotEmpty(t, pdf)
	assert.True(t, bytes.Contains(pdf, []byte("Asha Patil")))
	assert.True(t, bytes.Contains(pdf, []byte("Library System")))

	got, err := store.GetByID(ctx, report.ReportID)
	require.NoError(t, err)
	assert.True(t, got.CertificateIssued)

	require.Len(t, store.outbox, 1)
	msg := store.outbox[0]
	assert.Equal(t, "asha@example.com", msg.Recipient)
	assert.Equal(t, CertificateFilename, msg.AttachmentName)
	assert.Equal(t, pdf, msg.Attachment)
}

func TestRejectAfterCertificateKeepsIssuedFlag(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	report := submitTestReport(t, svc, "Library System")
	require.NoError(t, svc.Approve(ctx, report.ReportID, reviewer))

	_, _, err := svc.IssueCertificate(ctx, report.ReportID, reviewer)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, report.ReportID, reviewer, "plagiarism found")
	require.NoError(t, err)

	got, err := store.GetByID(ctx, report.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.ReviewStatus)
	// The already-issued certificate is not retroactively revoked; further
	// issuance fails the approval gate instead.
	assert.True(t, got.CertificateIssued)

	_, _, err = svc.IssueCertificate(ctx, report.ReportID, reviewer)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestDispatchFailureDoesNotFailTransition(t *testing.T) {
	svc, store, dispatcher := newTestService(t)
	dispatcher.err = errors.New("relay down")
	ctx := context.Background()
	report := submitTestReport(t, svc, "Library System")

	dispatch, err := svc.Reject(ctx, report.ReportID, reviewer, "Incomplete analysis")
	require.NoError(t, err)
	assert.Equal(t, DispatchQueued, dispatch)

	// Transition is durable regardless of the failed send.
	got, err := store.GetByID(ctx, report.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.ReviewStatus)
	require.Len(t, store.outbox, 1)
}

func TestDeletePolicy(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	report := submitTestReport(t, svc, "Library System")

	// A different student may not delete it and the report is unchanged.
	err := svc.Delete(ctx, report.ReportID, otherKid)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = store.GetByID(ctx, report.ReportID)
	require.NoError(t, err)

	// The owner may.
	require.NoError(t, svc.Delete(ctx, report.ReportID, student))
	_, err = store.GetByID(ctx, report.ReportID)
	assert.ErrorIs(t, err, ErrNotFound)

	// A reviewer may delete any report.
	second := submitTestReport(t, svc, "Second Project")
	require.NoError(t, svc.Delete(ctx, second.ReportID, reviewer))
}

func TestGetDocumentAccess(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	report := submitTestReport(t, svc, "Library System")

	got, err := svc.GetDocument(ctx, report.ReportID, student)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.OriginalFilename)

	_, err = svc.GetDocument(ctx, report.ReportID, reviewer)
	require.NoError(t, err)

	_, err = svc.GetDocument(ctx, report.ReportID, otherKid)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetDocument(ctx, "missing-id", student)
	assert.ErrorIs(t, err, ErrNotFound)
}
