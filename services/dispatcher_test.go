package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"project-report-api/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	sent []string
	err  error
}

func (s *stubSender) Send(to, subject, body string, attachment []byte, attachmentName string) error {
	s.sent = append(s.sent, to)
	return s.err
}

func outboxRow(id string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"message_id", "recipient", "subject", "body", "status", "attempts",
	}).AddRow(id, "asha@example.com", "Project Report Rejected", "body",
		models.OutboxPending, 0)
}

func newTestDispatcher(t *testing.T, sender *stubSender) (*Dispatcher, sqlmock.Sqlmock) {
	t.Helper()
	gdb, mock := newMockGorm(t)
	d := NewDispatcher(gdb, sender)
	d.Timeout = time.Second
	return d, mock
}

func TestDispatchMessageSends(t *testing.T) {
	sender := &stubSender{}
	d, mock := newTestDispatcher(t, sender)

	mock.ExpectQuery("SELECT (.+) FROM `email_outbox` WHERE message_id =").
		WillReturnRows(outboxRow("m-1"))
	mock.ExpectExec("UPDATE `email_outbox` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `email_outbox` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := d.DispatchMessage(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"asha@example.com"}, sender.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchMessageRecordsFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("relay down")}
	d, mock := newTestDispatcher(t, sender)

	mock.ExpectQuery("SELECT (.+) FROM `email_outbox` WHERE message_id =").
		WillReturnRows(outboxRow("m-1"))
	mock.ExpectExec("UPDATE `email_outbox` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `email_outbox` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := d.DispatchMessage(context.Background(), "m-1")
	assert.ErrorIs(t, err, ErrDispatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchMessageSkipsAlreadyClaimed(t *testing.T) {
	sender := &stubSender{}
	d, mock := newTestDispatcher(t, sender)

	mock.ExpectQuery("SELECT (.+) FROM `email_outbox` WHERE message_id =").
		WillReturnRows(outboxRow("m-1"))
	// Another dispatcher won the claim; the message must not be sent twice.
	mock.ExpectExec("UPDATE `email_outbox` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := d.DispatchMessage(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchMessageMissingRowIsNoop(t *testing.T) {
	sender := &stubSender{}
	d, mock := newTestDispatcher(t, sender)

	mock.ExpectQuery("SELECT (.+) FROM `email_outbox` WHERE message_id =").
		WillReturnRows(sqlmock.NewRows([]string{"message_id"}))

	err := d.DispatchMessage(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendWithTimeout(t *testing.T) {
	sender := &stubSender{}
	d, _ := newTestDispatcher(t, sender)
	d.Sender = blockedSender{}
	d.Timeout = 20 * time.Millisecond

	err := d.sendWithTimeout(context.Background(), &models.EmailOutbox{Recipient: "asha@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

type blockedSender struct{}

func (blockedSender) Send(to, subject, body string, attachment []byte, attachmentName string) error {
	time.Sleep(time.Second)
	return nil
}
