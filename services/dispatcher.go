package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"project-report-api/config"
	"project-report-api/models"

	"gorm.io/gorm"
)

const (
	defaultDispatchTimeout  = 15 * time.Second
	defaultDispatchInterval = 30 * time.Second
	defaultDispatchBatch    = 20
	maxDispatchAttempts     = 3
)

// Dispatcher drains the email outbox. Each row is claimed before sending so a
// message is attempted at most once per logical call, and the send outcome is
// recorded without ever touching report state.
type Dispatcher struct {
	DB       *gorm.DB
	Sender   config.MailSender
	Timeout  time.Duration
	Interval time.Duration
	Batch    int
}

func NewDispatcher(db *gorm.DB, sender config.MailSender) *Dispatcher {
	d := &Dispatcher{
		DB:       db,
		Sender:   sender,
		Timeout:  defaultDispatchTimeout,
		Interval: defaultDispatchInterval,
		Batch:    defaultDispatchBatch,
	}
	if secs, _ := strconv.Atoi(os.Getenv("DISPATCH_TIMEOUT_SECONDS")); secs > 0 {
		d.Timeout = time.Duration(secs) * time.Second
	}
	return d
}

// Run drains the outbox on a fixed interval until ctx is cancelled. Started
// from main as a background goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := d.DispatchPending(ctx); err != nil {
				log.Printf("Outbox drain error: %v", err)
			} else if n > 0 {
				log.Printf("Outbox drained: %d message(s) processed", n)
			}
		}
	}
}

// DispatchPending claims and sends queued messages, including failed ones that
// still have attempts left. Returns the number of messages processed.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	var rows []models.EmailOutbox
	err := d.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND attempts < ?)",
			models.OutboxPending, models.OutboxFailed, maxDispatchAttempts).
		Order("create_at ASC").
		Limit(d.Batch).
		Find(&rows).Error
	if err != nil {
		return 0, storageErr("load outbox", err)
	}

	processed := 0
	for i := range rows {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := d.dispatchRow(ctx, &rows[i]); err != nil {
			log.Printf("Dispatch failed for message %s: %v", rows[i].MessageID, err)
		}
		processed++
	}
	return processed, nil
}

// DispatchMessage sends one specific outbox row, used for the synchronous
// best-effort kick right after a transition commits. A row already claimed by
// another dispatcher is skipped, never re-sent.
func (d *Dispatcher) DispatchMessage(ctx context.Context, messageID string) error {
	var row models.EmailOutbox
	err := d.DB.WithContext(ctx).
		Where("message_id = ? AND status = ?", messageID, models.OutboxPending).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return storageErr("load outbox message", err)
	}
	return d.dispatchRow(ctx, &row)
}

func (d *Dispatcher) dispatchRow(ctx context.Context, row *models.EmailOutbox) error {
	// Claim the row first. Losing the claim race means another dispatcher has
	// this message; do not attempt it twice.
	claim := d.DB.WithContext(ctx).Model(&models.EmailOutbox{}).
		Where("message_id = ? AND status IN ?", row.MessageID,
			[]string{models.OutboxPending, models.OutboxFailed}).
		Updates(map[string]interface{}{
			"status":   models.OutboxFailed,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if claim.Error != nil {
		return storageErr("claim outbox message", claim.Error)
	}
	if claim.RowsAffected == 0 {
		return nil
	}

	sendErr := d.sendWithTimeout(ctx, row)
	now := time.Now()
	if sendErr != nil {
		d.DB.Model(&models.EmailOutbox{}).
			Where("message_id = ?", row.MessageID).
			Update("last_error", sendErr.Error())
		return fmt.Errorf("%w: %v", ErrDispatch, sendErr)
	}

	d.DB.Model(&models.EmailOutbox{}).
		Where("message_id = ?", row.MessageID).
		Updates(map[string]interface{}{
			"status":     models.OutboxSent,
			"sent_at":    now,
			"last_error": "",
		})
	return nil
}

// sendWithTimeout bounds the relay call. The SMTP client has no context
// support, so the send runs in its own goroutine and a timed-out result is
// discarded.
func (d *Dispatcher) sendWithTimeout(ctx context.Context, row *models.EmailOutbox) error {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.Sender.Send(row.Recipient, row.Subject, row.Body, row.Attachment, row.AttachmentName)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("mail send timed out: %v", ctx.Err())
	}
}
