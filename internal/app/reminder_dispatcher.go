package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"repguard/internal/domain/client"
	"repguard/internal/domain/contract"
	domainNotify "repguard/internal/domain/notify"
	"repguard/internal/domain/reminder"
	infraNotify "repguard/internal/infra/notify"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DispatcherConfig bounds one dispatch tick.
type DispatcherConfig struct {
	BatchSize   int
	Parallelism int
	RetryLimit  int
	StaleAfter  time.Duration
}

// ReminderDispatcher scans for due reminders, delivers them through the
// notifier and records the outcome. Claims are atomic in storage, so a
// reminder occurrence is processed at most once even with concurrent ticks;
// deliveries within a tick run concurrently up to a bounded parallelism so
// one slow notification cannot stall the batch.
type ReminderDispatcher struct {
	reminderRepo reminder.Repository
	clientRepo   client.Repository
	contractRepo contract.Repository
	notifier     domainNotify.Notifier
	log          *logrus.Logger
	cfg          DispatcherConfig
}

func NewReminderDispatcher(rr reminder.Repository, clr client.Repository, cr contract.Repository, notifier domainNotify.Notifier, log *logrus.Logger, cfg DispatcherConfig) *ReminderDispatcher {
	return &ReminderDispatcher{
		reminderRepo: rr,
		clientRepo:   clr,
		contractRepo: cr,
		notifier:     notifier,
		log:          log,
		cfg:          cfg,
	}
}

// DispatchResult summarizes one dispatch pass.
type DispatchResult struct {
	Claimed   int
	Sent      int
	Delivered int
	Failed    int
}

// ProcessDue claims and delivers every reminder due at now, including stale
// in-flight claims left by a crashed dispatcher.
func (d *ReminderDispatcher) ProcessDue(ctx context.Context, now time.Time) (DispatchResult, error) {
	claimed, err := d.reminderRepo.ClaimDue(ctx, now, now.Add(-d.cfg.StaleAfter), d.cfg.BatchSize)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("failed to claim due reminders: %w", err)
	}
	return d.deliverBatch(ctx, claimed, now), nil
}

// ProcessPending is the explicit, re-triggerable batch operation: it
// delivers everything due plus failed reminders still inside their retry
// budget. Beyond the budget a reminder stays failed and is surfaced by
// NeedsAttention, never silently dropped.
func (d *ReminderDispatcher) ProcessPending(ctx context.Context, now time.Time) (DispatchResult, error) {
	res, err := d.ProcessDue(ctx, now)
	if err != nil {
		return res, err
	}

	retryable, err := d.reminderRepo.ClaimFailed(ctx, now, d.cfg.RetryLimit, d.cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("failed to claim retryable reminders: %w", err)
	}
	retried := d.deliverBatch(ctx, retryable, now)

	res.Claimed += retried.Claimed
	res.Sent += retried.Sent
	res.Delivered += retried.Delivered
	res.Failed += retried.Failed
	return res, nil
}

// NeedsAttention returns the agent's terminally failed reminders.
func (d *ReminderDispatcher) NeedsAttention(ctx context.Context, agentID uuid.UUID) ([]*reminder.Reminder, error) {
	return d.reminderRepo.ListNeedsAttention(ctx, agentID, d.cfg.RetryLimit)
}

func (d *ReminderDispatcher) deliverBatch(ctx context.Context, batch []*reminder.Reminder, now time.Time) DispatchResult {
	res := DispatchResult{Claimed: len(batch)}
	if len(batch) == 0 {
		return res
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Parallelism)

	for _, rem := range batch {
		rem := rem
		g.Go(func() error {
			delivered, failed := d.deliver(gctx, rem, now)
			mu.Lock()
			switch {
			case failed:
				res.Failed++
			case delivered:
				res.Delivered++
				res.Sent++
			default:
				res.Sent++
			}
			mu.Unlock()
			// Delivery failures are recorded on the reminder row, not
			// returned, so one bad recipient never cancels the batch.
			return nil
		})
	}
	g.Wait()
	return res
}

// deliver attempts one claimed reminder and persists the outcome. State
// transitions are serialized per reminder id by the claim; nobody else
// touches a SENDING row.
func (d *ReminderDispatcher) deliver(ctx context.Context, rem *reminder.Reminder, now time.Time) (delivered, failed bool) {
	rem.Attempts++
	rem.LastAttemptAt = sql.NullTime{Time: now, Valid: true}
	rem.ClaimedAt = sql.NullTime{}

	confirmed, sendErr := d.attemptSend(ctx, rem)
	if sendErr != nil {
		rem.Status = reminder.StatusFailed
		rem.FailureReason = sql.NullString{String: sendErr.Error(), Valid: true}
		failed = true
		entry := d.log.WithError(sendErr).WithFields(logrus.Fields{
			"reminder_id": rem.ID,
			"attempts":    rem.Attempts,
		})
		if rem.Attempts >= d.cfg.RetryLimit {
			entry.Warn("Reminder delivery failed terminally; needs attention")
		} else {
			entry.Info("Reminder delivery failed; will retry on process-pending")
		}
	} else {
		rem.FailureReason = sql.NullString{}
		if rem.IsRecurring {
			// Rolling single row: the next occurrence replaces this one.
			rem.Advance()
		} else if confirmed {
			rem.Status = reminder.StatusDelivered
		} else {
			rem.Status = reminder.StatusSent
		}
		delivered = confirmed
	}

	if err := d.reminderRepo.Update(ctx, rem); err != nil {
		// The row stays SENDING and becomes reclaimable after the stale
		// window; at-most-once still holds for this occurrence.
		d.log.WithError(err).WithField("reminder_id", rem.ID).Error("Failed to record reminder outcome")
	}
	return delivered, failed
}

func (d *ReminderDispatcher) attemptSend(ctx context.Context, rem *reminder.Reminder) (bool, error) {
	cl, err := d.clientRepo.GetByID(ctx, rem.ClientID)
	if err != nil {
		return false, fmt.Errorf("recipient lookup failed: %w", err)
	}

	recipient, err := recipientFor(cl, rem.Method)
	if err != nil {
		return false, err
	}

	payload := map[string]string{
		"client_name": cl.Name,
		"contract_id": rem.ContractID.String(),
	}
	if c, err := d.contractRepo.GetByID(ctx, rem.ContractID); err == nil {
		payload["end_date"] = c.EndDate.Format("2006-01-02")
	}

	return d.notifier.Send(ctx, domainNotify.Notification{
		Method:     rem.Method,
		Recipient:  recipient,
		TemplateID: templateFor(rem.Type),
		Payload:    payload,
	})
}

func recipientFor(cl *client.Client, method domainNotify.Method) (string, error) {
	switch method {
	case domainNotify.MethodEmail:
		if !cl.Email.Valid || cl.Email.String == "" {
			return "", fmt.Errorf("client %s has no email address", cl.ID)
		}
		return cl.Email.String, nil
	case domainNotify.MethodSMS:
		if !cl.Phone.Valid || cl.Phone.String == "" {
			return "", fmt.Errorf("client %s has no phone number", cl.ID)
		}
		return cl.Phone.String, nil
	case domainNotify.MethodInApp:
		if cl.TelegramChatID.Valid {
			return fmt.Sprintf("%d", cl.TelegramChatID.Int64), nil
		}
		return cl.ID.String(), nil
	}
	return "", fmt.Errorf("unknown notification method %s", method)
}

func templateFor(t reminder.Type) string {
	switch t {
	case reminder.TypeWeeklyCheckin:
		return infraNotify.TemplateWeeklyCheckin
	case reminder.TypeExpirationWarning:
		return infraNotify.TemplateExpirationWarning
	case reminder.TypeRenewalDue:
		return infraNotify.TemplateRenewalDue
	}
	return string(t)
}
