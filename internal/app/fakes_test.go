package app

import (
	"context"
	"database/sql"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"repguard/internal/domain/alert"
	"repguard/internal/domain/client"
	"repguard/internal/domain/contract"
	domainNotify "repguard/internal/domain/notify"
	"repguard/internal/domain/reminder"
	idb "repguard/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// --- contract repository fake ---

type memContractRepo struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]*contract.Contract
}

func newMemContractRepo() *memContractRepo {
	return &memContractRepo{contracts: make(map[uuid.UUID]*contract.Contract)}
}

func (r *memContractRepo) Create(_ context.Context, c *contract.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[c.ID] = c
	return nil
}

func (r *memContractRepo) GetByID(_ context.Context, id uuid.UUID) (*contract.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil, idb.ErrContractNotFound
	}
	return c, nil
}

func (r *memContractRepo) Update(_ context.Context, c *contract.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contracts[c.ID]; !ok {
		return idb.ErrContractNotFound
	}
	r.contracts[c.ID] = c
	return nil
}

func (r *memContractRepo) Supersede(_ context.Context, old *contract.Contract, successor *contract.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.contracts[old.ID]
	if !ok || stored.RawStatus != contract.RawActive {
		return idb.ErrContractNotFound
	}
	stored.RawStatus = contract.RawSuperseded
	old.RawStatus = contract.RawSuperseded
	r.contracts[successor.ID] = successor
	return nil
}

func (r *memContractRepo) list(filter func(*contract.Contract) bool) []*contract.Contract {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*contract.Contract, 0)
	for _, c := range r.contracts {
		if filter(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out
}

func (r *memContractRepo) ListActiveByAgent(_ context.Context, agentID uuid.UUID) ([]*contract.Contract, error) {
	return r.list(func(c *contract.Contract) bool {
		return c.AgentID == agentID && c.RawStatus == contract.RawActive
	}), nil
}

func (r *memContractRepo) ListActiveByClient(_ context.Context, clientID uuid.UUID) ([]*contract.Contract, error) {
	return r.list(func(c *contract.Contract) bool {
		return c.ClientID == clientID && c.RawStatus == contract.RawActive
	}), nil
}

func (r *memContractRepo) ListExpiringWithin(_ context.Context, agentID uuid.UUID, from, until time.Time) ([]*contract.Contract, error) {
	return r.list(func(c *contract.Contract) bool {
		return c.AgentID == agentID && c.RawStatus == contract.RawActive &&
			c.EndDate.After(from) && !c.EndDate.After(until)
	}), nil
}

func (r *memContractRepo) ListActive(_ context.Context) ([]*contract.Contract, error) {
	return r.list(func(c *contract.Contract) bool { return c.RawStatus == contract.RawActive }), nil
}

// --- client repository fake ---

type memClientRepo struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*client.Client
}

func newMemClientRepo() *memClientRepo {
	return &memClientRepo{clients: make(map[uuid.UUID]*client.Client)}
}

func (r *memClientRepo) Create(_ context.Context, c *client.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
	return nil
}

func (r *memClientRepo) GetByID(_ context.Context, id uuid.UUID) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, idb.ErrClientNotFound
	}
	return c, nil
}

func (r *memClientRepo) Update(_ context.Context, c *client.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ID]; !ok {
		return idb.ErrClientNotFound
	}
	r.clients[c.ID] = c
	return nil
}

func (r *memClientRepo) ListByAgent(_ context.Context, agentID uuid.UUID) ([]*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*client.Client, 0)
	for _, c := range r.clients {
		if c.AgentID == agentID {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- alert repository fake ---

type memAlertRepo struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]*alert.Alert
}

func newMemAlertRepo() *memAlertRepo {
	return &memAlertRepo{alerts: make(map[uuid.UUID]*alert.Alert)}
}

func (r *memAlertRepo) Create(_ context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.alerts {
		if existing.DedupKey == a.DedupKey && !existing.Resolved() {
			return idb.ErrDuplicateAlert
		}
	}
	r.alerts[a.ID] = a
	return nil
}

func (r *memAlertRepo) GetByID(_ context.Context, id uuid.UUID) (*alert.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok {
		return nil, idb.ErrAlertNotFound
	}
	return a, nil
}

func (r *memAlertRepo) GetUnresolvedByDedupKey(_ context.Context, key string) (*alert.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.DedupKey == key && !a.Resolved() {
			return a, nil
		}
	}
	return nil, idb.ErrAlertNotFound
}

func (r *memAlertRepo) Update(_ context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[a.ID]; !ok {
		return idb.ErrAlertNotFound
	}
	r.alerts[a.ID] = a
	return nil
}

func (r *memAlertRepo) list(filter func(*alert.Alert) bool) []*alert.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*alert.Alert, 0)
	for _, a := range r.alerts {
		if filter(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memAlertRepo) ListUnresolvedByAgent(_ context.Context, agentID uuid.UUID) ([]*alert.Alert, error) {
	return r.list(func(a *alert.Alert) bool { return a.AgentID == agentID && !a.Resolved() }), nil
}

func (r *memAlertRepo) ListByContract(_ context.Context, contractID uuid.UUID) ([]*alert.Alert, error) {
	return r.list(func(a *alert.Alert) bool {
		return a.ContractID.Valid && a.ContractID.UUID == contractID
	}), nil
}

func (r *memAlertRepo) ListByAgent(_ context.Context, agentID uuid.UUID) ([]*alert.Alert, error) {
	out := r.list(func(a *alert.Alert) bool { return a.AgentID == agentID })
	sort.SliceStable(out, func(i, j int) bool { return !out[i].IsRead && out[j].IsRead })
	return out, nil
}

func (r *memAlertRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

// --- reminder repository fake ---

type memReminderRepo struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]*reminder.Reminder
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{reminders: make(map[uuid.UUID]*reminder.Reminder)}
}

func sameDay(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.YearDay() == bu.YearDay()
}

func (r *memReminderRepo) Create(_ context.Context, rem *reminder.Reminder) error {
	if err := rem.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reminders {
		if existing.ContractID == rem.ContractID && existing.Type == rem.Type &&
			existing.Status == reminder.StatusPending && sameDay(existing.ScheduledDate, rem.ScheduledDate) {
			return idb.ErrDuplicateReminder
		}
	}
	if rem.Status == "" {
		rem.Status = reminder.StatusPending
	}
	r.reminders[rem.ID] = rem
	return nil
}

func (r *memReminderRepo) GetByID(_ context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rem, ok := r.reminders[id]
	if !ok {
		return nil, idb.ErrReminderNotFound
	}
	return rem, nil
}

func (r *memReminderRepo) Update(_ context.Context, rem *reminder.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reminders[rem.ID]; !ok {
		return idb.ErrReminderNotFound
	}
	r.reminders[rem.ID] = rem
	return nil
}

func (r *memReminderRepo) ListByContract(_ context.Context, contractID uuid.UUID) ([]*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*reminder.Reminder, 0)
	for _, rem := range r.reminders {
		if rem.ContractID == contractID {
			out = append(out, rem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (r *memReminderRepo) ExistsActiveByType(_ context.Context, contractID uuid.UUID, t reminder.Type) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rem := range r.reminders {
		if rem.ContractID == contractID && rem.Type == t && rem.Status != reminder.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r *memReminderRepo) claim(match func(*reminder.Reminder) bool, now time.Time, limit int) []*reminder.Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidates := make([]*reminder.Reminder, 0)
	for _, rem := range r.reminders {
		if match(rem) {
			candidates = append(candidates, rem)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ScheduledDate.Before(candidates[j].ScheduledDate)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for _, rem := range candidates {
		rem.Status = reminder.StatusSending
		rem.ClaimedAt = sql.NullTime{Time: now, Valid: true}
	}
	return candidates
}

func (r *memReminderRepo) ClaimDue(_ context.Context, now, staleBefore time.Time, limit int) ([]*reminder.Reminder, error) {
	return r.claim(func(rem *reminder.Reminder) bool {
		if rem.Status == reminder.StatusPending && !rem.ScheduledDate.After(now) {
			return true
		}
		return rem.Status == reminder.StatusSending && rem.ClaimedAt.Valid && rem.ClaimedAt.Time.Before(staleBefore)
	}, now, limit), nil
}

func (r *memReminderRepo) ClaimFailed(_ context.Context, now time.Time, maxAttempts, limit int) ([]*reminder.Reminder, error) {
	return r.claim(func(rem *reminder.Reminder) bool {
		return rem.Status == reminder.StatusFailed && rem.Attempts < maxAttempts
	}, now, limit), nil
}

func (r *memReminderRepo) CancelPending(_ context.Context, contractID uuid.UUID, oneTimeOnly bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cancelled int64
	for _, rem := range r.reminders {
		if rem.ContractID != contractID || rem.Status != reminder.StatusPending {
			continue
		}
		if oneTimeOnly && rem.IsRecurring {
			continue
		}
		rem.Status = reminder.StatusCancelled
		cancelled++
	}
	return cancelled, nil
}

func (r *memReminderRepo) ListNeedsAttention(_ context.Context, agentID uuid.UUID, maxAttempts int) ([]*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*reminder.Reminder, 0)
	for _, rem := range r.reminders {
		if rem.AgentID == agentID && rem.Status == reminder.StatusFailed && rem.Attempts >= maxAttempts {
			out = append(out, rem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (r *memReminderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reminders)
}

func (r *memReminderRepo) byType(contractID uuid.UUID, t reminder.Type) *reminder.Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rem := range r.reminders {
		if rem.ContractID == contractID && rem.Type == t && rem.Status != reminder.StatusCancelled {
			return rem
		}
	}
	return nil
}

// --- notifier fake ---

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []domainNotify.Notification
	confirm bool
	err     error
	ch      chan domainNotify.Notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan domainNotify.Notification, 16)}
}

func (f *fakeNotifier) Send(_ context.Context, n domainNotify.Notification) (bool, error) {
	f.mu.Lock()
	f.sent = append(f.sent, n)
	confirm, err := f.confirm, f.err
	f.mu.Unlock()
	select {
	case f.ch <- n:
	default:
	}
	if err != nil {
		return false, err
	}
	return confirm, nil
}

func (f *fakeNotifier) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeNotifier) setError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeNotifier) waitForSend(t *testing.T) domainNotify.Notification {
	t.Helper()
	select {
	case n := <-f.ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a notification")
		return domainNotify.Notification{}
	}
}
