package reminder

import (
	"database/sql"
	"errors"
	"testing"
	"time"
)

func TestValidateRecurrence(t *testing.T) {
	tests := []struct {
		name    string
		r       Reminder
		wantErr bool
	}{
		{
			name: "valid weekly recurrence",
			r: Reminder{
				Type:                  TypeWeeklyCheckin,
				IsRecurring:           true,
				RecurringIntervalDays: sql.NullInt32{Int32: 7, Valid: true},
			},
		},
		{
			name: "recurring renewal due is unrepresentable",
			r: Reminder{
				Type:                  TypeRenewalDue,
				IsRecurring:           true,
				RecurringIntervalDays: sql.NullInt32{Int32: 7, Valid: true},
			},
			wantErr: true,
		},
		{
			name: "recurring without interval",
			r: Reminder{
				Type:        TypeWeeklyCheckin,
				IsRecurring: true,
			},
			wantErr: true,
		},
		{
			name: "zero interval",
			r: Reminder{
				Type:                  TypeWeeklyCheckin,
				IsRecurring:           true,
				RecurringIntervalDays: sql.NullInt32{Int32: 0, Valid: true},
			},
			wantErr: true,
		},
		{
			name: "interval on one-time reminder",
			r: Reminder{
				Type:                  TypeExpirationWarning,
				RecurringIntervalDays: sql.NullInt32{Int32: 7, Valid: true},
			},
			wantErr: true,
		},
		{
			name: "plain one-time reminder",
			r:    Reminder{Type: TypeExpirationWarning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidRecurrence) {
				t.Fatalf("expected ErrInvalidRecurrence, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAdvanceRollsForwardFromPreviousOccurrence(t *testing.T) {
	day0 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	r := Reminder{
		Type:                  TypeWeeklyCheckin,
		ScheduledDate:         day0,
		Status:                StatusSending,
		IsRecurring:           true,
		RecurringIntervalDays: sql.NullInt32{Int32: 7, Valid: true},
		Attempts:              1,
		FailureReason:         sql.NullString{String: "stale", Valid: true},
		ClaimedAt:             sql.NullTime{Time: day0, Valid: true},
	}

	r.Advance()

	want := day0.AddDate(0, 0, 7)
	if !r.ScheduledDate.Equal(want) {
		t.Fatalf("expected scheduled date %s, got %s", want, r.ScheduledDate)
	}
	if !r.NextSendDate.Valid || !r.NextSendDate.Time.Equal(want) {
		t.Fatalf("expected next send date %s, got %v", want, r.NextSendDate)
	}
	if r.Status != StatusPending {
		t.Fatalf("expected status reset to PENDING, got %s", r.Status)
	}
	if r.Attempts != 0 || r.FailureReason.Valid || r.ClaimedAt.Valid {
		t.Fatalf("expected attempt accounting cleared")
	}
}

func TestAdvanceIgnoresOneTimeReminders(t *testing.T) {
	day0 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	r := Reminder{Type: TypeRenewalDue, ScheduledDate: day0, Status: StatusSent}
	r.Advance()
	if !r.ScheduledDate.Equal(day0) || r.Status != StatusSent {
		t.Fatalf("expected one-time reminder to be untouched")
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusSent, StatusDelivered, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusSending, StatusFailed} {
		if s.Terminal() {
			t.Fatalf("expected %s not to be terminal", s)
		}
	}
}
