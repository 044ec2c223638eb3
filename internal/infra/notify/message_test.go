package notify

import (
	"strings"
	"testing"

	domainNotify "repguard/internal/domain/notify"
)

func TestRenderKnownTemplates(t *testing.T) {
	tests := []struct {
		templateID string
		payload    map[string]string
		want       []string
	}{
		{
			templateID: TemplateWeeklyCheckin,
			payload:    map[string]string{"client_name": "Dana"},
			want:       []string{"Dana", "checking in"},
		},
		{
			templateID: TemplateExpirationWarning,
			payload:    map[string]string{"client_name": "Dana", "end_date": "2026-06-30"},
			want:       []string{"Dana", "2026-06-30", "renewal"},
		},
		{
			templateID: TemplateRenewalDue,
			payload:    map[string]string{"client_name": "Dana", "end_date": "2026-06-30"},
			want:       []string{"Dana", "2026-06-30", "due now"},
		},
		{
			templateID: TemplateAlertBreach,
			payload:    map[string]string{"title": "Possible bypass on 14 Elm St"},
			want:       []string{"Breach candidate", "14 Elm St"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.templateID, func(t *testing.T) {
			body := Render(domainNotify.Notification{TemplateID: tt.templateID, Payload: tt.payload})
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Fatalf("expected body to contain %q, got %q", w, body)
				}
			}
		})
	}
}

func TestRenderUnknownTemplateFallsBackToTitle(t *testing.T) {
	body := Render(domainNotify.Notification{
		TemplateID: "something_new",
		Payload:    map[string]string{"title": "raw title"},
	})
	if body != "raw title" {
		t.Fatalf("expected the raw title, got %q", body)
	}
}
