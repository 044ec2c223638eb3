package notify

import (
	"fmt"

	domainNotify "repguard/internal/domain/notify"
)

// Template ids shared by the engine and transports.
const (
	TemplateWeeklyCheckin     = "weekly_checkin"
	TemplateExpirationWarning = "expiration_warning"
	TemplateRenewalDue        = "renewal_due"
	TemplateAlertBreach       = "alert_breach"
	TemplateAlertExpiration   = "alert_expiration"
)

// Render produces the message body for a notification. Transports that have
// their own templating (a real email gateway) can ignore it and use the
// payload directly.
func Render(msg domainNotify.Notification) string {
	p := msg.Payload
	switch msg.TemplateID {
	case TemplateWeeklyCheckin:
		return fmt.Sprintf("Hi %s, just checking in on your home search. Anything new this week?", p["client_name"])
	case TemplateExpirationWarning:
		return fmt.Sprintf("Heads up %s: your representation agreement ends on %s. Time to talk renewal.", p["client_name"], p["end_date"])
	case TemplateRenewalDue:
		return fmt.Sprintf("%s, your representation agreement ends on %s - renewal is due now.", p["client_name"], p["end_date"])
	case TemplateAlertBreach:
		return fmt.Sprintf("Breach candidate: %s", p["title"])
	case TemplateAlertExpiration:
		return fmt.Sprintf("Contract expiration: %s", p["title"])
	default:
		return p["title"]
	}
}
