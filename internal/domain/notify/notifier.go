package notify

import "context"

// Method is the delivery channel for a notification.
type Method string

const (
	MethodEmail Method = "EMAIL"
	MethodSMS   Method = "SMS"
	MethodInApp Method = "IN_APP"
)

// Notification is one outbound message. Payload carries template variables;
// the transport renders them however it sees fit.
type Notification struct {
	Method     Method
	Recipient  string
	TemplateID string
	Payload    map[string]string
}

// Notifier delivers notifications through an external channel. This keeps
// the engine decoupled from transport libraries: implementations must return
// an error on transport failure rather than panic, and delivered reports a
// synchronous delivery confirmation when the channel provides one.
type Notifier interface {
	Send(ctx context.Context, n Notification) (delivered bool, err error)
}
