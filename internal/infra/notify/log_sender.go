package notify

import (
	"context"

	domainNotify "repguard/internal/domain/notify"

	"github.com/sirupsen/logrus"
)

// LogSender writes outbound notifications to the log instead of a real
// email/SMS gateway. It stands in for the external sender in development
// and for channels that are not wired up; it never confirms delivery.
type LogSender struct {
	log *logrus.Logger
}

func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg domainNotify.Notification) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.log.WithFields(logrus.Fields{
		"method":    msg.Method,
		"recipient": msg.Recipient,
		"template":  msg.TemplateID,
	}).Info(Render(msg))
	return false, nil
}
