package notifications

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Message is one email to one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer is the transport boundary. Provider specifics live behind it.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them. Used when
// no SMTP host is configured.
type LogMailer struct {
	log *logrus.Entry
}

func NewLogMailer(log *logrus.Entry) *LogMailer {
	return &LogMailer{log: log.WithField("component", "log_mailer")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("email not sent, no SMTP host configured")
	return nil
}
