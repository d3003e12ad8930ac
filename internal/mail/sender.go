package mail

import (
	"context"
	"log"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender abstracts delivery; real transport lives outside this service.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender writes the message to the log instead of delivering it. Used
// in development and as the default when no transport is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, m Message) error {
	log.Printf("mail: to=%s subject=%q (%d bytes)", m.To, m.Subject, len(m.Body))
	return nil
}
