package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/shoplane/marketplace-api/internal/events"
	kafkax "github.com/shoplane/marketplace-api/internal/kafka"
	"github.com/shoplane/marketplace-api/internal/mail"
	"github.com/shoplane/marketplace-api/internal/redisx"
)

// Service turns order lifecycle events into customer emails. It is wired as
// a kafka consumer handler in the worker binary.
type Service struct {
	Redis  *redis.Client
	Sender mail.Sender
}

// HandleOrderCreated sends the order confirmation email.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventOrderCreated {
		return nil
	}

	seen, err := s.alreadySeen(ctx, env.EventID)
	if err != nil {
		log.Printf("notify: dedup check failed for %s: %v", env.EventID, err)
	}
	if seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[events.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}
	if p.CustomerEmail == "" {
		return nil // guest checkout without email, nothing to send
	}

	lines := make([]mail.OrderLine, 0, len(p.Items))
	for _, it := range p.Items {
		lines = append(lines, mail.OrderLine{
			Title:    it.Title,
			Quantity: it.Quantity,
			Cents:    it.UnitPriceCents * it.Quantity,
		})
	}
	msg, err := mail.OrderConfirmation(p.CustomerEmail, mail.OrderConfirmationData{
		OrderID:    p.OrderID,
		Lines:      lines,
		TotalCents: p.TotalCents,
	})
	if err != nil {
		return err
	}
	return s.Sender.Send(ctx, msg)
}

// HandleOrderPaid sends the payment receipt email.
func (s *Service) HandleOrderPaid(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventOrderPaid {
		return nil
	}

	seen, err := s.alreadySeen(ctx, env.EventID)
	if err != nil {
		log.Printf("notify: dedup check failed for %s: %v", env.EventID, err)
	}
	if seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[events.OrderPaidPayload](env.Payload)
	if err != nil {
		return err
	}
	if p.CustomerEmail == "" {
		return nil
	}

	msg, err := mail.PaymentReceipt(p.CustomerEmail, mail.PaymentReceiptData{
		OrderID:        p.OrderID,
		AmountCents:    p.AmountCents,
		TransactionRef: p.TransactionRef,
	})
	if err != nil {
		return err
	}
	return s.Sender.Send(ctx, msg)
}

// alreadySeen marks the event id and reports whether it was processed
// before. Redis failures fall open: better a duplicate email than none.
func (s *Service) alreadySeen(ctx context.Context, eventID string) (bool, error) {
	if s.Redis == nil {
		return false, nil
	}
	key := fmt.Sprintf(redisx.KeyDedup, "notify", eventID)
	fresh, err := redisx.MarkOnce(ctx, s.Redis, key, redisx.TTLDedup)
	if err != nil {
		return false, err
	}
	return !fresh, nil
}
