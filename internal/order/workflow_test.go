package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplane/marketplace-api/internal/events"
	"github.com/shoplane/marketplace-api/internal/reservation"
)

type memStore struct {
	byID map[string]*Order
}

func newMemStore() *memStore { return &memStore{byID: map[string]*Order{}} }

func (s *memStore) Create(_ context.Context, o *Order) error {
	s.byID[o.ID] = o
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*Order, error) {
	o, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *memStore) List(_ context.Context, f ListFilter) (int, []*Order, error) {
	var out []*Order
	for _, o := range s.byID {
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		out = append(out, o)
	}
	return len(out), out, nil
}

func (s *memStore) SetStatus(_ context.Context, id string, status Status) error {
	o, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

type memHolds struct {
	created []reservation.CreateInput
	err     error
}

func (h *memHolds) Create(_ context.Context, in reservation.CreateInput) (*reservation.Reservation, error) {
	if h.err != nil {
		return nil, h.err
	}
	h.created = append(h.created, in)
	return &reservation.Reservation{ID: "r-" + in.ProductID, Status: reservation.StatusActive}, nil
}

type capturedEvent struct {
	key   []byte
	value []byte
}

type memPublisher struct{ published []capturedEvent }

func (p *memPublisher) Publish(key, value []byte, _ ...kafkago.Header) {
	p.published = append(p.published, capturedEvent{key: key, value: value})
}

func twoItems() []Item {
	return []Item{
		{ProductID: "p1", Title: "Desk Lamp", UnitPriceCents: 2500, Quantity: 2},
		{ProductID: "p2", VariantSKU: "BLK-L", Title: "Hoodie", UnitPriceCents: 4500, Quantity: 1},
	}
}

func TestCreatePlacesHoldPerItem(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	holds := &memHolds{}
	w := &Workflow{Store: store, Holds: holds, Hold: 10 * time.Minute}

	o, err := w.Create(ctx, CreateInput{CustomerID: "u1", Items: twoItems(), TotalCents: 9500})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	require.Len(t, holds.created, 2)
	assert.Equal(t, "u1", holds.created[0].UserID)
	assert.Equal(t, o.ID, holds.created[0].OrderID)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), holds.created[0].ExpiresAt, 5*time.Second)
}

func TestCreateSurvivesHoldFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	holds := &memHolds{err: errors.New("no stock row")}
	w := &Workflow{Store: store, Holds: holds}

	o, err := w.Create(ctx, CreateInput{CustomerID: "u1", Items: twoItems(), TotalCents: 9500})
	require.NoError(t, err, "hold failures never fail the order")
	assert.Len(t, store.byID, 1)
	assert.Equal(t, StatusPending, o.Status)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	w := &Workflow{Store: newMemStore(), Holds: &memHolds{}}

	_, err := w.Create(ctx, CreateInput{CustomerID: "u1"})
	assert.Error(t, err, "no items")

	_, err = w.Create(ctx, CreateInput{Items: []Item{{ProductID: "", Quantity: 1}}})
	assert.Error(t, err, "item without product")

	_, err = w.Create(ctx, CreateInput{Items: []Item{{ProductID: "p1", Quantity: 0}}})
	assert.Error(t, err, "zero quantity")

	_, err = w.Create(ctx, CreateInput{Items: twoItems(), TotalCents: -1})
	assert.Error(t, err, "negative total")
}

func TestCreatePublishesEvent(t *testing.T) {
	ctx := context.Background()
	pub := &memPublisher{}
	w := &Workflow{Store: newMemStore(), Holds: &memHolds{}, Producer: pub, Service: "test"}

	o, err := w.Create(ctx, CreateInput{CustomerID: "u1", CustomerEmail: "u1@example.com", Items: twoItems(), TotalCents: 9500})
	require.NoError(t, err)
	require.Len(t, pub.published, 1)
	assert.Equal(t, o.ID, string(pub.published[0].key))

	var env events.Envelope
	require.NoError(t, json.Unmarshal(pub.published[0].value, &env))
	assert.Equal(t, events.EventOrderCreated, env.EventType)
	assert.Equal(t, o.ID, env.CorrelationID)

	var p events.OrderCreatedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "u1@example.com", p.CustomerEmail)
	assert.Equal(t, 9500, p.TotalCents)
	assert.Len(t, p.Items, 2)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	w := &Workflow{Store: store, Holds: &memHolds{}}

	o, err := w.Create(ctx, CreateInput{Items: twoItems(), TotalCents: 9500, CustomerID: "u1"})
	require.NoError(t, err)

	got, err := w.UpdateStatus(ctx, o.ID, StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)

	_, err = w.UpdateStatus(ctx, o.ID, StatusDelivered)
	assert.Error(t, err, "PROCESSING cannot jump to DELIVERED")

	_, err = w.UpdateStatus(ctx, "missing", StatusProcessing)
	assert.ErrorIs(t, err, ErrNotFound)
}
