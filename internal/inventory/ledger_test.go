package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplane/marketplace-api/internal/events"
)

type memStore struct {
	stock   map[string]int
	events  []*Event
	appendE error
	adjustE error
}

func newMemStore(stock map[string]int) *memStore {
	if stock == nil {
		stock = map[string]int{}
	}
	return &memStore{stock: stock}
}

func (s *memStore) Append(_ context.Context, ev *Event) error {
	if s.appendE != nil {
		return s.appendE
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *memStore) Adjust(_ context.Context, productID string, delta int) (bool, error) {
	if s.adjustE != nil {
		return false, s.adjustE
	}
	cur, ok := s.stock[productID]
	if !ok {
		return false, nil
	}
	next := cur + delta
	if next < 0 {
		next = 0
	}
	s.stock[productID] = next
	return true, nil
}

func (s *memStore) Stock(_ context.Context, productID string) (int, error) {
	n, ok := s.stock[productID]
	if !ok {
		return 0, ErrProductNotFound
	}
	return n, nil
}

type capturedEvent struct {
	key   []byte
	value []byte
}

type memPublisher struct{ published []capturedEvent }

func (p *memPublisher) Publish(key, value []byte, _ ...kafkago.Header) {
	p.published = append(p.published, capturedEvent{key: key, value: value})
}

func TestLedgerApplyMutatesStock(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(map[string]int{"p1": 10})
	l := &Ledger{Store: store}

	ev, err := l.Apply(ctx, EventInput{ProductID: "p1", Kind: KindSale, Quantity: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, 7, store.stock["p1"])
	require.Len(t, store.events, 1)
	assert.Equal(t, KindSale, store.events[0].Kind)
}

func TestLedgerClampsAtZero(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(map[string]int{"p1": 2})
	l := &Ledger{Store: store}

	_, err := l.Apply(ctx, EventInput{ProductID: "p1", Kind: KindSale, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, store.stock["p1"])
}

func TestLedgerRecordKeepsStock(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(map[string]int{"p1": 10})
	l := &Ledger{Store: store}

	_, err := l.Record(ctx, EventInput{ProductID: "p1", Kind: KindSale, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 10, store.stock["p1"], "record must not touch stock")
	assert.Len(t, store.events, 1)
}

func TestLedgerMissingProductRetainsEvent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(nil)
	l := &Ledger{Store: store}

	_, err := l.Apply(ctx, EventInput{ProductID: "ghost", Kind: KindReturn, Quantity: 2})
	require.NoError(t, err)
	assert.Len(t, store.events, 1, "event survives a missing product")
}

func TestLedgerRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	l := &Ledger{Store: newMemStore(nil)}

	_, err := l.Apply(ctx, EventInput{ProductID: "p1", Kind: "RESTOCK", Quantity: 1})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = l.Apply(ctx, EventInput{ProductID: "p1", Kind: KindAdjust, Quantity: 0})
	assert.ErrorIs(t, err, ErrBadQuantity)

	_, err = l.Apply(ctx, EventInput{Kind: KindAdjust, Quantity: 1})
	assert.Error(t, err)
}

func TestLedgerAppendFailureAborts(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(map[string]int{"p1": 5})
	store.appendE = errors.New("db down")
	l := &Ledger{Store: store}

	_, err := l.Apply(ctx, EventInput{ProductID: "p1", Kind: KindSale, Quantity: 1})
	assert.Error(t, err)
	assert.Equal(t, 5, store.stock["p1"], "stock untouched when the event row fails")
}

func TestLedgerPublishesStockChanged(t *testing.T) {
	ctx := context.Background()
	pub := &memPublisher{}
	l := &Ledger{Store: newMemStore(map[string]int{"p1": 10}), Producer: pub, Service: "test"}

	_, err := l.Apply(ctx, EventInput{ProductID: "p1", Kind: KindAdjust, Quantity: -4})
	require.NoError(t, err)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "p1", string(pub.published[0].key))

	var env events.Envelope
	require.NoError(t, json.Unmarshal(pub.published[0].value, &env))
	assert.Equal(t, events.EventStockChanged, env.EventType)

	var p events.StockChangedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, -4, p.Delta)
	assert.Equal(t, "ADJUST", p.Kind)
}
