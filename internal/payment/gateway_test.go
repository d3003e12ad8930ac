package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplane/marketplace-api/internal/reservation"
)

const testSecret = "whsec_test"

func TestVerifySignatureRoundtrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)
	now := time.Now()

	sig := SignPayload(payload, testSecret, now)
	assert.NoError(t, VerifySignature(payload, sig, testSecret, now))
}

func TestVerifySignatureRejects(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()
	sig := SignPayload(payload, testSecret, now)

	cases := []struct {
		name    string
		payload []byte
		header  string
		secret  string
		at      time.Time
		want    error
	}{
		{"tampered payload", []byte(`{"id":"evt_2"}`), sig, testSecret, now, ErrBadSignature},
		{"wrong secret", payload, sig, "whsec_other", now, ErrBadSignature},
		{"stale timestamp", payload, sig, testSecret, now.Add(6 * time.Minute), ErrBadSignature},
		{"future timestamp", payload, SignPayload(payload, testSecret, now.Add(10 * time.Minute)), testSecret, now, ErrBadSignature},
		{"garbage header", payload, "nonsense", testSecret, now, ErrBadSignature},
		{"empty header", payload, "", testSecret, now, ErrBadSignature},
		{"no secret", payload, sig, "", now, ErrMissingSecret},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, VerifySignature(tc.payload, tc.header, tc.secret, tc.at), tc.want)
		})
	}
}

func signedEvent(t *testing.T, body string) ([]byte, string) {
	t.Helper()
	payload := []byte(body)
	return payload, SignPayload(payload, testSecret, time.Now())
}

func TestHandleSignedWebhookSucceeded(t *testing.T) {
	ctx := context.Background()
	s, pays, _, holds, _, _ := fixture()
	holds.userHolds["p1|u1"] = &reservation.Reservation{ID: "r1", ProductID: "p1", UserID: "u1"}

	payload, sig := signedEvent(t, `{
		"id": "evt_1",
		"type": "payment.succeeded",
		"data": {"object": {"id": "tx_99", "amount_cents": 7000, "currency": "USD",
			"metadata": {"order_id": "o1", "gateway": "stripe"}}}
	}`)

	res, err := s.HandleSignedWebhook(ctx, payload, sig, testSecret)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Settled)
	assert.Equal(t, StatusPaid, pays.byOrder["o1"].Status)
	assert.Equal(t, "tx_99", pays.byOrder["o1"].TransactionRef)
}

func TestHandleSignedWebhookFailedEvent(t *testing.T) {
	ctx := context.Background()
	s, pays, _, _, _, _ := fixture()

	payload, sig := signedEvent(t, `{
		"id": "evt_2",
		"type": "payment.failed",
		"data": {"object": {"id": "tx_bad", "metadata": {"order_id": "o1"}}}
	}`)

	res, err := s.HandleSignedWebhook(ctx, payload, sig, testSecret)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Settled)
	assert.Equal(t, StatusFailed, pays.byOrder["o1"].Status)
}

func TestHandleSignedWebhookUnknownKindAcked(t *testing.T) {
	ctx := context.Background()
	s, pays, _, _, _, _ := fixture()

	payload, sig := signedEvent(t, `{"id": "evt_3", "type": "customer.updated"}`)

	res, err := s.HandleSignedWebhook(ctx, payload, sig, testSecret)
	assert.NoError(t, err)
	assert.Nil(t, res, "unknown kinds are acknowledged, not processed")
	assert.Empty(t, pays.byOrder)
}

func TestHandleSignedWebhookBadSignatureMutatesNothing(t *testing.T) {
	ctx := context.Background()
	s, pays, _, holds, _, _ := fixture()

	payload := []byte(`{"id":"evt_4","type":"payment.succeeded","data":{"object":{"metadata":{"order_id":"o1"}}}}`)

	_, err := s.HandleSignedWebhook(ctx, payload, "t=1,v1=deadbeef", testSecret)
	assert.ErrorIs(t, err, ErrBadSignature)
	assert.Empty(t, pays.byOrder)
	assert.Empty(t, holds.consumed)
}

func TestHandleSignedWebhookMissingOrderID(t *testing.T) {
	ctx := context.Background()
	s, _, _, _, _, _ := fixture()

	payload, sig := signedEvent(t, `{"id": "evt_5", "type": "payment.succeeded", "data": {"object": {"id": "tx_1"}}}`)

	_, err := s.HandleSignedWebhook(ctx, payload, sig, testSecret)
	assert.Error(t, err)
}

func TestEventID(t *testing.T) {
	assert.Equal(t, "evt_1", EventID([]byte(`{"id":"evt_1","type":"x"}`)))
	assert.Equal(t, "", EventID([]byte(`not json`)))
}
