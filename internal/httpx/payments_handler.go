package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/shoplane/marketplace-api/internal/payment"
	"github.com/shoplane/marketplace-api/internal/redisx"
)

// maxWebhookBody caps gateway payloads at 1 MiB.
const maxWebhookBody = 1 << 20

type PaymentsHandler struct {
	Settlement *payment.Settlement
	Redis      *redis.Client
	// Secret verifies the Gateway-Signature header. When empty, only
	// unsigned internal status updates are accepted.
	Secret string
}

type StatusChangeReq struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	TransactionRef string `json:"transaction_ref,omitempty"`
	Gateway        string `json:"gateway,omitempty"`
	AmountCents    int    `json:"amount_cents,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Post("/payments/webhook", h.webhook)
	r.Get("/orders/{id}/payment", h.getByOrder)
}

// webhook accepts two shapes: a signed gateway event (Gateway-Signature
// header present) or a bare internal status change. Both converge on the
// settlement service; the redis dedup key makes gateway replays cheap even
// before the forward-only status write catches them.
func (h *PaymentsHandler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "unreadable body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	sig := r.Header.Get("Gateway-Signature")
	if sig != "" {
		h.signedWebhook(ctx, w, body, sig)
		return
	}

	var req StatusChangeReq
	if err := json.Unmarshal(body, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.Settlement.HandleStatusChange(ctx, payment.StatusChange{
		OrderID:        req.OrderID,
		Status:         payment.Status(req.Status),
		TransactionRef: req.TransactionRef,
		Gateway:        req.Gateway,
		AmountCents:    req.AmountCents,
		SessionID:      req.SessionID,
	})
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, webhookResp(res))
}

// The event id is only marked seen after processing succeeds. Marking it
// up front would let a forged or transiently failing delivery burn the id
// and turn the gateway's genuine retry into a false duplicate.
func (h *PaymentsHandler) signedWebhook(ctx context.Context, w http.ResponseWriter, body []byte, sig string) {
	eventID := payment.EventID(body)
	var dedupKey string
	if eventID != "" && h.Redis != nil {
		dedupKey = fmt.Sprintf(redisx.KeyDedup, "webhook", eventID)
		seen, err := redisx.Exists(ctx, h.Redis, dedupKey)
		if err != nil {
			log.Printf("webhook dedup check failed for %s: %v", eventID, err)
		} else if seen {
			writeJSON(w, http.StatusOK, map[string]any{"duplicate": true})
			return
		}
	}

	res, err := h.Settlement.HandleSignedWebhook(ctx, body, sig, h.Secret)
	if errors.Is(err, payment.ErrBadSignature) || errors.Is(err, payment.ErrMissingSecret) {
		writeErr(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	if dedupKey != "" {
		if _, err := redisx.MarkOnce(ctx, h.Redis, dedupKey, redisx.TTLDedup); err != nil {
			log.Printf("webhook dedup mark failed for %s: %v", eventID, err)
		}
	}
	if res == nil {
		// unrecognized event kind, acknowledged and ignored
		writeJSON(w, http.StatusOK, map[string]any{"ignored": true})
		return
	}
	writeJSON(w, http.StatusOK, webhookResp(res))
}

func (h *PaymentsHandler) getByOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Settlement.Store.FindByOrderID(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, payment.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func webhookResp(res *payment.Result) map[string]any {
	return map[string]any{
		"payment_id": res.Payment.ID,
		"status":     res.Payment.Status,
		"settled":    res.Settled,
		"items":      res.Items,
	}
}
