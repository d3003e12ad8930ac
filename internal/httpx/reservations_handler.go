package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shoplane/marketplace-api/internal/auth"
	"github.com/shoplane/marketplace-api/internal/reservation"
)

type ReservationsHandler struct {
	Manager *reservation.Manager
	// Hold is the default lifetime when the request does not name one.
	Hold time.Duration
}

type CreateReservationReq struct {
	ProductID  string `json:"product_id"`
	VariantSKU string `json:"variant_sku,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Quantity   int    `json:"quantity"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

func (h *ReservationsHandler) Register(r chi.Router) {
	r.Post("/reservations", h.create)
	r.Post("/reservations/{id}/release", h.release)
	r.Get("/reservations/{id}", h.get)
	r.With(auth.RequireRole(auth.RoleAdmin)).Get("/products/{id}/reservations", h.listForProduct)
}

func (h *ReservationsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	in := reservation.CreateInput{
		ProductID:  req.ProductID,
		VariantSKU: req.VariantSKU,
		OrderID:    req.OrderID,
		SessionID:  req.SessionID,
		Quantity:   req.Quantity,
	}
	if id, ok := auth.FromContext(r.Context()); ok {
		in.UserID = id.UserID
	}
	if in.UserID == "" && in.SessionID == "" {
		writeErr(w, http.StatusBadRequest, "reservation needs a user or session scope")
		return
	}

	hold := h.Hold
	if req.TTLSeconds > 0 {
		hold = time.Duration(req.TTLSeconds) * time.Second
	}
	if hold <= 0 {
		hold = 15 * time.Minute
	}
	in.ExpiresAt = time.Now().UTC().Add(hold)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Manager.Create(ctx, in)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ReservationsHandler) release(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Manager.Release(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, reservation.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if errors.Is(err, reservation.ErrNotActive) {
		writeErr(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Manager.Store.Get(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, reservation.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationsHandler) listForProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Manager.Store.ListForProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}
