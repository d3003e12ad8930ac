package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shoplane/marketplace-api/internal/auth"
	"github.com/shoplane/marketplace-api/internal/inventory"
)

type InventoryHandler struct {
	Ledger *inventory.Ledger
}

type StockEventReq struct {
	ProductID  string `json:"product_id"`
	VariantSKU string `json:"variant_sku,omitempty"`
	Kind       string `json:"kind"`
	Quantity   int    `json:"quantity"`
	Note       string `json:"note,omitempty"`
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.With(auth.RequireRole(auth.RoleAdmin)).Post("/inventory/events", h.appendEvent)
	r.Get("/products/{id}/stock", h.stock)
}

func (h *InventoryHandler) appendEvent(w http.ResponseWriter, r *http.Request) {
	var req StockEventReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Ledger.Apply(ctx, inventory.EventInput{
		ProductID:  req.ProductID,
		VariantSKU: req.VariantSKU,
		Kind:       inventory.EventKind(req.Kind),
		Quantity:   req.Quantity,
		Note:       req.Note,
	})
	if errors.Is(err, inventory.ErrUnknownKind) || errors.Is(err, inventory.ErrBadQuantity) {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *InventoryHandler) stock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	n, err := h.Ledger.Store.Stock(ctx, productID)
	if errors.Is(err, inventory.ErrProductNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": productID, "stock": n})
}
