package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/shoplane/marketplace-api/internal/auth"
	"github.com/shoplane/marketplace-api/internal/order"
	"github.com/shoplane/marketplace-api/internal/redisx"
)

type OrdersHandler struct {
	Workflow *order.Workflow
	Redis    *redis.Client
}

type OrderItemReq struct {
	ProductID      string `json:"product_id"`
	VendorID       string `json:"vendor_id,omitempty"`
	Title          string `json:"title,omitempty"`
	Image          string `json:"image,omitempty"`
	VariantSKU     string `json:"variant_sku,omitempty"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

type CreateOrderReq struct {
	CustomerEmail   string          `json:"customer_email,omitempty"`
	Items           []OrderItemReq  `json:"items"`
	TotalCents      int             `json:"total_cents"`
	ShippingAddress json.RawMessage `json:"shipping_address,omitempty"`
	CouponCode      string          `json:"coupon_code,omitempty"`
}

type UpdateStatusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.create)
	r.With(auth.RequireAuth).Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/{id}/status", h.getStatus)
	r.With(auth.RequireRole(auth.RoleSeller)).Patch("/orders/{id}/status", h.updateStatus)
	r.With(auth.RequireRole(auth.RoleAdmin)).Delete("/orders/{id}", h.delete)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Items) == 0 {
		writeErr(w, http.StatusBadRequest, "missing items")
		return
	}

	in := order.CreateInput{
		CustomerEmail:   req.CustomerEmail,
		TotalCents:      req.TotalCents,
		ShippingAddress: string(req.ShippingAddress),
		CouponCode:      req.CouponCode,
	}
	if id, ok := auth.FromContext(r.Context()); ok {
		in.CustomerID = id.UserID
		if in.CustomerEmail == "" {
			in.CustomerEmail = id.Email
		}
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, order.Item{
			ProductID:      it.ProductID,
			VendorID:       it.VendorID,
			Title:          it.Title,
			Image:          it.Image,
			VariantSKU:     it.VariantSKU,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Workflow.Create(ctx, in)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	h.cacheStatus(ctx, o.ID, o.Status)
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Workflow.Get(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, order.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getStatus serves the small hot read from the redis cache and falls back
// to the database on a miss.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	o, err := h.Workflow.Get(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.cacheStatus(ctx, o.ID, o.Status)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(o.Status)})
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.ListFilter{
		CustomerID: q.Get("customer"),
		Status:     q.Get("status"),
		Page:       atoiDefault(q.Get("page"), 1),
		Limit:      atoiDefault(q.Get("limit"), 20),
	}
	// non-admins only ever see their own orders
	if id, ok := auth.FromContext(r.Context()); ok && id.Role != auth.RoleAdmin {
		f.CustomerID = id.UserID
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	total, items, err := h.Workflow.List(ctx, f)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total": total,
		"page":  f.Page,
		"limit": f.Limit,
		"items": items,
	})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Workflow.UpdateStatus(ctx, chi.URLParam(r, "id"), order.Status(req.Status))
	if errors.Is(err, order.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusConflict, err.Error())
		return
	}
	h.cacheStatus(ctx, o.ID, o.Status)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err := h.Workflow.Delete(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err()
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID string, status order.Status) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	val := fmt.Sprintf(`{"status":%q}`, status)
	_ = h.Redis.Set(ctx, key, val, redisx.TTLStatusCache).Err()
}

func atoiDefault(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return def
}
