package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shoplane/marketplace-api/internal/coupon"
)

type CouponsHandler struct {
	Engine *coupon.Engine
}

type ValidateCouponReq struct {
	Code          string   `json:"code"`
	TotalCents    int      `json:"total_cents"`
	CategorySlugs []string `json:"category_slugs,omitempty"`
}

type ValidateCouponResp struct {
	Valid         bool   `json:"valid"`
	Reason        string `json:"reason,omitempty"`
	Code          string `json:"code,omitempty"`
	Type          string `json:"type,omitempty"`
	DiscountCents int    `json:"discount_cents"`
}

func (h *CouponsHandler) Register(r chi.Router) {
	r.Post("/coupons/validate", h.validate)
}

// validate never errors on a bad code; the outcome rides in the body so the
// checkout UI can show the reason.
func (h *CouponsHandler) validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateCouponReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Code == "" {
		writeErr(w, http.StatusBadRequest, "missing code")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	app, err := h.Engine.Validate(ctx, req.Code, req.TotalCents, req.CategorySlugs)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ValidateCouponResp{
		Valid:         app.Valid,
		Reason:        string(app.Reason),
		DiscountCents: app.DiscountCents,
	}
	if app.Coupon != nil {
		resp.Code = app.Coupon.Code
		resp.Type = string(app.Coupon.Type)
	}
	writeJSON(w, http.StatusOK, resp)
}
