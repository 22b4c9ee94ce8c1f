package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-core.git/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type CheckoutHandler struct {
	Manager *checkout.Manager
	Redis   *redis.Client
}

type CreateSessionReq struct {
	CartRef string `json:"cart_ref"`
	UserID  string `json:"user_id"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout/sessions", h.createSession)
	r.Get("/checkout/sessions/{id}", h.getSession)
	r.Patch("/checkout/sessions/{id}", h.updateSession)
	r.Get("/checkout/sessions/{id}/steps/{step}", h.validateStep)
	r.Post("/checkout/sessions/{id}/abandon", h.abandonSession)
	r.Post("/checkout/sessions/{id}/complete", h.completeSession)
}

func (h *CheckoutHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.CartRef == "" || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency: satu cart satu session aktif.
	idemKey := fmt.Sprintf(redisx.KeyIdemSessionCreate, req.CartRef)
	if id, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && id != "" {
		if s, err := h.Manager.GetSession(ctx, id); err == nil && s.Status == checkout.SessionActive {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	s, err := h.Manager.CreateSession(ctx, req.CartRef, req.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = h.Redis.Set(ctx, idemKey, s.ID, redisx.TTLIdempotency).Err()
	_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeySessionToken, s.Token), s.ID, redisx.TTLSessionTok).Err()

	writeJSON(w, http.StatusCreated, s)
}

func (h *CheckoutHandler) getSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Manager.GetSession(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *CheckoutHandler) updateSession(w http.ResponseWriter, r *http.Request) {
	var p checkout.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.Manager.UpdateSession(ctx, chi.URLParam(r, "id"), p)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *CheckoutHandler) validateStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Manager.ValidateStep(ctx, chi.URLParam(r, "id"), checkout.Step(chi.URLParam(r, "step")))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CheckoutHandler) abandonSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Manager.AbandonSession(ctx, chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

func (h *CheckoutHandler) completeSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	actor := r.Header.Get("X-Actor")
	if actor == "" {
		actor = "customer"
	}
	o, err := h.Manager.CompleteSession(ctx, chi.URLParam(r, "id"), actor)
	if err != nil {
		writeErr(w, err)
		return
	}

	// cache status buat GET order cepat
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	_ = h.Redis.Set(ctx, statusKey,
		fmt.Sprintf(`{"status":%q,"payment_status":%q}`, o.Status, o.PaymentStatus),
		redisx.TTLStatusCache).Err()

	writeJSON(w, http.StatusCreated, o)
}
