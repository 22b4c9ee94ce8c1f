package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-core.git/internal/history"
	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
	"github.com/ariefcatur/go-checkout-core.git/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type OrdersHandler struct {
	Repo      orders.Repo
	Engine    *orders.Engine
	Recorder  *history.Recorder
	Redis     *redis.Client
	Addresses checkout.AddressValidator
}

type UpdateStatusReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type UpdateStatusResp struct {
	Order    orders.Order `json:"order"`
	Warnings []string     `json:"warnings,omitempty"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Get("/orders/number/{number}", h.getByNumber)
	r.Get("/orders", h.listOrders)
	r.Post("/orders/{id}/status", h.updateStatus)
	r.Post("/orders/{id}/address", h.updateAddress)
	r.Get("/orders/{id}/history", h.listHistory)
	r.Get("/orders/{id}/history/stats", h.historyStats)
	r.Get("/orders/{id}/history/export", h.exportHistory)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback DB
	o, err := h.Repo.GetOrder(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	body := map[string]any{"status": o.Status, "payment_status": o.PaymentStatus}
	b, _ := json.Marshal(body)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) getByNumber(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.GetOrderByNumber(ctx, chi.URLParam(r, "number"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id required"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Repo.ListByUser(ctx, userID, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	actor := r.Header.Get("X-Actor")
	if actor == "" {
		actor = "admin"
	}
	o, warns, err := h.Engine.UpdateOrderStatus(ctx, chi.URLParam(r, "id"), orders.Status(req.Status), actor, req.Notes)
	if err != nil {
		writeErr(w, err)
		return
	}

	// invalidate cache status lama
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, o.ID)).Err()

	writeJSON(w, http.StatusOK, UpdateStatusResp{Order: o, Warnings: warns})
}

// updateAddress: koreksi alamat kirim selama order belum dilepas ke kurir.
func (h *OrdersHandler) updateAddress(w http.ResponseWriter, r *http.Request) {
	var addr orders.Address
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if errs := h.Addresses.Validate(addr); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid address", "details": errs})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID := chi.URLParam(r, "id")
	if err := h.Repo.UpdateShippingAddress(ctx, orderID, addr); err != nil {
		writeErr(w, err)
		return
	}
	actor := r.Header.Get("X-Actor")
	if actor == "" {
		actor = "admin"
	}
	h.Recorder.AddressChanged(ctx, orderID, actor,
		fmt.Sprintf("shipping address changed to %s, %s", addr.City, addr.Country))

	o, err := h.Repo.GetOrder(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f := historyFilter(r)
	f.OrderRef = chi.URLParam(r, "id")
	entries, err := h.Recorder.List(ctx, f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *OrdersHandler) historyStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	stats, err := h.Recorder.Stats(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *OrdersHandler) exportHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	f := historyFilter(r)
	f.OrderRef = chi.URLParam(r, "id")
	b, err := h.Recorder.Export(ctx, f)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=order-history.json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func historyFilter(r *http.Request) history.Filter {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	return history.Filter{
		EventType:          history.EventType(q.Get("event_type")),
		Priority:           history.Priority(q.Get("priority")),
		FollowUpOnly:       q.Get("follow_up") == "true",
		CustomerFacingOnly: q.Get("customer_visible") == "true",
		NewestFirst:        q.Get("order") != "asc",
		Limit:              limit,
	}
}
