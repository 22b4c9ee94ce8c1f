package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/inventory"
	"github.com/go-chi/chi/v5"
)

type InventoryHandler struct {
	Ledger         *inventory.Ledger
	ReservationTTL time.Duration
}

type InitializeStockReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type AdjustStockReq struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
	Source string `json:"source,omitempty"`
}

type ReserveStockReq struct {
	Quantity int    `json:"quantity"`
	OrderRef string `json:"order_ref"`
}

type ReleaseReservationReq struct {
	Reason string `json:"reason,omitempty"`
}

func (h *InventoryHandler) Register(r *chi.Mux) {
	r.Post("/inventory", h.initialize)
	r.Get("/inventory/{productID}", h.getRecord)
	r.Post("/inventory/{productID}/adjust", h.adjust)
	r.Post("/inventory/{productID}/reserve", h.reserve)
	r.Post("/inventory/reservations/{id}/release", h.release)
	r.Get("/inventory/{productID}/history", h.listHistory)
}

func (h *InventoryHandler) initialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Ledger.Initialize(ctx, req.ProductID, req.Quantity, actorFrom(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *InventoryHandler) getRecord(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rec, err := h.Ledger.Record(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"record":    rec,
		"available": rec.Available(),
	})
}

func (h *InventoryHandler) adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Reason == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reason required"})
		return
	}
	source := inventory.SourceManual
	if req.Source != "" {
		source = inventory.Source(req.Source)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	entry, err := h.Ledger.AdjustQuantity(ctx, chi.URLParam(r, "productID"), req.Delta, req.Reason, source, actorFrom(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *InventoryHandler) reserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Ledger.Reserve(ctx, chi.URLParam(r, "productID"), req.Quantity, req.OrderRef, h.ReservationTTL)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *InventoryHandler) release(w http.ResponseWriter, r *http.Request) {
	var req ReleaseReservationReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reason == "" {
		req.Reason = "manual release"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Ledger.Release(ctx, chi.URLParam(r, "id"), req.Reason); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (h *InventoryHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	entries, err := h.Ledger.History(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func actorFrom(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "admin"
}
