package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/payments"
	"github.com/go-chi/chi/v5"
)

type PaymentsHandler struct {
	Workflow *payments.Workflow
}

type CreateConfirmationReq struct {
	PaymentRef string `json:"payment_ref"`
	OrderRef   string `json:"order_ref"`
	Type       string `json:"type,omitempty"`
}

type ConfirmationActionReq struct {
	Notes string `json:"notes,omitempty"`
}

type ProcessRulesReq struct {
	PaymentRef string `json:"payment_ref"`
	OrderRef   string `json:"order_ref"`
}

type ConfirmationResp struct {
	Confirmation payments.Confirmation  `json:"confirmation"`
	History      []payments.HistoryItem `json:"history,omitempty"`
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Post("/payment-confirmations", h.create)
	r.Get("/payment-confirmations/{id}", h.get)
	r.Post("/payment-confirmations/{id}/confirm", h.action(h.Workflow.ConfirmPayment))
	r.Post("/payment-confirmations/{id}/reject", h.action(h.Workflow.RejectPayment))
	r.Post("/payment-confirmations/{id}/cancel", h.action(h.Workflow.CancelConfirmation))
	r.Post("/payment-confirmations/{id}/retry", h.action(h.Workflow.RetryConfirmation))
	r.Post("/payment-confirmations/{id}/paid", h.markPaid)
	r.Post("/payment-confirmations/{id}/refund", h.action(h.Workflow.Refund))
	r.Post("/payment-confirmations/process-rules", h.processRules)
}

func (h *PaymentsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateConfirmationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctype := payments.TypeManual
	if req.Type == string(payments.TypeAutomated) {
		ctype = payments.TypeAutomated
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Workflow.CreatePaymentConfirmation(ctx, req.PaymentRef, req.OrderRef, ctype)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *PaymentsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, hist, err := h.Workflow.GetConfirmation(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmationResp{Confirmation: c, History: hist})
}

// action: semua transisi punya bentuk request/response yang sama.
func (h *PaymentsHandler) action(fn func(ctx context.Context, id, actor, notes string) (payments.Confirmation, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConfirmationActionReq
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		actor := r.Header.Get("X-Actor")
		if actor == "" {
			actor = "admin"
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		c, err := fn(ctx, chi.URLParam(r, "id"), actor, req.Notes)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func (h *PaymentsHandler) markPaid(w http.ResponseWriter, r *http.Request) {
	actor := r.Header.Get("X-Actor")
	if actor == "" {
		actor = "admin"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.Workflow.MarkPaid(ctx, chi.URLParam(r, "id"), actor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *PaymentsHandler) processRules(w http.ResponseWriter, r *http.Request) {
	var req ProcessRulesReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.PaymentRef == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_ref required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Workflow.ProcessAutomatedConfirmationRules(ctx, req.PaymentRef, req.OrderRef)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
