package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr: map kategori error domain ke status HTTP.
func writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		code = http.StatusBadRequest
	case apperr.KindInvariant:
		code = http.StatusUnprocessableEntity
	case apperr.KindConflict:
		code = http.StatusConflict
	case apperr.KindNotFound:
		code = http.StatusNotFound
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
