package payments

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
)

type Handler struct {
	log *slog.Logger
}

func NewHandler(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP показывает квитанцию по mock-платежу: /payments/receipt?ref=mock-...
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("missing ref parameter"))
		return
	}
	if !strings.HasPrefix(ref, "mock-") {
		h.log.Warn("unknown payment reference", "ref", ref)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("unknown payment reference"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w,
		"<html><body><h1>Payment received</h1><p>Reference %s. Your coffee subscription is active.</p></body></html>",
		html.EscapeString(ref),
	)
}
