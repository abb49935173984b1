package rpc

import (
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes bounds inbound envelope size.
const maxBodyBytes = 1 << 20

// Handler adapts the Dispatcher to net/http for the edge-style
// deployment: one stateless POST endpoint, bearer credential per
// request. Each request is handled independently; concurrent requests
// share only the pipeline's cache and dedup registries.
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler creates an http.Handler over the dispatcher.
func NewHandler(d *Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "reading request body", http.StatusBadRequest)
		return
	}

	out := h.dispatcher.Dispatch(r.Context(), body, bearerToken(r))

	w.Header().Set("Content-Type", "application/json")
	// Protocol errors ride inside the envelope with HTTP 200; the
	// transport never reports pipeline failures.
	_, _ = w.Write(out)
}

// bearerToken extracts the caller credential from the Authorization
// header. Empty when absent — the executor falls back to the
// environment-level default key.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
