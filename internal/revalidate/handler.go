package revalidate

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/BouyguesTelecom/static.js-sub000/internal/errors"
)

// APIKeyHeader carries the shared revalidation secret.
const APIKeyHeader = "X-API-Key"

// maxBodyBytes bounds the request body a revalidation call may carry.
const maxBodyBytes = 64 << 10

// request is the accepted JSON body. An absent or empty body means
// "revalidate everything".
type request struct {
	Paths []string `json:"paths"`
}

// Handler exposes a Coordinator over HTTP.
type Handler struct {
	coordinator *Coordinator
	limiter     *RateLimiter
	apiKey      string
}

// NewHandler creates the revalidation endpoint. An empty apiKey
// disables authentication, which is only sensible on the dev server.
func NewHandler(c *Coordinator, limiter *RateLimiter, apiKey string) *Handler {
	return &Handler{coordinator: c, limiter: limiter, apiKey: apiKey}
}

// ServeHTTP implements POST /revalidate.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.apiKey != "" {
		key := r.Header.Get(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
	}

	if h.limiter != nil && !h.limiter.Allow() {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	var req request
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	result, err := h.coordinator.Revalidate(r.Context(), req.Paths)
	if err != nil {
		status := http.StatusInternalServerError
		var appErr *errors.Error
		if errors.As(err, &appErr) && appErr.Code == "E300" {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if result.All() {
		fmt.Fprintln(w, "Revalidated all pages")
		return
	}

	// Nothing survived validation, so nothing was rebuilt.
	if len(result.Routes) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "No valid paths to revalidate")
		writeRejected(w, result.Rejected)
		return
	}

	fmt.Fprintf(w, "Revalidated %d route(s):\n", len(result.Routes))
	for _, name := range result.Routes {
		fmt.Fprintf(w, "  %s\n", name)
	}
	writeRejected(w, result.Rejected)
}

func writeRejected(w io.Writer, rejected []string) {
	for _, r := range rejected {
		fmt.Fprintf(w, "rejected: %s\n", r)
	}
}
