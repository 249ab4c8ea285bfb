package revalidate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestHandler(t *testing.T, rb Rebuilder, apiKey string, rate float64) *Handler {
	t.Helper()
	c, _ := newTestCoordinator(t, rb)
	var limiter *RateLimiter
	if rate > 0 {
		limiter = NewRateLimiter(rate)
	}
	return NewHandler(c, limiter, apiKey)
}

func doRequest(h *Handler, method, body, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/revalidate", strings.NewReader(body))
	if apiKey != "" {
		req.Header.Set(APIKeyHeader, apiKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRevalidatesAll(t *testing.T) {
	h := newTestHandler(t, &recordingRebuilder{}, "secret", 0)

	rec := doRequest(h, http.MethodPost, "", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Revalidated all pages") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHandlerRevalidatesNamedPaths(t *testing.T) {
	rb := &recordingRebuilder{}
	h := newTestHandler(t, rb, "", 0)

	rec := doRequest(h, http.MethodPost, `{"paths": ["/about", "/blog/hi"]}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"2 route(s)", "about", "blog/[slug]"} {
		if !strings.Contains(body, want) {
			t.Errorf("body = %q, want it to mention %q", body, want)
		}
	}
	if len(rb.routeCalls) != 1 {
		t.Errorf("RebuildRoutes called %d times, want 1", len(rb.routeCalls))
	}
}

func TestHandlerRejectsWrongMethod(t *testing.T) {
	h := newTestHandler(t, &recordingRebuilder{}, "", 0)

	rec := doRequest(h, http.MethodGet, "", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q, want POST", allow)
	}
}

func TestHandlerRejectsBadKey(t *testing.T) {
	h := newTestHandler(t, &recordingRebuilder{}, "secret", 0)

	for _, key := range []string{"", "wrong"} {
		rec := doRequest(h, http.MethodPost, "", key)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("key %q: status = %d, want 401", key, rec.Code)
		}
	}
}

func TestHandlerRateLimits(t *testing.T) {
	h := newTestHandler(t, &recordingRebuilder{}, "", 1)

	if rec := doRequest(h, http.MethodPost, "", ""); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	if rec := doRequest(h, http.MethodPost, "", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", rec.Code)
	}
}

func TestHandlerBusyConflict(t *testing.T) {
	rb := &recordingRebuilder{block: make(chan struct{})}
	h := newTestHandler(t, rb, "", 0)

	done := make(chan struct{})
	go func() {
		doRequest(h, http.MethodPost, "", "")
		close(done)
	}()

	for !h.coordinator.Busy() {
		time.Sleep(time.Millisecond)
	}

	rec := doRequest(h, http.MethodPost, "", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}

	close(rb.block)
	<-done
}

func TestHandlerRejectsHostileBody(t *testing.T) {
	h := newTestHandler(t, &recordingRebuilder{}, "", 0)

	rec := doRequest(h, http.MethodPost, `{"paths": ["../../etc/passwd"]}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rejected:") {
		t.Errorf("body = %q, want per-path rejection report", rec.Body.String())
	}

	rec = doRequest(h, http.MethodPost, `{not json`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: status = %d, want 400", rec.Code)
	}
}

func TestHandlerInternalErrorOnRebuildFailure(t *testing.T) {
	c, _ := newTestCoordinator(t, failingRebuilder{})
	h := NewHandler(c, nil, "")

	rec := doRequest(h, http.MethodPost, "", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

type failingRebuilder struct{}

func (failingRebuilder) RebuildAll(context.Context) error {
	return context.DeadlineExceeded
}

func (failingRebuilder) RebuildRoutes(context.Context, []string) error {
	return context.DeadlineExceeded
}
