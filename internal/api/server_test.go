package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/pacer/internal/dispatch"
	"github.com/vietddude/pacer/internal/infra/storage/memory"
	"github.com/vietddude/pacer/internal/pacing"
	"github.com/vietddude/pacer/internal/pagemap"
	"github.com/vietddude/pacer/internal/runner"
)

type stubRunner struct {
	failures int
	calls    int
}

func (s *stubRunner) Name() string { return "stub" }

func (s *stubRunner) Perform(ctx context.Context, req *runner.Request) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("storefront timeout")
	}
	return nil
}

func testServer(t *testing.T, failures int) (*Server, *stubRunner) {
	t.Helper()

	pages, err := pagemap.ParseReader(strings.NewReader("PAGE_TYPE,URL\ncart,/cart\n"), pagemap.Config{
		BaseURL: "https://www-dev.storefront.example/",
	})
	if err != nil {
		t.Fatal(err)
	}

	sr := &stubRunner{failures: failures}
	history := memory.NewDispatchRepo()

	d := dispatch.New(dispatch.Config{
		Controller: pacing.NewController(pacing.Config{Tracker: pacing.NewMemoryTracker()}),
		Policy: pacing.Policy{
			Strategy:   pacing.StrategyLinear,
			BaseDelay:  time.Millisecond,
			MaxRetries: pacing.Retries(3),
		},
		Runner:  sr,
		Pages:   pages,
		History: history,
		Queue:   memory.NewFailedDispatchRepo(),
	})

	return NewServer(Config{Port: 0, Dispatcher: d, History: history}), sr
}

func postEvent(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleDispatch_Success(t *testing.T) {
	s, _ := testServer(t, 0)

	rec := postEvent(t, s, `{
		"subject_id": "cust-1",
		"operation": "update",
		"event": {"event": "Mini-Cart Viewed", "page_type": "cart"}
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp dispatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "succeeded" {
		t.Errorf("Status = %q, want succeeded", resp.Status)
	}
	if resp.TargetURL != "https://www-dev.storefront.example/cart" {
		t.Errorf("TargetURL = %q", resp.TargetURL)
	}
}

func TestHandleDispatch_Validation(t *testing.T) {
	s, sr := testServer(t, 0)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing subject", `{"event": {"page_type": "cart"}}`},
		{"missing event", `{"subject_id": "cust-1"}`},
		{"unknown operation", `{"subject_id": "cust-1", "operation": "explode", "event": {"page_type": "cart"}}`},
		{"unknown preset", `{"subject_id": "cust-1", "policy": "turbo", "event": {"page_type": "cart"}}`},
		{"preset and custom", `{"subject_id": "cust-1", "policy": "bulk", "custom_policy": {"strategy": "linear", "base_delay": 1000000}, "event": {"page_type": "cart"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postEvent(t, s, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}

	if sr.calls != 0 {
		t.Errorf("runner called %d times for invalid requests", sr.calls)
	}
}

func TestHandleDispatch_TransientFailureIsBadGateway(t *testing.T) {
	s, _ := testServer(t, 10)

	rec := postEvent(t, s, `{
		"subject_id": "cust-1",
		"operation": "cancel",
		"event": {"event": "Checkout", "page_type": "cart"}
	}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	var resp dispatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "retrying" {
		t.Errorf("Status = %q, want retrying", resp.Status)
	}
}

func TestHandleDispatches_List(t *testing.T) {
	s, _ := testServer(t, 0)

	postEvent(t, s, `{"subject_id": "cust-1", "event": {"page_type": "cart"}}`)
	postEvent(t, s, `{"subject_id": "cust-2", "event": {"page_type": "cart"}}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/dispatches?limit=1", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Dispatches []dispatchResponse `json:"dispatches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Dispatches) != 1 {
		t.Errorf("got %d dispatches, want 1", len(resp.Dispatches))
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := testServer(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
