package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lawnledger/internal/core"
	"lawnledger/internal/ledger"
	"lawnledger/internal/services"
	"lawnledger/internal/storage"
	"lawnledger/internal/voice"
)

var fixedNow = time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, parser *voice.Parser, opts Options) *Server {
	t.Helper()
	n := 0
	l, err := ledger.Open(context.Background(), storage.NewMemoryStore(),
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithIDGenerator(func() core.ID {
			n++
			return core.ID(fmt.Sprintf("id-%d", n))
		}))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	srv := NewServer(":0", services.NewLedgerService(l, parser, nil), opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		if strings.HasPrefix(body, "{") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return v
}

const mowJSON = `{"description":"Mow Smith","amount":45,"date":"2024-05-20","type":"income"}`

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	notReady := newTestServer(t, nil, Options{
		Ready: func(context.Context) error { return errors.New("store down") },
	})
	if rr := do(notReady, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
}

func TestSecurityHeadersAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	rr := do(srv, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rr.Code)
	}
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "X-Request-Id"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestCreateTransaction(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"json", mowJSON},
		{"form", "description=Mow+Smith&amount=45.00&date=2024-05-20&type=income"},
		{"kind defaults to income", `{"description":"Mow Smith","amount":"45","date":"2024-05-20"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil, Options{})
			rr := do(srv, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != http.StatusCreated {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Header().Get("HX-Trigger"), TriggerTransactionCreated) {
				t.Errorf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
			}
			tx := decode[core.Transaction](t, rr)
			if tx.ID != "id-1" || tx.Kind != core.Income || tx.Amount.Cents != 4500 || tx.Date.String() != "2024-05-20" {
				t.Errorf("unexpected transaction %+v", tx)
			}
		})
	}
}

func TestCreateTransaction_Validation(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	bodies := []string{
		`{"description":"","amount":45,"date":"2024-05-20"}`,
		`{"description":"Mow","amount":0,"date":"2024-05-20"}`,
		`{"description":"Mow","amount":"abc","date":"2024-05-20"}`,
		`{"description":"Mow","amount":45,"date":"2024-02-30"}`,
		`{"description":"Mow","amount":45,"date":"2024-05-20","type":"gift"}`,
	}
	for _, body := range bodies {
		rr := do(srv, http.MethodPost, "/api/transactions", body)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status=%d, want 422", body, rr.Code)
		}
		if rr.Header().Get("HX-Trigger") != "" {
			t.Errorf("%s: rejected submission should not trigger", body)
		}
	}

	if rr := do(srv, http.MethodPost, "/api/transactions", `{"broken`); rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body status=%d, want 400", rr.Code)
	}

	txs := decode[[]core.Transaction](t, do(srv, http.MethodGet, "/api/transactions", ""))
	if len(txs) != 0 {
		t.Fatalf("rejected submissions were stored: %+v", txs)
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	do(srv, http.MethodPost, "/api/transactions", mowJSON)

	rr := do(srv, http.MethodPut, "/api/transactions/id-1",
		`{"description":"Gas","amount":"12.50","date":"2024-05-21","type":"expense"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), TriggerTransactionUpdated) {
		t.Errorf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
	}
	tx := decode[core.Transaction](t, rr)
	if tx.ID != "id-1" || tx.Kind != core.Expense || tx.Amount.Cents != 1250 {
		t.Errorf("unexpected transaction %+v", tx)
	}

	if rr := do(srv, http.MethodGet, "/api/transactions/id-1", ""); rr.Code != http.StatusOK {
		t.Errorf("get status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodPut, "/api/transactions/missing", mowJSON); rr.Code != http.StatusNotFound {
		t.Errorf("update missing status=%d, want 404", rr.Code)
	}

	rr = do(srv, http.MethodDelete, "/api/transactions/id-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), TriggerTransactionDeleted) {
		t.Errorf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
	}
	if rr := do(srv, http.MethodDelete, "/api/transactions/id-1", ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d, want 404", rr.Code)
	}
}

func TestVoice(t *testing.T) {
	srv := newTestServer(t, voice.NewParser(), Options{})

	rr := do(srv, http.MethodPost, "/api/voice", `{"transcript":"made 50 for mowing lawn"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	tx := decode[core.Transaction](t, rr)
	if tx.Description != "mowing lawn" || tx.Kind != core.Income || tx.Amount.Cents != 5000 || tx.Date.String() != "2024-05-20" {
		t.Errorf("unexpected transaction %+v", tx)
	}

	rr = do(srv, http.MethodPost, "/api/voice", `{"transcript":"hello there"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), TriggerShowNotification) {
		t.Errorf("parse failure should raise a notification, HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
	}
	if body := decode[errorBody](t, rr); body.Transcript != "hello there" {
		t.Errorf("transcript = %q, want echo", body.Transcript)
	}

	txs := decode[[]core.Transaction](t, do(srv, http.MethodGet, "/api/transactions", ""))
	if len(txs) != 1 {
		t.Errorf("len(transactions) = %d, want 1", len(txs))
	}
}

func TestVoiceUnavailable(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	if rr := do(srv, http.MethodPost, "/api/voice", `{"transcript":"made 50"}`); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rr.Code)
	}
	caps := decode[services.Capabilities](t, do(srv, http.MethodGet, "/api/capabilities", ""))
	if caps.Voice || caps.Advisory == "" {
		t.Errorf("capabilities = %+v", caps)
	}
}

func TestView(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	do(srv, http.MethodPost, "/api/transactions", mowJSON)
	do(srv, http.MethodPost, "/api/transactions", `{"description":"Gas","amount":"12.50","date":"2024-05-03","type":"expense"}`)
	do(srv, http.MethodPost, "/api/transactions", `{"description":"Edging","amount":30,"date":"2024-06-02","type":"income"}`)

	rr := do(srv, http.MethodGet, "/api/view", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	view := decode[ViewResponse](t, rr)
	if view.Range.Start.String() != "2024-05-01" || view.Range.End.String() != "2024-05-31" {
		t.Errorf("default range = %s, want current month", view.Range)
	}
	if len(view.InRange) != 2 || view.NetTotal.Cents != 3250 {
		t.Errorf("in range %d, net %d", len(view.InRange), view.NetTotal.Cents)
	}
	if len(view.PerDay) != 31 {
		t.Errorf("per-day entries = %d, want 31", len(view.PerDay))
	}

	view = decode[ViewResponse](t, do(srv, http.MethodGet, "/api/view?start=2024-05-01&end=2024-06-30&type=income", ""))
	if len(view.Filtered) != 2 || view.NetTotal.Cents != 7500 || len(view.Events) != 2 {
		t.Errorf("income view: filtered %d, net %d, events %d", len(view.Filtered), view.NetTotal.Cents, len(view.Events))
	}

	view = decode[ViewResponse](t, do(srv, http.MethodGet, "/api/view?start=2024-05-31&end=2024-05-01", ""))
	if len(view.InRange) != 0 || view.NetTotal.Cents != 0 {
		t.Errorf("inverted range should be empty: %+v", view)
	}

	for _, q := range []string{"?start=2024-13-01&end=2024-05-01", "?type=gifts", "?period=year"} {
		if rr := do(srv, http.MethodGet, "/api/view"+q, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s status=%d, want 400", q, rr.Code)
		}
	}
}

func TestViewCache(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	do(srv, http.MethodPost, "/api/transactions", mowJSON)

	first := decode[ViewResponse](t, do(srv, http.MethodGet, "/api/view?period=day", ""))
	do(srv, http.MethodGet, "/api/view?period=day", "")
	if hits := srv.viewCache.Stats().Hits; hits != 1 {
		t.Errorf("cache hits = %d, want 1", hits)
	}

	do(srv, http.MethodPost, "/api/transactions", `{"description":"Trim","amount":20,"date":"2024-05-20"}`)
	second := decode[ViewResponse](t, do(srv, http.MethodGet, "/api/view?period=day", ""))
	if second.Version == first.Version || second.NetTotal.Cents != 6500 {
		t.Errorf("view after mutation is stale: %+v", second)
	}
}

func TestTemplates(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	tpl := `{"description":"Mow Smith","amount":45,"type":"income","client":"Smith"}`

	rr := do(srv, http.MethodPost, "/api/templates", tpl)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), TriggerTemplateChanged) {
		t.Errorf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
	}

	rr = do(srv, http.MethodPost, "/api/templates", tpl)
	if rr.Code != http.StatusOK || decode[templateResponse](t, rr).Added {
		t.Errorf("duplicate template: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(srv, http.MethodPost, "/api/templates/use", tpl)
	if rr.Code != http.StatusCreated {
		t.Fatalf("use status=%d", rr.Code)
	}
	if tx := decode[core.Transaction](t, rr); tx.Date.String() != "2024-05-20" || tx.Client != "Smith" {
		t.Errorf("template use produced %+v", tx)
	}

	tps := decode[[]core.Template](t, do(srv, http.MethodGet, "/api/templates", ""))
	if len(tps) != 1 {
		t.Fatalf("len(templates) = %d, want 1", len(tps))
	}

	if rr := do(srv, http.MethodDelete, "/api/templates", tpl); rr.Code != http.StatusOK {
		t.Errorf("remove status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodDelete, "/api/templates", tpl); rr.Code != http.StatusNotFound {
		t.Errorf("second remove status=%d, want 404", rr.Code)
	}
}

func TestHistory(t *testing.T) {
	srv := newTestServer(t, nil, Options{HistoryLimit: 2})
	for i := 1; i <= 3; i++ {
		do(srv, http.MethodPost, "/api/transactions",
			fmt.Sprintf(`{"description":"Job %d","amount":10,"date":"2024-05-0%d"}`, i, i))
	}

	txs := decode[[]core.Transaction](t, do(srv, http.MethodGet, "/api/history", ""))
	if len(txs) != 2 || txs[0].ID != "id-3" {
		t.Errorf("history = %+v, want 2 newest first", txs)
	}
	txs = decode[[]core.Transaction](t, do(srv, http.MethodGet, "/api/history?limit=1", ""))
	if len(txs) != 1 || txs[0].ID != "id-3" {
		t.Errorf("history limit=1 = %+v", txs)
	}
	if rr := do(srv, http.MethodGet, "/api/history?limit=abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", rr.Code)
	}
}

func TestRateLimitOnlyMutations(t *testing.T) {
	srv := newTestServer(t, nil, Options{RequestsPerMinute: 2})
	for i := 0; i < 2; i++ {
		if rr := do(srv, http.MethodPost, "/api/transactions", mowJSON); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(srv, http.MethodPost, "/api/transactions", mowJSON)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rr := do(srv, http.MethodGet, "/api/transactions", ""); rr.Code != http.StatusOK {
		t.Errorf("reads must not be limited, status=%d", rr.Code)
	}
	if stats := srv.metrics.snapshot(); stats.RateLimitHits != 1 {
		t.Errorf("rate limit hits = %d, want 1", stats.RateLimitHits)
	}
}
