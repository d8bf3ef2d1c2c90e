package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"TickSentinel/internal/model"
)

func sampleAction() model.Action {
	return model.Action{
		ID: "act-1", Agent: "alpha", Tick: 20, Side: model.Buy, Intent: model.IntentOpen,
		Symbol: "SOL", Amount: 12.3456789, Price: 80.123456, Reasons: []string{"zscore=-4.36<-2.50"},
	}
}

func TestLogSubmitterLogsOrder(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSubmitter(zerolog.New(&buf))
	if err := s.Submit(context.Background(), sampleAction()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "SOL") || !strings.Contains(out, "act-1") {
		t.Fatalf("log does not contain order: %s", out)
	}
}

func TestRESTSubmitterPayload(t *testing.T) {
	var got orderPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/orders" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewRESTSubmitter(srv.URL, "key", 4, 2, zerolog.Nop())
	if err := s.Submit(context.Background(), sampleAction()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Amount != "12.3456" || got.AmountUnit != "base" || got.ReferencePrice != "80.12" {
		t.Errorf("decimal fields = %+v", got)
	}
	if got.Side != "buy" || got.Type != "market" || got.ActionID != "act-1" {
		t.Errorf("payload = %+v", got)
	}
	if got.ClientOrderID != clientOrderID(sampleAction()) {
		t.Errorf("client order id not stable: %s", got.ClientOrderID)
	}
}

func TestRESTSubmitterRetries(t *testing.T) {
	var calls int32
	ids := make(chan string, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p orderPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		ids <- p.ClientOrderID
		if atomic.AddInt32(&calls, 1) < 2 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewRESTSubmitter(srv.URL, "", 6, 2, zerolog.Nop())
	if err := s.Submit(context.Background(), sampleAction()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if calls := atomic.LoadInt32(&calls); calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if first, second := <-ids, <-ids; first != second {
		t.Errorf("retry changed client order id: %s vs %s", first, second)
	}
}

func TestRESTSubmitterRejects(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "insufficient balance", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewRESTSubmitter(srv.URL, "", 6, 2, zerolog.Nop())
	err := s.Submit(context.Background(), sampleAction())
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected 400 error, got %v", err)
	}
	if calls := atomic.LoadInt32(&calls); calls != 1 {
		t.Errorf("client error retried %d times", calls)
	}

	dust := sampleAction()
	dust.Amount = 0.00001
	if err := NewRESTSubmitter(srv.URL, "", 2, 2, zerolog.Nop()).Submit(context.Background(), dust); !errors.Is(err, ErrDustAmount) {
		t.Errorf("expected ErrDustAmount, got %v", err)
	}
}
