package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"TickSentinel/internal/model"
)

func newTestNotifier(url string) *TelegramNotifier {
	tn := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	tn.APIBase = url
	tn.BaseBackoff = time.Millisecond
	return tn
}

func TestSendWithRetry(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	var last map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&last)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tn := newTestNotifier(srv.URL)
	if err := tn.SendWithRetry(context.Background(), "hello", 2); err != nil {
		t.Fatalf("SendWithRetry: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if last["chat_id"] != "42" || last["text"] != "hello" || last["parse_mode"] != "HTML" {
		t.Errorf("payload = %v", last)
	}
}

func TestSendWithRetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL).SendWithRetry(context.Background(), "x", 1)
	if err == nil || !strings.Contains(err.Error(), "all 2 retries exhausted") {
		t.Fatalf("expected exhausted error, got %v", err)
	}
}

func TestPollingDispatchesCommands(t *testing.T) {
	replies := make(chan string, 1)
	var served sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			first := false
			served.Do(func() { first = true })
			if first {
				fmt.Fprint(w, `{"ok":true,"result":[{"update_id":7,"message":{"text":" /stats "}},{"update_id":8}]}`)
				return
			}
			if r.URL.Query().Get("offset") != "9" {
				t.Errorf("offset = %s, want 9", r.URL.Query().Get("offset"))
			}
			<-r.Context().Done()
		case "/botTOKEN/sendMessage":
			var p map[string]string
			_ = json.NewDecoder(r.Body).Decode(&p)
			replies <- p["text"]
			fmt.Fprint(w, `{"ok":true}`)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		newTestNotifier(srv.URL).StartPolling(ctx, func(cmd string) string { return "got " + cmd })
		close(done)
	}()

	select {
	case reply := <-replies:
		if reply != "got /stats" {
			t.Errorf("reply = %q", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("polling did not stop")
	}
}

func TestFormatters(t *testing.T) {
	a := model.Action{Agent: "alpha", Tick: 20, Side: model.Sell, Intent: model.IntentClose, Symbol: "SOL", Amount: 12.5, Price: 90, Reasons: []string{"take_profit"}}
	msg := FormatAction(a, model.FundState{Available: 1000, BankedProfit: 125})
	for _, want := range []string{"CLOSE SOL", "take_profit", "1125.00", "Banked: 125.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("FormatAction missing %q:\n%s", want, msg)
		}
	}

	stats := []model.Stats{
		{Agent: "beta", Fund: model.FundState{RealizedPnL: -5, Trades: 2}},
		{Agent: "alpha", Fund: model.FundState{RealizedPnL: 12, Trades: 4, Wins: 3}},
		{Agent: "gamma", Fund: model.FundState{RealizedPnL: 12, Trades: 1, Wins: 1}, Equity: 5},
	}
	ranked := RankStats(stats)
	if ranked[0].Agent != "gamma" || ranked[1].Agent != "alpha" || ranked[2].Agent != "beta" {
		t.Fatalf("ranking = %v", ranked)
	}
	board := FormatLeaderboard(time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC), ranked)
	if !strings.Contains(board, "1. gamma") || !strings.Contains(board, "75% wins") {
		t.Errorf("leaderboard:\n%s", board)
	}

	if s := FormatPositions("alpha", nil, 3); !strings.Contains(s, "Flat") {
		t.Errorf("positions: %s", s)
	}
	if s := FormatStats(stats[:1]); !strings.Contains(s, "beta") {
		t.Errorf("stats: %s", s)
	}
}
