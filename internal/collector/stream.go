package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"TickSentinel/internal/model"
)

type subscribeMsg struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

type streamQuote struct {
	quote model.Quote
	at    time.Time
}

// StreamFetcher keeps the latest quote per symbol from a websocket feed.
// Run maintains the connection; FetchTick reads the latest snapshot.
type StreamFetcher struct {
	URL     string
	Symbols []string
	// MaxAge drops quotes older than this from FetchTick. Zero keeps all.
	MaxAge time.Duration

	log    zerolog.Logger
	mu     sync.RWMutex
	latest map[string]streamQuote
}

func NewStreamFetcher(wsURL string, symbols []string, maxAge time.Duration, logger zerolog.Logger) *StreamFetcher {
	return &StreamFetcher{
		URL:     wsURL,
		Symbols: append([]string(nil), symbols...),
		MaxAge:  maxAge,
		log:     logger,
		latest:  make(map[string]streamQuote),
	}
}

func (f *StreamFetcher) Name() string { return "stream" }

// FetchTick returns the latest quote of each requested symbol seen so far.
func (f *StreamFetcher) FetchTick(_ context.Context, symbols []string) (model.PriceTick, error) {
	now := time.Now()
	tick := model.PriceTick{At: now, Quotes: make(map[string]model.Quote, len(symbols))}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sym := range symbols {
		sq, ok := f.latest[sym]
		if !ok {
			continue
		}
		if f.MaxAge > 0 && now.Sub(sq.at) > f.MaxAge {
			continue
		}
		tick.Quotes[sym] = sq.quote
	}
	return tick, nil
}

// Run connects and reconnects with backoff until ctx is cancelled.
func (f *StreamFetcher) Run(ctx context.Context) error {
	if len(f.Symbols) == 0 {
		return fmt.Errorf("stream fetcher requires at least one symbol")
	}
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Dur("backoff", backoff).Msg("quote stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *StreamFetcher) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribeMsg{Op: "subscribe", Symbols: f.Symbols}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	f.log.Info().Str("url", f.URL).Strs("symbols", f.Symbols).Msg("connected quote stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("stream ping failed")
					return
				}
			case <-pingCtx.Done():
				conn.Close()
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		var row quoteRow
		if err := json.Unmarshal(message, &row); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode stream message")
			continue
		}
		if row.Symbol == "" {
			continue
		}
		q, err := row.quote()
		if err != nil {
			f.log.Warn().Err(err).Msg("dropping stream quote")
			continue
		}
		f.mu.Lock()
		f.latest[row.Symbol] = streamQuote{quote: q, at: time.Now()}
		f.mu.Unlock()
	}
}
