package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"TickSentinel/internal/model"
)

// RESTFetcher polls a quotes endpoint once per tick.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	log     zerolog.Logger
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, logger zerolog.Logger) *RESTFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &RESTFetcher{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		log: logger,
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// FetchTick requests all symbols in one call. Rows with unusable prices are
// dropped individually; the rest of the tick is kept.
func (f *RESTFetcher) FetchTick(ctx context.Context, symbols []string) (model.PriceTick, error) {
	endpoint := fmt.Sprintf("%s/api/v1/quotes?symbols=%s", f.BaseURL, url.QueryEscape(strings.Join(symbols, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.PriceTick{}, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return model.PriceTick{}, fmt.Errorf("fetch quotes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.PriceTick{}, fmt.Errorf("fetch quotes: status %d, body: %s", resp.StatusCode, string(body))
	}
	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return model.PriceTick{}, fmt.Errorf("decode quotes: %w", err)
	}

	tick := model.PriceTick{At: time.Now(), Quotes: make(map[string]model.Quote, len(rows))}
	for _, raw := range rows {
		var row quoteRow
		if err := json.Unmarshal(raw, &row); err != nil {
			f.log.Warn().Err(err).Str("row", string(raw)).Msg("dropping malformed quote row")
			continue
		}
		if row.Symbol == "" {
			continue
		}
		q, err := row.quote()
		if err != nil {
			f.log.Warn().Err(err).Msg("dropping quote")
			continue
		}
		tick.Quotes[row.Symbol] = q
	}
	return tick, nil
}
