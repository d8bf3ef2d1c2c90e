package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"TickSentinel/internal/model"
)

// ErrDustAmount is returned when an amount truncates to zero at the venue precision.
var ErrDustAmount = errors.New("amount below venue precision")

// orderPayload is the venue request body. Amount is always base-asset quantity.
type orderPayload struct {
	ClientOrderID  string   `json:"client_order_id"`
	ActionID       string   `json:"action_id"`
	Agent          string   `json:"agent"`
	Symbol         string   `json:"symbol"`
	Side           string   `json:"side"`
	Type           string   `json:"type"`
	Amount         string   `json:"amount"`
	AmountUnit     string   `json:"amount_unit"`
	ReferencePrice string   `json:"reference_price"`
	Reasons        []string `json:"reason_tags,omitempty"`
}

// RESTSubmitter posts market orders as JSON with decimal-string amounts.
type RESTSubmitter struct {
	BaseURL         string
	APIKey          string
	AmountPrecision int32
	PricePrecision  int32
	MaxRetries      int
	Client          *http.Client
	log             zerolog.Logger
}

func NewRESTSubmitter(baseURL, apiKey string, amountPrecision, pricePrecision int32, logger zerolog.Logger) *RESTSubmitter {
	return &RESTSubmitter{
		BaseURL:         strings.TrimSuffix(baseURL, "/"),
		APIKey:          apiKey,
		AmountPrecision: amountPrecision,
		PricePrecision:  pricePrecision,
		MaxRetries:      2,
		Client:          &http.Client{Timeout: 15 * time.Second},
		log:             logger,
	}
}

// clientOrderID derives a stable id from the action so retries stay idempotent.
func clientOrderID(a model.Action) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(a.Agent+"/"+a.ID)).String()
}

func (s *RESTSubmitter) payload(a model.Action) (orderPayload, error) {
	// Truncate rather than round so the venue never receives more than was reserved.
	amount := decimal.NewFromFloat(a.Amount).Truncate(s.AmountPrecision)
	if !amount.IsPositive() {
		return orderPayload{}, fmt.Errorf("%w: %s %v", ErrDustAmount, a.Symbol, a.Amount)
	}
	return orderPayload{
		ClientOrderID:  clientOrderID(a),
		ActionID:       a.ID,
		Agent:          a.Agent,
		Symbol:         a.Symbol,
		Side:           strings.ToLower(string(a.Side)),
		Type:           "market",
		Amount:         amount.String(),
		AmountUnit:     "base",
		ReferencePrice: decimal.NewFromFloat(a.Price).Round(s.PricePrecision).String(),
		Reasons:        a.Reasons,
	}, nil
}

// Submit posts the order, retrying transport errors and 5xx responses with
// exponential backoff under the same client order id.
func (s *RESTSubmitter) Submit(ctx context.Context, a model.Action) error {
	p, err := s.payload(a)
	if err != nil {
		return err
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	var lastErr error
	for i := 0; i <= s.MaxRetries; i++ {
		retry, err := s.post(ctx, body)
		if err == nil {
			s.log.Info().Str("client_order_id", p.ClientOrderID).Str("sym", p.Symbol).
				Str("side", p.Side).Str("amount", p.Amount).Msg("order accepted")
			return nil
		}
		lastErr = err
		if !retry || i == s.MaxRetries {
			break
		}
		backoff := time.Duration(1<<uint(i)) * 200 * time.Millisecond
		s.log.Warn().Err(err).Int("attempt", i+1).Dur("backoff", backoff).Msg("order submit failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("submit %s %s: %w", p.Side, p.Symbol, lastErr)
}

func (s *RESTSubmitter) post(ctx context.Context, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 2 {
		return false, nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return resp.StatusCode >= 500, fmt.Errorf("order API error: status %d, body: %s", resp.StatusCode, string(respBody))
}
