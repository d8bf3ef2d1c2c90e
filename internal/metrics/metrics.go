package metrics

import (
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"TickSentinel/internal/model"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Ticks processed per agent"},
		[]string{"agent"},
	)
	SkippedQuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "skipped_quotes_total", Help: "Malformed quotes dropped"},
		[]string{"agent"},
	)
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "actions_total", Help: "Actions emitted"},
		[]string{"agent", "side", "reason"},
	)
	OpenPositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "open_positions", Help: "Currently open positions"},
		[]string{"agent"},
	)
	RealizedPnL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "realized_pnl", Help: "Realised profit and loss in quote currency"},
		[]string{"agent"},
	)
	Equity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "equity", Help: "Marked-to-market equity in quote currency"},
		[]string{"agent"},
	)
	FetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fetch_errors_total", Help: "Failed tick fetches"},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, SkippedQuotesTotal, ActionsTotal, OpenPositions, RealizedPnL, Equity, FetchErrorsTotal)
}

// Observer feeds engine events into the collectors above.
type Observer struct{}

func (Observer) TickProcessed(agent string) { TicksTotal.WithLabelValues(agent).Inc() }

func (Observer) QuoteSkipped(agent, _ string) { SkippedQuotesTotal.WithLabelValues(agent).Inc() }

func (Observer) ActionEmitted(a model.Action) {
	ActionsTotal.WithLabelValues(a.Agent, string(a.Side), reasonLabel(a)).Inc()
}

func (Observer) StatsUpdated(s model.Stats) {
	OpenPositions.WithLabelValues(s.Agent).Set(float64(s.OpenPositions))
	RealizedPnL.WithLabelValues(s.Agent).Set(s.Fund.RealizedPnL)
	Equity.WithLabelValues(s.Agent).Set(s.Equity)
}

// reasonLabel keeps label cardinality bounded: exits use their rule name,
// entries and averaging use the intent.
func reasonLabel(a model.Action) string {
	if a.Intent == model.IntentClose && len(a.Reasons) > 0 {
		return a.Reasons[0]
	}
	return strings.ToLower(string(a.Intent))
}

// Serve exposes /metrics on addr in the background. Listen failures are logged.
func Serve(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	return srv
}
