package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"TickSentinel/internal/model"
)

// FormatAction formats one emitted action.
func FormatAction(a model.Action, fs model.FundState) string {
	var b strings.Builder
	icon := "🟢"
	switch a.Intent {
	case model.IntentAverage:
		icon = "🔵"
	case model.IntentClose:
		icon = "🔴"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s %s</b> | %s\n\n", icon, a.Intent, a.Symbol, a.Agent))
	b.WriteString(fmt.Sprintf("%s %.6g @ %.6g (≈ %.2f)\n", a.Side, a.Amount, a.Price, a.Notional()))
	if len(a.Reasons) > 0 {
		b.WriteString(fmt.Sprintf("Reasons: %s\n", strings.Join(a.Reasons, ", ")))
	}
	b.WriteString(fmt.Sprintf("Tick: %d\n", a.Tick))
	b.WriteString(fmt.Sprintf("Available: %.2f | Invested: %.2f | Banked: %.2f\n", fs.Available, fs.Invested, fs.BankedProfit))
	return b.String()
}

// FormatStats formats the running summary of one or more agents.
func FormatStats(stats []model.Stats) string {
	var b strings.Builder
	b.WriteString("📦 <b>Agent status</b>\n\n")
	if len(stats) == 0 {
		b.WriteString("No agents running.\n")
		return b.String()
	}
	for _, s := range stats {
		b.WriteString(fmt.Sprintf("<b>%s</b> (tick %d)\n", s.Agent, s.Tick))
		b.WriteString(fmt.Sprintf("  Equity: %.2f / %.2f\n", s.Equity, s.Fund.InitialCapital))
		b.WriteString(fmt.Sprintf("  Realized PnL: %+.2f | Trades: %d | Win rate: %.0f%%\n", s.Fund.RealizedPnL, s.Fund.Trades, s.WinRate()*100))
		b.WriteString(fmt.Sprintf("  Open positions: %d\n", s.OpenPositions))
	}
	return b.String()
}

// FormatPositions lists the open positions of one agent.
func FormatPositions(agent string, positions []model.Position, tick uint64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s positions</b>\n\n", agent))
	if len(positions) == 0 {
		b.WriteString("Flat.\n")
		return b.String()
	}
	for _, p := range positions {
		b.WriteString(fmt.Sprintf("  %s: %.6g @ %.6g (tier %d, age %d)\n", p.Symbol, p.Quantity, p.AvgPrice, p.Tier, p.Age(tick)))
	}
	return b.String()
}

// RankStats orders agents by realised PnL, then equity, then name.
func RankStats(stats []model.Stats) []model.Stats {
	ranked := append([]model.Stats(nil), stats...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Fund.RealizedPnL != b.Fund.RealizedPnL {
			return a.Fund.RealizedPnL > b.Fund.RealizedPnL
		}
		if a.Equity != b.Equity {
			return a.Equity > b.Equity
		}
		return a.Agent < b.Agent
	})
	return ranked
}

// FormatLeaderboard formats ranked stats for an epoch boundary.
func FormatLeaderboard(at time.Time, ranked []model.Stats) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🏆 <b>Leaderboard</b> | %s\n\n", at.Format("2006-01-02 15:04")))
	for i, s := range ranked {
		b.WriteString(fmt.Sprintf("%d. %s  %+.2f  (%d trades, %.0f%% wins)\n", i+1, s.Agent, s.Fund.RealizedPnL, s.Fund.Trades, s.WinRate()*100))
	}
	return b.String()
}

// FormatHalt reports an agent stopped by an invariant error.
func FormatHalt(agent string, tick uint64, err error) string {
	return fmt.Sprintf("❌ <b>Agent %s halted</b> at tick %d\n\n%v", agent, tick, err)
}
