package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"TickSentinel/internal/agent"
	"TickSentinel/internal/collector"
	"TickSentinel/internal/execution"
	"TickSentinel/internal/fund"
	"TickSentinel/internal/model"
	"TickSentinel/internal/notifier"
	"TickSentinel/internal/recorder"
)

const historyLimit = 10

// Scheduler drives the tournament: every tick job feeds one snapshot to all
// agents, every epoch job ranks them.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Agents    []*agent.Agent
	Submitter execution.Submitter
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	StateDir  string
	Ctx       context.Context

	log    zerolog.Logger
	haltMu sync.Mutex
	halted map[string]bool
}

// NewScheduler creates a new Scheduler. Overlapping tick runs are skipped.
func NewScheduler(ctx context.Context, col *collector.Collector, agents []*agent.Agent, sub execution.Submitter,
	n notifier.Notifier, rec recorder.Recorder, stateDir string, logger zerolog.Logger) *Scheduler {
	cl := cronLogger{log: logger}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		Collector: col,
		Agents:    agents,
		Submitter: sub,
		Notifier:  n,
		Recorder:  rec,
		StateDir:  stateDir,
		Ctx:       ctx,
		log:       logger,
		halted:    make(map[string]bool),
	}
}

// RegisterAll registers the tick and epoch jobs.
func (s *Scheduler) RegisterAll(tickCron, epochCron string) error {
	if _, err := s.Cron.AddFunc(tickCron, s.tickTask); err != nil {
		return fmt.Errorf("register tick task: %w", err)
	}
	if _, err := s.Cron.AddFunc(epochCron, s.epochTask); err != nil {
		return fmt.Errorf("register epoch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("agents", len(s.Agents)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunTickNow executes one tick immediately.
func (s *Scheduler) RunTickNow() error {
	return s.runTick()
}

// RunEpochNow publishes the leaderboard immediately.
func (s *Scheduler) RunEpochNow() {
	s.epochTask()
}

func (s *Scheduler) tickTask() {
	if err := s.runTick(); err != nil {
		s.log.Error().Err(err).Msg("tick failed")
	}
}

func (s *Scheduler) runTick() error {
	pt, err := s.Collector.Collect(s.Ctx)
	if err != nil {
		return err
	}
	for _, a := range s.Agents {
		s.tickAgent(a, pt)
	}
	return nil
}

func (s *Scheduler) tickAgent(a *agent.Agent, pt model.PriceTick) {
	act, err := a.OnTick(pt)
	if err != nil {
		s.halt(a, err)
		return
	}
	if act != nil {
		s.dispatch(a, *act, pt.At)
	}
	snap := a.Snapshot()
	if err := fund.SaveState(fund.StatePath(s.StateDir, a.Name), &snap); err != nil {
		s.log.Error().Err(err).Str("agent", a.Name).Msg("save state")
	}
}

// dispatch submits, records and announces one action. Submission failures
// are logged; the engine has already booked the fill at the decision price.
func (s *Scheduler) dispatch(a *agent.Agent, act model.Action, at time.Time) {
	logger := s.log.With().Str("agent", a.Name).Str("symbol", act.Symbol).Logger()
	if err := s.Submitter.Submit(s.Ctx, act); err != nil {
		if errors.Is(err, execution.ErrDustAmount) {
			logger.Warn().Err(err).Msg("order below venue precision")
		} else {
			logger.Error().Err(err).Msg("submit order")
		}
	}
	fs := a.Stats().Fund
	if err := s.Recorder.RecordAction(&recorder.ActionEvent{Action: act, Fund: fs, At: at}); err != nil {
		logger.Error().Err(err).Msg("record action")
	}
	s.trySend(notifier.FormatAction(act, fs))
}

func (s *Scheduler) halt(a *agent.Agent, err error) {
	s.haltMu.Lock()
	already := s.halted[a.Name]
	s.halted[a.Name] = true
	s.haltMu.Unlock()
	if already {
		return
	}

	tick := a.Stats().Tick
	s.log.Error().Err(err).Str("agent", a.Name).Uint64("tick", tick).Msg("agent halted")
	if rerr := s.Recorder.RecordHalt(&recorder.HaltEvent{Agent: a.Name, Tick: tick, Error: err.Error(), At: time.Now()}); rerr != nil {
		s.log.Error().Err(rerr).Msg("record halt")
	}
	s.trySend(notifier.FormatHalt(a.Name, tick, err))
}

func (s *Scheduler) stats() []model.Stats {
	out := make([]model.Stats, 0, len(s.Agents))
	for _, a := range s.Agents {
		out = append(out, a.Stats())
	}
	return out
}

func (s *Scheduler) epochTask() {
	now := time.Now()
	ranked := notifier.RankStats(s.stats())
	evts := make([]recorder.EpochEvent, 0, len(ranked))
	for i, st := range ranked {
		evts = append(evts, recorder.EpochEvent{
			Epoch:         now.Unix(),
			Rank:          i + 1,
			Agent:         st.Agent,
			Tick:          st.Tick,
			RealizedPnL:   st.Fund.RealizedPnL,
			Equity:        st.Equity,
			Trades:        st.Fund.Trades,
			WinRate:       st.WinRate(),
			OpenPositions: st.OpenPositions,
		})
	}
	if err := s.Recorder.RecordEpoch(evts); err != nil {
		s.log.Error().Err(err).Msg("record epoch")
	}
	s.log.Info().Int("agents", len(ranked)).Msg("epoch leaderboard published")
	s.trySend(notifier.FormatLeaderboard(now, ranked))
}

func (s *Scheduler) find(name string) *agent.Agent {
	for _, a := range s.Agents {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return usage()
	}
	switch fields[0] {
	case "/stats":
		return notifier.FormatStats(s.stats())
	case "/leaderboard":
		return notifier.FormatLeaderboard(time.Now(), notifier.RankStats(s.stats()))
	case "/positions":
		var b strings.Builder
		for _, a := range s.Agents {
			if len(fields) > 1 && a.Name != fields[1] {
				continue
			}
			b.WriteString(notifier.FormatPositions(a.Name, a.Positions(), a.Stats().Tick))
		}
		if b.Len() == 0 {
			return fmt.Sprintf("Unknown agent %q", fields[1])
		}
		return b.String()
	case "/history":
		if len(fields) < 2 {
			return "Usage: /history <agent>"
		}
		if s.find(fields[1]) == nil {
			return fmt.Sprintf("Unknown agent %q", fields[1])
		}
		acts, err := s.Recorder.RecentActions(fields[1], historyLimit)
		if err != nil {
			s.log.Error().Err(err).Msg("load history")
			return "History unavailable"
		}
		if len(acts) == 0 {
			return fmt.Sprintf("No actions recorded for %s", fields[1])
		}
		var b strings.Builder
		b.WriteString(fmt.Sprintf("📜 <b>%s history</b>\n\n", fields[1]))
		for _, act := range acts {
			b.WriteString(fmt.Sprintf("#%d %s %s %s %.6g @ %.6g [%s]\n", act.Tick, act.Intent, act.Side, act.Symbol, act.Amount, act.Price, strings.Join(act.Reasons, ",")))
		}
		return b.String()
	default:
		return usage()
	}
}

func usage() string {
	return "Commands:\n• /stats\n• /positions [agent]\n• /leaderboard\n• /history <agent>"
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
