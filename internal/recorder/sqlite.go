package recorder

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"TickSentinel/internal/model"
)

// SQLiteRecorder persists actions and leaderboards to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while agents write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS actions (
			id             TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			agent          TEXT NOT NULL,
			tick           INTEGER NOT NULL,
			side           TEXT NOT NULL,
			intent         TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			amount         REAL,
			price          REAL,
			reason_tags    TEXT,
			available      REAL,
			invested       REAL,
			banked_profit  REAL,
			realized_pnl   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_agent_tick ON actions(agent, tick)`,

		`CREATE TABLE IF NOT EXISTS epoch_leaderboard (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			epoch          INTEGER NOT NULL,
			rank           INTEGER NOT NULL,
			agent          TEXT NOT NULL,
			tick           INTEGER,
			realized_pnl   REAL,
			equity         REAL,
			trades         INTEGER,
			win_rate       REAL,
			open_positions INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_epoch ON epoch_leaderboard(epoch)`,

		`CREATE TABLE IF NOT EXISTS agent_halts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			agent     TEXT NOT NULL,
			tick      INTEGER,
			error     TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAction(evt *ActionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	a := evt.Action
	_, err := r.db.Exec(`INSERT INTO actions
		(id, timestamp, agent, tick, side, intent, symbol, amount, price, reason_tags,
		 available, invested, banked_profit, realized_pnl)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, at.Unix(), a.Agent, int64(a.Tick), string(a.Side), string(a.Intent), a.Symbol,
		a.Amount, a.Price, strings.Join(a.Reasons, ","),
		evt.Fund.Available, evt.Fund.Invested, evt.Fund.BankedProfit, evt.Fund.RealizedPnL,
	)
	return err
}

// RecordEpoch writes one leaderboard in a single transaction.
func (r *SQLiteRecorder) RecordEpoch(evts []EpochEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	for _, e := range evts {
		if _, err := tx.Exec(`INSERT INTO epoch_leaderboard
			(epoch, rank, agent, tick, realized_pnl, equity, trades, win_rate, open_positions)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			e.Epoch, e.Rank, e.Agent, int64(e.Tick), e.RealizedPnL, e.Equity, e.Trades, e.WinRate, e.OpenPositions,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert epoch row %s: %w", e.Agent, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordHalt(evt *HaltEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO agent_halts (timestamp, agent, tick, error) VALUES (?,?,?,?)`,
		at.Unix(), evt.Agent, int64(evt.Tick), evt.Error,
	)
	return err
}

// RecentActions returns the latest actions of an agent, newest first.
func (r *SQLiteRecorder) RecentActions(agent string, limit int) ([]model.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, agent, tick, side, intent, symbol, amount, price, reason_tags
		FROM actions WHERE agent = ? ORDER BY tick DESC LIMIT ?`, agent, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Action
	for rows.Next() {
		var (
			a            model.Action
			tick         int64
			side, intent string
			tags         string
		)
		if err := rows.Scan(&a.ID, &a.Agent, &tick, &side, &intent, &a.Symbol, &a.Amount, &a.Price, &tags); err != nil {
			return nil, err
		}
		a.Tick = uint64(tick)
		a.Side = model.Side(side)
		a.Intent = model.Intent(intent)
		if tags != "" {
			a.Reasons = strings.Split(tags, ",")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
