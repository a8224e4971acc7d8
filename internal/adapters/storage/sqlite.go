package storage

// sqlite.go: backend alternativo al JSON para portfolio y decisiones.
//
// Estrategia:
//   - `portfolio`: una sola fila (id = 1) con capital, total_pnl y created_at.
//   - `positions`: abiertas y cerradas; se reescriben enteras en cada Save dentro
//     de una transacción, así el snapshot sigue siendo atómico por ciclo.
//   - `decisions`: append-only, nunca se actualiza ni se borra.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/predbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS portfolio (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    capital    REAL NOT NULL,
    total_pnl  REAL NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
    id           TEXT PRIMARY KEY,
    seq          INTEGER NOT NULL,
    market_id    TEXT NOT NULL,
    market_title TEXT,
    side         TEXT NOT NULL,
    strategy     TEXT,
    entry_prob   REAL NOT NULL,
    size         REAL NOT NULL,
    entry_time   TEXT NOT NULL,
    status       TEXT NOT NULL,
    exit_prob    REAL,
    outcome      TEXT,
    close_reason TEXT,
    pnl          REAL,
    exit_time    TEXT
);

CREATE TABLE IF NOT EXISTS decisions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    ts           TEXT NOT NULL,
    market_id    TEXT NOT NULL,
    market_title TEXT,
    edge_type    TEXT NOT NULL,
    side         TEXT NOT NULL,
    edge         REAL NOT NULL,
    confidence   REAL NOT NULL,
    executed     INTEGER NOT NULL,
    stake        REAL NOT NULL DEFAULT 0,
    position_id  TEXT,
    reason       TEXT,
    rationale    TEXT
);

CREATE INDEX IF NOT EXISTS idx_positions_seq ON positions(seq);
CREATE INDEX IF NOT EXISTS idx_decisions_ts  ON decisions(ts);
`

// SQLiteStore implementa ports.PortfolioStore y ports.DecisionLog usando SQLite
// (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close cierra la conexión.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load lee el portfolio. Devuelve domain.ErrPortfolioNotFound si no hay ninguno guardado.
func (s *SQLiteStore) Load(ctx context.Context) (*domain.Portfolio, error) {
	var createdAt string
	p := &domain.Portfolio{Positions: []domain.Position{}, ClosedPositions: []domain.Position{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT capital, total_pnl, created_at FROM portfolio WHERE id = 1`,
	).Scan(&p.Capital, &p.TotalPnL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage.Load: portfolio: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("storage.Load: created_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, market_title, side, strategy, entry_prob, size, entry_time,
		       status, exit_prob, outcome, close_reason, pnl, exit_time
		FROM positions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("storage.Load: positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.Load: scan: %w", err)
		}
		if pos.Status == domain.PositionOpen {
			p.Positions = append(p.Positions, pos)
		} else {
			p.ClosedPositions = append(p.ClosedPositions, pos)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.Load: rows: %w", err)
	}
	return p, nil
}

// Save reemplaza el snapshot completo en una sola transacción.
func (s *SQLiteStore) Save(ctx context.Context, p *domain.Portfolio) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Save: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO portfolio (id, capital, total_pnl, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			capital    = excluded.capital,
			total_pnl  = excluded.total_pnl,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		p.Capital, p.TotalPnL, formatTime(p.CreatedAt), formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("storage.Save: portfolio: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("storage.Save: clear positions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions
			(id, seq, market_id, market_title, side, strategy, entry_prob, size, entry_time,
			 status, exit_prob, outcome, close_reason, pnl, exit_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.Save: prepare: %w", err)
	}
	defer stmt.Close()

	seq := 0
	for _, list := range [][]domain.Position{p.Positions, p.ClosedPositions} {
		for _, pos := range list {
			var outcome any
			if pos.Outcome != nil {
				outcome = string(*pos.Outcome)
			}
			if _, err := stmt.ExecContext(ctx,
				pos.ID, seq, pos.MarketID, pos.MarketTitle, string(pos.Side), string(pos.Strategy),
				pos.EntryProbability, pos.Size, formatTime(pos.EntryTime), string(pos.Status),
				nullFloat(pos.ExitProbability), outcome, string(pos.CloseReason),
				nullFloat(pos.PnL), nullTime(pos.CloseTime),
			); err != nil {
				return fmt.Errorf("storage.Save: insert position %s: %w", pos.ID, err)
			}
			seq++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.Save: commit: %w", err)
	}
	return nil
}

// Append inserta las decisiones en orden.
func (s *SQLiteStore) Append(ctx context.Context, decisions ...domain.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Append: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions
			(ts, market_id, market_title, edge_type, side, edge, confidence,
			 executed, stake, position_id, reason, rationale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.Append: prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		if _, err := stmt.ExecContext(ctx,
			formatTime(d.Timestamp), d.MarketID, d.MarketTitle, string(d.Strategy), string(d.Side),
			d.Edge, d.Confidence, boolToInt(d.Executed), d.Stake, d.PositionID,
			string(d.Reason), d.Rationale,
		); err != nil {
			return fmt.Errorf("storage.Append: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.Append: commit: %w", err)
	}
	return nil
}

// Read devuelve todas las decisiones en orden de inserción.
func (s *SQLiteStore) Read(ctx context.Context) ([]domain.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, market_id, market_title, edge_type, side, edge, confidence,
		       executed, stake, position_id, reason, rationale
		FROM decisions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage.Read: %w", err)
	}
	defer rows.Close()

	var out []domain.Decision
	for rows.Next() {
		var (
			d                            domain.Decision
			ts, strategy, side, reason   string
			title, positionID, rationale sql.NullString
			executed                     int
		)
		if err := rows.Scan(&ts, &d.MarketID, &title, &strategy, &side, &d.Edge, &d.Confidence,
			&executed, &d.Stake, &positionID, &reason, &rationale); err != nil {
			return nil, fmt.Errorf("storage.Read: scan: %w", err)
		}
		if d.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("storage.Read: ts: %w", err)
		}
		d.MarketTitle = title.String
		d.Strategy = domain.StrategyKind(strategy)
		d.Side = domain.Side(side)
		d.Executed = executed == 1
		d.PositionID = positionID.String
		d.Reason = domain.RejectReason(reason)
		d.Rationale = rationale.String
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(r rowScanner) (domain.Position, error) {
	var (
		pos                            domain.Position
		side, strategy, status, entry  string
		title, outcome, reason, exitAt sql.NullString
		exitProb, pnl                  sql.NullFloat64
	)
	if err := r.Scan(&pos.ID, &pos.MarketID, &title, &side, &strategy, &pos.EntryProbability,
		&pos.Size, &entry, &status, &exitProb, &outcome, &reason, &pnl, &exitAt); err != nil {
		return pos, err
	}

	var err error
	if pos.EntryTime, err = parseTime(entry); err != nil {
		return pos, err
	}
	pos.MarketTitle = title.String
	pos.Side = domain.Side(side)
	pos.Strategy = domain.StrategyKind(strategy)
	pos.Status = domain.PositionStatus(status)
	pos.CloseReason = domain.CloseReason(reason.String)
	if exitProb.Valid {
		v := exitProb.Float64
		pos.ExitProbability = &v
	}
	if pnl.Valid {
		v := pnl.Float64
		pos.PnL = &v
	}
	if outcome.Valid && outcome.String != "" {
		o := domain.ResolutionOutcome(outcome.String)
		pos.Outcome = &o
	}
	if exitAt.Valid && exitAt.String != "" {
		t, err := parseTime(exitAt.String)
		if err != nil {
			return pos, err
		}
		pos.CloseTime = &t
	}
	return pos, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
