package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
)

const (
	positionsTable = "posiciones_simuladas"
	configTable    = "configuracion"
	statesTable    = "estados_posicion"
)

var positionColumns = []string{
	"id", "par", "direccion", "timestamp_entrada", "precio_entrada", "tamano_posicion",
	"rsi_entrada", "volumen_entrada", "sl_actual", "breakeven_activado", "id_estado",
	"timestamp_salida", "precio_salida", "profit_usdt",
}

type SQLiteStore struct {
	db *sql.DB
	sq squirrel.StatementBuilderType
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{
		db: db,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS estados_posicion (
			id INTEGER PRIMARY KEY,
			nombre TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS posiciones_simuladas (
			id TEXT PRIMARY KEY,
			par TEXT NOT NULL,
			direccion TEXT NOT NULL,
			timestamp_entrada DATETIME NOT NULL,
			precio_entrada REAL NOT NULL,
			tamano_posicion REAL NOT NULL,
			rsi_entrada REAL NOT NULL DEFAULT 0,
			volumen_entrada REAL NOT NULL DEFAULT 0,
			sl_actual REAL NOT NULL,
			breakeven_activado BOOLEAN NOT NULL DEFAULT 0,
			id_estado INTEGER NOT NULL DEFAULT 1 REFERENCES estados_posicion(id),
			timestamp_salida DATETIME,
			precio_salida REAL,
			profit_usdt REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_posiciones_estado ON posiciones_simuladas(id_estado);`,
		`CREATE TABLE IF NOT EXISTS configuracion (
			nombre_parametro TEXT PRIMARY KEY,
			valor REAL NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	states := []domain.PositionState{
		domain.StateOpen,
		domain.StateClosedBreakeven,
		domain.StateClosedStopLoss,
		domain.StateClosedDynamicTakeProfit,
		domain.StateClosedFixedTakeProfit,
	}
	for _, st := range states {
		_, err := s.sq.Insert(statesTable).Options("OR IGNORE").
			Columns("id", "nombre").
			Values(int(st), st.String()).
			RunWith(s.db).Exec()
		if err != nil {
			return fmt.Errorf("failed to seed position states: %w", err)
		}
	}
	return nil
}

// PositionRepository Implementation

// InsertPosition assigns a new uuid when pos.ID is empty.
func (s *SQLiteStore) InsertPosition(ctx context.Context, pos *domain.Position) (string, error) {
	id := pos.ID
	if id == "" {
		id = uuid.NewString()
	}
	state := pos.State
	if state == 0 {
		state = domain.StateOpen
	}

	_, err := s.sq.Insert(positionsTable).
		Columns(positionColumns...).
		Values(
			id, pos.Pair, string(pos.Side), pos.EntryTime.UTC(), pos.EntryPrice, pos.Size,
			round(pos.EntryRSI, 4), pos.EntryVolume, pos.StopLoss, pos.BreakevenActive, int(state),
			nil, nil, nil,
		).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("insert position %s: %w", pos.Pair, err)
	}
	return id, nil
}

func (s *SQLiteStore) FetchOpenPositions(ctx context.Context) ([]*domain.Position, error) {
	rows, err := s.sq.Select(positionColumns...).
		From(positionsTable).
		Where(squirrel.Eq{"id_estado": int(domain.StateOpen)}).
		OrderBy("timestamp_entrada ASC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch open positions: %w", err)
	}
	defer rows.Close()
	return scanPositions(rows)
}

// UpdatePosition writes the terminal state. Only rows still open are touched,
// so a position is closed at most once.
func (s *SQLiteStore) UpdatePosition(ctx context.Context, id string, f domain.CloseFields) error {
	if !f.State.IsTerminal() {
		return fmt.Errorf("state %s is not terminal", f.State)
	}
	res, err := s.sq.Update(positionsTable).
		Set("id_estado", int(f.State)).
		Set("timestamp_salida", f.ExitTime.UTC()).
		Set("precio_salida", f.ExitPrice).
		Set("profit_usdt", round(f.Profit, 8)).
		Where(squirrel.Eq{"id": id, "id_estado": int(domain.StateOpen)}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("close position %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

func (s *SQLiteStore) UpdateStopLoss(ctx context.Context, id string, stopLoss float64, breakeven bool) error {
	res, err := s.sq.Update(positionsTable).
		Set("sl_actual", stopLoss).
		Set("breakeven_activado", breakeven).
		Where(squirrel.Eq{"id": id, "id_estado": int(domain.StateOpen)}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update stop loss %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// ListPositions returns the most recent positions, newest first.
func (s *SQLiteStore) ListPositions(ctx context.Context, limit int) ([]*domain.Position, error) {
	q := s.sq.Select(positionColumns...).
		From(positionsTable).
		OrderBy("timestamp_entrada DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()
	return scanPositions(rows)
}

type StateCount struct {
	State  domain.PositionState `json:"state"`
	Name   string               `json:"name"`
	Count  int                  `json:"count"`
	Profit float64              `json:"profit_usdt"`
}

// Summary aggregates positions per state.
func (s *SQLiteStore) Summary(ctx context.Context) ([]StateCount, error) {
	rows, err := s.sq.Select("id_estado", "COUNT(*)", "COALESCE(SUM(profit_usdt), 0)").
		From(positionsTable).
		GroupBy("id_estado").
		OrderBy("id_estado").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("position summary: %w", err)
	}
	defer rows.Close()

	var out []StateCount
	for rows.Next() {
		var sc StateCount
		var state int
		if err := rows.Scan(&state, &sc.Count, &sc.Profit); err != nil {
			return nil, err
		}
		sc.State = domain.PositionState(state)
		sc.Name = sc.State.String()
		sc.Profit = round(sc.Profit, 8)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// ConfigRepository Implementation

func (s *SQLiteStore) LoadConfiguration(ctx context.Context) (domain.Configuration, error) {
	rows, err := s.sq.Select("nombre_parametro", "valor").
		From(configTable).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	defer rows.Close()

	cfg := make(domain.Configuration)
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		cfg[key] = value
	}
	return cfg, rows.Err()
}

// SeedConfiguration inserts keys that are not yet present and returns how
// many were added. Existing values are left alone.
func (s *SQLiteStore) SeedConfiguration(ctx context.Context, defaults domain.Configuration) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	added := 0
	for key, value := range defaults {
		res, err := s.sq.Insert(configTable).Options("OR IGNORE").
			Columns("nombre_parametro", "valor").
			Values(key, value).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return 0, fmt.Errorf("seed %s: %w", key, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

func (s *SQLiteStore) SetConfigValue(ctx context.Context, key string, value float64) error {
	_, err := s.sq.Insert(configTable).
		Columns("nombre_parametro", "valor").
		Values(key, value).
		Suffix("ON CONFLICT(nombre_parametro) DO UPDATE SET valor = excluded.valor").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func scanPositions(rows *sql.Rows) ([]*domain.Position, error) {
	var out []*domain.Position
	for rows.Next() {
		var (
			p         domain.Position
			side      string
			state     int
			exitTime  sql.NullTime
			exitPrice sql.NullFloat64
			profit    sql.NullFloat64
		)
		err := rows.Scan(
			&p.ID, &p.Pair, &side, &p.EntryTime, &p.EntryPrice, &p.Size,
			&p.EntryRSI, &p.EntryVolume, &p.StopLoss, &p.BreakevenActive, &state,
			&exitTime, &exitPrice, &profit,
		)
		if err != nil {
			return nil, err
		}
		p.Side = domain.Side(side)
		p.State = domain.PositionState(state)
		if exitTime.Valid {
			t := exitTime.Time
			p.ExitTime = &t
		}
		if exitPrice.Valid {
			v := exitPrice.Float64
			p.ExitPrice = &v
		}
		if profit.Valid {
			v := profit.Float64
			p.Profit = &v
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("position %s not found or already closed", id)
	}
	return nil
}

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
