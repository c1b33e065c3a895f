package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

// SQLiteStore implements StateStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based state store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Executed fills
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		fees REAL NOT NULL,
		realized_pnl REAL NOT NULL,
		timestamp DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Point-in-time portfolio snapshots; positions and halts are JSON documents
	CREATE TABLE IF NOT EXISTS portfolio_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		as_of DATETIME NOT NULL,
		cash REAL NOT NULL,
		realized_pnl REAL NOT NULL,
		realized_pnl_today REAL NOT NULL,
		start_of_day_equity REAL NOT NULL,
		peak_equity REAL NOT NULL,
		positions TEXT NOT NULL,
		halted TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	CREATE INDEX IF NOT EXISTS idx_snapshots_as_of ON portfolio_snapshots(as_of);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTrade records an executed fill.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade models.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trades (id, order_id, symbol, side, quantity, price, fees, realized_pnl, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.ID, trade.OrderID, trade.Symbol, string(trade.Side), trade.Quantity,
		trade.Price, trade.Fees, trade.RealizedPnL, trade.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	return nil
}

// TradeHistory returns up to limit trades, most recent first.
func (s *SQLiteStore) TradeHistory(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, order_id, symbol, side, quantity, price, fees, realized_pnl, timestamp
		FROM trades
	`
	args := []interface{}{}
	if symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var side string
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &side, &t.Quantity,
			&t.Price, &t.Fees, &t.RealizedPnL, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Side = models.Side(side)
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// SavePortfolioSnapshot records the portfolio state as of a point in time.
func (s *SQLiteStore) SavePortfolioSnapshot(ctx context.Context, state models.PortfolioState) error {
	positions, err := json.Marshal(state.Positions)
	if err != nil {
		return fmt.Errorf("failed to marshal positions: %w", err)
	}

	halted, err := json.Marshal(state.Halted)
	if err != nil {
		return fmt.Errorf("failed to marshal halts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots (as_of, cash, realized_pnl, realized_pnl_today, start_of_day_equity, peak_equity, positions, halted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, state.AsOf, state.Cash, state.RealizedPnL, state.RealizedPnLToday,
		state.StartOfDayEquity, state.PeakEquity, string(positions), string(halted))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// LoadPortfolioSnapshot returns the most recent snapshot.
func (s *SQLiteStore) LoadPortfolioSnapshot(ctx context.Context) (models.PortfolioState, bool, error) {
	var state models.PortfolioState
	var positions, halted string

	err := s.db.QueryRowContext(ctx, `
		SELECT as_of, cash, realized_pnl, realized_pnl_today, start_of_day_equity, peak_equity, positions, halted
		FROM portfolio_snapshots
		ORDER BY as_of DESC, id DESC
		LIMIT 1
	`).Scan(&state.AsOf, &state.Cash, &state.RealizedPnL, &state.RealizedPnLToday,
		&state.StartOfDayEquity, &state.PeakEquity, &positions, &halted)
	if err == sql.ErrNoRows {
		return models.PortfolioState{}, false, nil
	}
	if err != nil {
		return models.PortfolioState{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(positions), &state.Positions); err != nil {
		return models.PortfolioState{}, false, fmt.Errorf("failed to unmarshal positions: %w", err)
	}
	if err := json.Unmarshal([]byte(halted), &state.Halted); err != nil {
		return models.PortfolioState{}, false, fmt.Errorf("failed to unmarshal halts: %w", err)
	}

	return state, true, nil
}
