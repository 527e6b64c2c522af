package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"positionsMonitor/internal/domain"
	"positionsMonitor/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"
)

// Repository implements ports.PositionRepository using SQLite.
// It is the sole owner of TraderPosition records; the fetcher writes through
// ApplyReconciliation and the scanner reads through the Find methods.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/positions_monitor.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode so the scanner can read while the fetcher writes
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from
	// limiting connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// Decimal columns are stored as TEXT to avoid floating-point drift.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS fetched_positions (
		position_id      TEXT PRIMARY KEY,
		uid              TEXT NOT NULL,
		symbol           TEXT NOT NULL,
		direction        TEXT NOT NULL,
		contract_type    TEXT NOT NULL,
		entry_price      TEXT NOT NULL,
		mark_price       TEXT NOT NULL,
		pnl              TEXT NOT NULL,
		roe              TEXT NOT NULL,
		amount           TEXT NOT NULL,
		update_timestamp INTEGER NOT NULL,
		trade_before     INTEGER NOT NULL,
		leverage         INTEGER NOT NULL,
		opened_at        TIMESTAMP NOT NULL,
		closed_at        TIMESTAMP DEFAULT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fetched_positions_uid_closed ON fetched_positions (uid, closed_at);
	CREATE INDEX IF NOT EXISTS idx_fetched_positions_opened_at ON fetched_positions (opened_at);
	CREATE INDEX IF NOT EXISTS idx_fetched_positions_closed_at ON fetched_positions (closed_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

const positionColumns = `position_id, uid, symbol, direction, contract_type,
	       entry_price, mark_price, pnl, roe, amount,
	       update_timestamp, trade_before, leverage, opened_at, closed_at`

// FindOpenByUID retrieves the trader's currently open positions.
func (r *Repository) FindOpenByUID(ctx context.Context, uid string) ([]*domain.TraderPosition, error) {
	query := `SELECT ` + positionColumns + `
	FROM fetched_positions
	WHERE uid = ? AND closed_at IS NULL`

	rows, err := r.db.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions for UID %s: %w", uid, err)
	}
	defer rows.Close()

	return collectPositions(rows)
}

// FindByPositionID retrieves a position by its deterministic identity.
func (r *Repository) FindByPositionID(ctx context.Context, positionID string) (*domain.TraderPosition, error) {
	query := `SELECT ` + positionColumns + `
	FROM fetched_positions
	WHERE position_id = ?`

	row := r.db.QueryRowContext(ctx, query, positionID)
	pos, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Position not found", map[string]interface{}{"positionID": positionID})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query position %s: %w", positionID, err)
	}
	return pos, nil
}

// FindActiveSince retrieves positions that opened or closed at or after the
// cutoff, ordered by opened_at descending.
func (r *Repository) FindActiveSince(ctx context.Context, cutoff time.Time) ([]*domain.TraderPosition, error) {
	query := `SELECT ` + positionColumns + `
	FROM fetched_positions
	WHERE opened_at >= ? OR closed_at >= ?
	ORDER BY opened_at DESC`

	rows, err := r.db.QueryContext(ctx, query, cutoff, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions active since %s: %w", cutoff, err)
	}
	defer rows.Close()

	return collectPositions(rows)
}

// ApplyReconciliation applies a per-UID diff as a single transaction.
// Creates are upserts keyed on position_id: a create colliding with a closed
// record reopens it in place (the tracker keeps the latest position per
// identity, not full history).
func (r *Repository) ApplyReconciliation(ctx context.Context, uid string, rec *domain.Reconciliation) error {
	if rec == nil || rec.IsEmpty() {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reconciliation transaction for UID %s: %w", uid, err)
	}
	defer tx.Rollback() // no-op after a successful commit

	const insertQuery = `
	INSERT INTO fetched_positions (position_id, uid, symbol, direction, contract_type,
	                               entry_price, mark_price, pnl, roe, amount,
	                               update_timestamp, trade_before, leverage, opened_at, closed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	ON CONFLICT(position_id) DO UPDATE SET
		contract_type    = excluded.contract_type,
		entry_price      = excluded.entry_price,
		mark_price       = excluded.mark_price,
		pnl              = excluded.pnl,
		roe              = excluded.roe,
		amount           = excluded.amount,
		update_timestamp = excluded.update_timestamp,
		trade_before     = excluded.trade_before,
		leverage         = excluded.leverage,
		opened_at        = excluded.opened_at,
		closed_at        = NULL`

	for _, pos := range rec.Creates {
		_, err := tx.ExecContext(ctx, insertQuery,
			pos.PositionID, pos.UID, pos.Symbol, string(pos.Direction), string(pos.ContractType),
			pos.EntryPrice.String(), pos.MarkPrice.String(), pos.PNL.String(), pos.ROE.String(), pos.Amount.String(),
			pos.UpdateTimestamp, pos.TradeBefore, pos.Leverage, pos.OpenedAt)
		if err != nil {
			return fmt.Errorf("failed to insert position %s for UID %s: %w", pos.PositionID, uid, err)
		}
	}

	const updateQuery = `
	UPDATE fetched_positions
	SET entry_price = ?, mark_price = ?, pnl = ?, roe = ?, amount = ?,
	    update_timestamp = ?, trade_before = ?, leverage = ?, contract_type = ?
	WHERE position_id = ?`

	for _, pos := range rec.Updates {
		res, err := tx.ExecContext(ctx, updateQuery,
			pos.EntryPrice.String(), pos.MarkPrice.String(), pos.PNL.String(), pos.ROE.String(), pos.Amount.String(),
			pos.UpdateTimestamp, pos.TradeBefore, pos.Leverage, string(pos.ContractType),
			pos.PositionID)
		if err != nil {
			return fmt.Errorf("failed to update position %s for UID %s: %w", pos.PositionID, uid, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected for position %s: %w", pos.PositionID, err)
		}
		if affected == 0 {
			return fmt.Errorf("position %s not found for update: %w", pos.PositionID, ports.ErrNotFound)
		}
	}

	const closeQuery = `
	UPDATE fetched_positions
	SET closed_at = ?
	WHERE position_id = ? AND closed_at IS NULL`

	for _, id := range rec.CloseIDs {
		if _, err := tx.ExecContext(ctx, closeQuery, rec.ClosedAt, id); err != nil {
			return fmt.Errorf("failed to close position %s for UID %s: %w", id, uid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reconciliation for UID %s: %w", uid, err)
	}

	r.logger.Debug(ctx, "Reconciliation applied", map[string]interface{}{
		"uid":     uid,
		"creates": len(rec.Creates),
		"updates": len(rec.Updates),
		"closes":  len(rec.CloseIDs),
	})
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPosition scans a row into a domain.TraderPosition struct.
func scanPosition(s scanner) (*domain.TraderPosition, error) {
	p := &domain.TraderPosition{}
	var (
		direction, contractType                 string
		entryPrice, markPrice, pnl, roe, amount string
		closedAt                                sql.NullTime
	)
	err := s.Scan(
		&p.PositionID, &p.UID, &p.Symbol, &direction, &contractType,
		&entryPrice, &markPrice, &pnl, &roe, &amount,
		&p.UpdateTimestamp, &p.TradeBefore, &p.Leverage, &p.OpenedAt, &closedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	p.Direction = domain.Direction(direction)
	p.ContractType = domain.ContractType(contractType)
	if closedAt.Valid {
		t := closedAt.Time
		p.ClosedAt = &t
	}

	if p.EntryPrice, err = decimal.NewFromString(entryPrice); err != nil {
		return nil, fmt.Errorf("invalid entry_price '%s': %w", entryPrice, err)
	}
	if p.MarkPrice, err = decimal.NewFromString(markPrice); err != nil {
		return nil, fmt.Errorf("invalid mark_price '%s': %w", markPrice, err)
	}
	if p.PNL, err = decimal.NewFromString(pnl); err != nil {
		return nil, fmt.Errorf("invalid pnl '%s': %w", pnl, err)
	}
	if p.ROE, err = decimal.NewFromString(roe); err != nil {
		return nil, fmt.Errorf("invalid roe '%s': %w", roe, err)
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount '%s': %w", amount, err)
	}
	return p, nil
}

// collectPositions drains a result set into a slice.
func collectPositions(rows *sql.Rows) ([]*domain.TraderPosition, error) {
	positions := make([]*domain.TraderPosition, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}
	return positions, nil
}
