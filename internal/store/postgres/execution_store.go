package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantbot/smartrouter/internal/domain"
)

// ExecutionStore implements domain.ExecutionStore using PostgreSQL. Results
// are written once, after finalization; the fills land in their own table so
// per-venue fill history stays queryable.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

// NewExecutionStore creates an ExecutionStore backed by the given pool.
func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Create inserts a finalized execution result and its fills in one
// transaction.
func (s *ExecutionStore) Create(ctx context.Context, res domain.ExecutionResult) error {
	errsJSON, err := json.Marshal(res.Errors)
	if err != nil {
		return fmt.Errorf("postgres: marshal errors for %s: %w", res.RouteID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx for %s: %w", res.RouteID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertExecution = `
		INSERT INTO executions (
			route_id, asset, side, algorithm, status,
			filled_quantity, target_quantity, avg_fill_price,
			expected_price, realized_slippage, total_fees,
			started_at, elapsed_ns, errors
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14
		)`

	_, err = tx.Exec(ctx, insertExecution,
		res.RouteID, res.Asset, string(res.Side), string(res.Algorithm), string(res.Status),
		res.FilledQuantity, res.TargetQuantity, res.AvgFillPrice,
		res.ExpectedPrice, res.RealizedSlippage, res.TotalFees,
		res.StartedAt, int64(res.ElapsedTime), errsJSON,
	)
	if err != nil {
		return fmt.Errorf("postgres: create execution %s: %w", res.RouteID, err)
	}

	const insertFill = `
		INSERT INTO execution_fills (
			route_id, seq, venue, order_id, side, quantity, price, fee, filled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i, f := range res.Fills {
		if _, err := tx.Exec(ctx, insertFill,
			res.RouteID, i, f.Venue, f.OrderID, string(f.Side),
			f.Quantity, f.Price, f.Fee, f.Timestamp,
		); err != nil {
			return fmt.Errorf("postgres: create fill %d for %s: %w", i, res.RouteID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit execution %s: %w", res.RouteID, err)
	}
	return nil
}

const executionSelectCols = `route_id, asset, side, algorithm, status,
	filled_quantity, target_quantity, avg_fill_price,
	expected_price, realized_slippage, total_fees,
	started_at, elapsed_ns, errors`

func scanExecution(scanner interface{ Scan(dest ...any) error }) (domain.ExecutionResult, error) {
	var res domain.ExecutionResult
	var side, algorithm, status string
	var elapsedNs int64
	var errsJSON []byte

	err := scanner.Scan(
		&res.RouteID, &res.Asset, &side, &algorithm, &status,
		&res.FilledQuantity, &res.TargetQuantity, &res.AvgFillPrice,
		&res.ExpectedPrice, &res.RealizedSlippage, &res.TotalFees,
		&res.StartedAt, &elapsedNs, &errsJSON,
	)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	res.Side = domain.Side(side)
	res.Algorithm = domain.Algorithm(algorithm)
	res.Status = domain.ExecutionStatus(status)
	res.ElapsedTime = time.Duration(elapsedNs)
	if len(errsJSON) > 0 {
		if err := json.Unmarshal(errsJSON, &res.Errors); err != nil {
			return domain.ExecutionResult{}, fmt.Errorf("unmarshal errors: %w", err)
		}
	}
	return res, nil
}

// Get returns one execution with its fills, or domain.ErrNotFound.
func (s *ExecutionStore) Get(ctx context.Context, routeID string) (domain.ExecutionResult, error) {
	query := `SELECT ` + executionSelectCols + ` FROM executions WHERE route_id = $1`

	res, err := scanExecution(s.pool.QueryRow(ctx, query, routeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ExecutionResult{}, domain.ErrNotFound
		}
		return domain.ExecutionResult{}, fmt.Errorf("postgres: get execution %s: %w", routeID, err)
	}

	fills, err := s.fillsFor(ctx, routeID)
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	res.Fills = fills
	return res, nil
}

// ListRecent returns finalized executions ordered newest-first. Fills are not
// loaded for list queries; callers needing them fetch the execution by ID.
func (s *ExecutionStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.ExecutionResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + executionSelectCols + `
		FROM executions ORDER BY started_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	defer rows.Close()

	var results []domain.ExecutionResult
	for rows.Next() {
		res, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan execution: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	return results, nil
}

func (s *ExecutionStore) fillsFor(ctx context.Context, routeID string) ([]domain.Fill, error) {
	const query = `
		SELECT venue, order_id, side, quantity, price, fee, filled_at
		FROM execution_fills WHERE route_id = $1 ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fills for %s: %w", routeID, err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var f domain.Fill
		var side string
		if err := rows.Scan(&f.Venue, &f.OrderID, &side, &f.Quantity, &f.Price, &f.Fee, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan fill for %s: %w", routeID, err)
		}
		f.Side = domain.Side(side)
		fills = append(fills, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list fills for %s: %w", routeID, err)
	}
	return fills, nil
}
