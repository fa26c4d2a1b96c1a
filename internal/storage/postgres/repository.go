package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tysonq/taxmate/internal/domain"
)

// Repository persists and queries tax artifacts. Trades arrive in
// bulk through ingestion.BulkLoader; this covers everything else.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(db *DB) *Repository {
	return &Repository{pool: db.Pool()}
}

func (r *Repository) ListTrades(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error) {
	query := `SELECT trade_date, code, action, units, price, fee, owner
		FROM trades WHERE 1=1`
	var args []interface{}

	if filter.Code != "" {
		args = append(args, filter.Code)
		query += fmt.Sprintf(" AND code = $%d", len(args))
	}
	if filter.Owner != "" {
		args = append(args, filter.Owner)
		query += fmt.Sprintf(" AND owner = $%d", len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(" AND trade_date >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(" AND trade_date <= $%d", len(args))
	}
	query += " ORDER BY trade_date, code"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var (
			t           domain.Trade
			action      string
			price, fee  decimal.Decimal
		)
		if err := rows.Scan(&t.Date, &t.Code, &action, &t.Units, &price, &fee, &t.Owner); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		t.Action = domain.Action(action)
		t.Price = domain.NewMoney(price, domain.AUD)
		t.Fee = domain.NewMoney(fee, domain.AUD)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (r *Repository) SaveGains(ctx context.Context, owner string, gains []domain.Gain) error {
	if len(gains) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM gains WHERE fy = $1 AND owner = $2`, gains[0].FY, owner); err != nil {
		return fmt.Errorf("clearing prior gains: %w", err)
	}

	batch := &pgx.Batch{}
	for _, g := range gains {
		batch.Queue(
			`INSERT INTO gains (id, fy, code, units, sell_date, raw_profit, taxable_gain, reason, owner)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New(), g.FY, g.Code, g.Units, g.SellDate,
			g.RawProfit.Amount, g.TaxableGain.Amount, string(g.Reason), owner,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting gains: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *Repository) ListGains(ctx context.Context, fy int, owner string) ([]domain.Gain, error) {
	query := `SELECT fy, code, units, sell_date, raw_profit, taxable_gain, reason
		FROM gains WHERE fy = $1`
	args := []interface{}{fy}
	if owner != "" {
		args = append(args, owner)
		query += " AND owner = $2"
	}
	query += " ORDER BY sell_date, code"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying gains: %w", err)
	}
	defer rows.Close()

	var gains []domain.Gain
	for rows.Next() {
		var (
			g            domain.Gain
			raw, taxable decimal.Decimal
			reason       string
		)
		if err := rows.Scan(&g.FY, &g.Code, &g.Units, &g.SellDate, &raw, &taxable, &reason); err != nil {
			return nil, fmt.Errorf("scanning gain: %w", err)
		}
		g.RawProfit = domain.NewMoney(raw, domain.AUD)
		g.TaxableGain = domain.NewMoney(taxable, domain.AUD)
		g.Reason = domain.Reason(reason)
		gains = append(gains, g)
	}
	return gains, rows.Err()
}

func (r *Repository) SaveDeductions(ctx context.Context, owner string, deductions []domain.Deduction) error {
	if len(deductions) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM deductions WHERE fy = $1 AND owner = $2`, deductions[0].FY, owner); err != nil {
		return fmt.Errorf("clearing prior deductions: %w", err)
	}

	batch := &pgx.Batch{}
	for _, d := range deductions {
		batch.Queue(
			`INSERT INTO deductions (id, fy, category, amount, rate, rate_basis, owner)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), d.FY, d.Category, d.Amount.Amount, d.Rate, d.RateBasis, owner,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting deductions: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *Repository) ListDeductions(ctx context.Context, fy int, owner string) ([]domain.Deduction, error) {
	query := `SELECT fy, category, amount, rate, rate_basis
		FROM deductions WHERE fy = $1`
	args := []interface{}{fy}
	if owner != "" {
		args = append(args, owner)
		query += " AND owner = $2"
	}
	query += " ORDER BY category"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying deductions: %w", err)
	}
	defer rows.Close()

	var deductions []domain.Deduction
	for rows.Next() {
		var (
			d      domain.Deduction
			amount decimal.Decimal
		)
		if err := rows.Scan(&d.FY, &d.Category, &amount, &d.Rate, &d.RateBasis); err != nil {
			return nil, fmt.Errorf("scanning deduction: %w", err)
		}
		d.Amount = domain.NewMoney(amount, domain.AUD)
		deductions = append(deductions, d)
	}
	return deductions, rows.Err()
}

// ListOwners returns every person with results stored for the year.
func (r *Repository) ListOwners(ctx context.Context, fy int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT owner FROM gains WHERE fy = $1
		 UNION SELECT owner FROM deductions WHERE fy = $1
		 ORDER BY owner`, fy)
	if err != nil {
		return nil, fmt.Errorf("querying owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scanning owner: %w", err)
		}
		if owner != "" {
			owners = append(owners, owner)
		}
	}
	return owners, rows.Err()
}

// TradeDateRange is the span of stored trades, used by health and
// summary endpoints.
func (r *Repository) TradeDateRange(ctx context.Context) (time.Time, time.Time, error) {
	var min, max time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MIN(trade_date), 'epoch'::date), COALESCE(MAX(trade_date), 'epoch'::date) FROM trades`,
	).Scan(&min, &max)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("querying trade range: %w", err)
	}
	return min, max, nil
}
