package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Cheertaboi/shipping-service/internal/models"
)

const rateColumns = `id, state, region, service_type, flat_rate, estimated_days, is_active, created_at, updated_at`

type RateRepo struct {
	db *sql.DB
}

func NewRateRepo(db *sql.DB) *RateRepo {
	return &RateRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRate(s rowScanner) (models.ShippingRate, error) {
	var (
		r    models.ShippingRate
		days sql.NullInt64
	)
	err := s.Scan(
		&r.ID,
		&r.State,
		&r.Region,
		&r.ServiceType,
		&r.FlatRate,
		&days,
		&r.IsActive,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return r, err
	}
	if days.Valid {
		d := int(days.Int64)
		r.EstimatedDays = &d
	}
	return r, nil
}

func nullDays(d *int) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*d), Valid: true}
}

// ListActive returns every active rate in insertion order. The order matters:
// deduplication keeps the first of equally priced rates.
func (r *RateRepo) ListActive(ctx context.Context) ([]models.ShippingRate, error) {
	query := `SELECT ` + rateColumns + ` FROM shipping_rates WHERE is_active = true ORDER BY created_at, id`
	return r.query(ctx, query)
}

func (r *RateRepo) List(ctx context.Context, f models.RateFilter) ([]models.ShippingRate, error) {
	var (
		conds []string
		args  []any
	)
	if f.Active != nil {
		args = append(args, *f.Active)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if f.State != "" {
		args = append(args, f.State)
		conds = append(conds, fmt.Sprintf("state = $%d", len(args)))
	}
	if f.ServiceType != "" {
		args = append(args, f.ServiceType)
		conds = append(conds, fmt.Sprintf("service_type = $%d", len(args)))
	}

	query := `SELECT ` + rateColumns + ` FROM shipping_rates`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at, id`

	return r.query(ctx, query, args...)
}

func (r *RateRepo) query(ctx context.Context, query string, args ...any) ([]models.ShippingRate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shipping rates: %w", err)
	}
	defer rows.Close()

	rates := []models.ShippingRate{}
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipping rate: %w", err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipping rates: %w", err)
	}
	return rates, nil
}

// GetByID returns nil, nil when the rate does not exist.
func (r *RateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ShippingRate, error) {
	query := `SELECT ` + rateColumns + ` FROM shipping_rates WHERE id = $1`

	rate, err := scanRate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shipping rate: %w", err)
	}
	return &rate, nil
}

// Create inserts rate and fills its timestamps.
func (r *RateRepo) Create(ctx context.Context, rate *models.ShippingRate) error {
	query := `
		INSERT INTO shipping_rates
		(id, state, region, service_type, flat_rate, estimated_days, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rate.ID,
		rate.State,
		rate.Region,
		rate.ServiceType,
		rate.FlatRate,
		nullDays(rate.EstimatedDays),
		rate.IsActive,
	).Scan(&rate.CreatedAt, &rate.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert shipping rate: %w", err)
	}
	return nil
}

// Update locks the row, lets mutate change it and writes it back in the
// same transaction. Returns nil, nil when the rate does not exist.
func (r *RateRepo) Update(ctx context.Context, id uuid.UUID, mutate func(*models.ShippingRate) error) (*models.ShippingRate, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	query := `SELECT ` + rateColumns + ` FROM shipping_rates WHERE id = $1 FOR UPDATE`
	rate, err := scanRate(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock shipping rate: %w", err)
	}

	if err := mutate(&rate); err != nil {
		return nil, err
	}
	rate.ID = id
	rate.UpdatedAt = time.Now().UTC()

	update := `
		UPDATE shipping_rates
		SET state = $2, region = $3, service_type = $4, flat_rate = $5,
		    estimated_days = $6, is_active = $7, updated_at = $8
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, update,
		rate.ID,
		rate.State,
		rate.Region,
		rate.ServiceType,
		rate.FlatRate,
		nullDays(rate.EstimatedDays),
		rate.IsActive,
		rate.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update shipping rate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx commit: %w", err)
	}
	committed = true

	return &rate, nil
}

// SetActive flips is_active. Reports false when no row matched.
func (r *RateRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shipping_rates SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return false, fmt.Errorf("set shipping rate active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RateRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shipping_rates WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete shipping rate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
