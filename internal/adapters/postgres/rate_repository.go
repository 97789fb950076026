package postgres

import (
	"context"
	"errors"
	"forexrates/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// RateRepository stores rates in exchange_rates. Prices are bound as decimal
// text and scanned back through decimal's sql.Scanner.
type RateRepository struct {
	pool *pgxpool.Pool
}

func (r *RateRepository) FindByPair(ctx context.Context, pair string) (domain.ExchangeRate, bool, error) {
	const q = `
        select id, pair, bid, ask, updated_at
        from exchange_rates
        where pair = $1;
    `

	key := domain.ToStorageKey(pair)
	var rate domain.ExchangeRate
	if err := r.pool.QueryRow(ctx, q, key).Scan(
		&rate.ID,
		&rate.Pair,
		&rate.Bid,
		&rate.Ask,
		&rate.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ExchangeRate{}, false, nil
		}
		return domain.ExchangeRate{}, false, &domain.StoreError{Op: "select", Pair: key, Err: err}
	}
	return rate, true, nil
}

// Insert relies on the unique index over pair; a concurrent duplicate
// surfaces as a StoreError wrapping domain.ErrDuplicatePair. updated_at is
// always stamped with the insert time.
func (r *RateRepository) Insert(ctx context.Context, rate domain.ExchangeRate) (domain.ExchangeRate, error) {
	const q = `
		insert into exchange_rates (id, pair, bid, ask, updated_at)
		values ($1, $2, $3, $4, $5);
	`

	rate.ID = uuid.New()
	rate.Pair = domain.ToStorageKey(rate.Pair)
	rate.UpdatedAt = time.Now().UTC()

	if _, err := r.pool.Exec(ctx, q, rate.ID, rate.Pair, rate.Bid.String(), rate.Ask.String(), rate.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ExchangeRate{}, &domain.StoreError{Op: "insert", Pair: rate.Pair, Err: domain.ErrDuplicatePair}
		}
		return domain.ExchangeRate{}, &domain.StoreError{Op: "insert", Pair: rate.Pair, Err: err}
	}
	return rate, nil
}

// Update replaces bid, ask and updated_at of the record with the rate's ID.
// Pair and ID are never changed.
func (r *RateRepository) Update(ctx context.Context, rate domain.ExchangeRate) (domain.ExchangeRate, error) {
	const q = `
		update exchange_rates
		set bid = $2, ask = $3, updated_at = $4
		where id = $1
		returning pair;
	`

	if err := r.pool.QueryRow(ctx, q, rate.ID, rate.Bid.String(), rate.Ask.String(), rate.UpdatedAt).Scan(&rate.Pair); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ExchangeRate{}, domain.ErrPairNotFound
		}
		return domain.ExchangeRate{}, &domain.StoreError{Op: "update", Pair: rate.Pair, Err: err}
	}
	return rate, nil
}

func (r *RateRepository) Delete(ctx context.Context, pair string) (bool, error) {
	const q = `delete from exchange_rates where pair = $1;`

	key := domain.ToStorageKey(pair)
	tag, err := r.pool.Exec(ctx, q, key)
	if err != nil {
		return false, &domain.StoreError{Op: "delete", Pair: key, Err: err}
	}
	if tag.RowsAffected() == 0 {
		return false, domain.ErrPairNotFound
	}
	return true, nil
}

func (r *RateRepository) ListAll(ctx context.Context) ([]domain.ExchangeRate, error) {
	const q = `select id, pair, bid, ask, updated_at from exchange_rates;`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	rates := make([]domain.ExchangeRate, 0, 64)
	for rows.Next() {
		var rate domain.ExchangeRate
		if err = rows.Scan(&rate.ID, &rate.Pair, &rate.Bid, &rate.Ask, &rate.UpdatedAt); err != nil {
			return nil, &domain.StoreError{Op: "list", Err: err}
		}
		rates = append(rates, rate)
	}
	if err = rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}
	return rates, nil
}

func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}
