package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/santafilomena/staycore/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const defaultMaxRetries = 3

type Store struct {
	pool       *pgxpool.Pool
	maxRetries int
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:       pool,
		maxRetries: defaultMaxRetries,
	}
}

// RunTx runs fn in a read-committed transaction. Booking writes are fenced by
// the room row lock and the exclusion constraint, so read committed is enough;
// serialization failures and deadlocks are still retried a few times.
func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	var err error

	for attempt := range s.maxRetries {
		err = s.runTxOnce(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 20 * time.Millisecond):
		}
	}

	return err
}

func (s *Store) runTxOnce(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, txRepos{tx: tx, pool: s.pool}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", translateDBErr(err))
	}

	return nil
}

func (s *Store) Rooms() repository.RoomRepository {
	return &RoomRepo{pool: s.pool}
}

func (s *Store) Bookings() repository.BookingRepository {
	return &BookingRepo{pool: s.pool}
}

// Ping is used by the health check.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type txRepos struct {
	tx   pgx.Tx
	pool *pgxpool.Pool
}

func (t txRepos) Rooms() repository.RoomRepository {
	return (&RoomRepo{pool: t.pool}).With(t.tx)
}

func (t txRepos) Bookings() repository.BookingRepository {
	return (&BookingRepo{pool: t.pool}).With(t.tx)
}
