package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX - общее подмножество методов pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// PostgresStore - реализация Store для базы данных.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

// NewPostgresStore создаёт новый экземпляр PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

func (s *PostgresStore) Users() UserRepository { return NewPostgresUserRepository(s.db) }

func (s *PostgresStore) Competitions() CompetitionRepository {
	return NewPostgresCompetitionRepository(s.db)
}

func (s *PostgresStore) Proposals() ProposalRepository { return NewPostgresProposalRepository(s.db) }

func (s *PostgresStore) Payments() PaymentRepository { return NewPostgresPaymentRepository(s.db) }

func (s *PostgresStore) Notifications() NotificationRepository {
	return NewPostgresNotificationRepository(s.db)
}

func (s *PostgresStore) Reviews() ReviewRepository { return NewPostgresReviewRepository(s.db) }

func (s *PostgresStore) Outbox() OutboxRepository { return NewPostgresOutboxRepository(s.db) }

// InTx открывает транзакцию read committed и коммитит её, если fn вернула nil.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&PostgresStore{pool: s.pool, db: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError переводит ошибки драйвера в ошибки репозитория.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// limitArg передаёт NULL вместо неположительного лимита: LIMIT NULL снимает ограничение.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
