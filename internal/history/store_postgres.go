package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

// Postgres persists transaction history for deployments that need the trail
// to survive restarts. The engine's hot state stays in memory; history is the
// one table worth durable storage.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the history table when absent.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transaction_history (
			id             BIGSERIAL PRIMARY KEY,
			kind           TEXT        NOT NULL,
			ref_id         BIGINT      NOT NULL DEFAULT 0,
			from_principal TEXT        NOT NULL,
			to_principal   TEXT        NOT NULL,
			amount         BIGINT      NOT NULL,
			executor       TEXT        NOT NULL,
			tick           BIGINT      NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure transaction_history schema: %w", err)
	}
	return nil
}

func (s *Postgres) Append(ctx context.Context, record *Record) (id.TxID, error) {
	var assigned uint64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO transaction_history
			(kind, ref_id, from_principal, to_principal, amount, executor, tick, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		string(record.Kind), record.RefID, record.From.String(), record.To.String(),
		record.Amount, record.Executor.String(), int64(record.Tick), record.CreatedAt,
	).Scan(&assigned)
	if err != nil {
		return 0, fmt.Errorf("append history record: %w", err)
	}
	return id.TxID(assigned), nil
}

func (s *Postgres) Get(ctx context.Context, txID id.TxID) (*Record, error) {
	var (
		record   Record
		kind     string
		from     string
		to       string
		executor string
		tick     int64
		rawID    uint64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, kind, ref_id, from_principal, to_principal, amount, executor, tick, created_at
		FROM transaction_history WHERE id = $1`, uint64(txID),
	).Scan(&rawID, &kind, &record.RefID, &from, &to, &record.Amount, &executor, &tick, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get history record: %w", err)
	}
	record.ID = id.TxID(rawID)
	record.Kind = Kind(kind)
	record.From = id.Principal(from)
	record.To = id.Principal(to)
	record.Executor = id.Principal(executor)
	record.Tick = id.Tick(tick)
	return &record, nil
}

func (s *Postgres) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM transaction_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count history records: %w", err)
	}
	return count, nil
}
