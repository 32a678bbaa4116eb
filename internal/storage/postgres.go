package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/offeradmin/internal/database"
	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// Postgres keeps keys in the kv_store table and announces writes with NOTIFY
// so other processes sharing the namespace can reload.
type Postgres struct {
	db         *database.DB
	namespace  string
	channel    string
	origin     string
	quotaBytes int64
	logger     *slog.Logger
}

// NewPostgres expects the kv_store migration to have been applied
func NewPostgres(db *database.DB, namespace string, quotaBytes int64, logger *slog.Logger) *Postgres {
	return &Postgres{
		db:         db,
		namespace:  namespace,
		channel:    "offeradmin_" + namespace,
		origin:     uuid.New().String(),
		quotaBytes: quotaBytes,
		logger:     logger,
	}
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.Pool.QueryRow(ctx,
		`SELECT value FROM kv_store WHERE namespace = $1 AND key = $2`,
		p.namespace, key,
	).Scan(&value)
	return value, wrapErr("get", key, database.MapPostgresError(err))
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	err := p.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if p.quotaBytes > 0 {
			var used int64
			err := tx.QueryRow(ctx, `
				SELECT COALESCE(SUM(octet_length(key) + octet_length(value)), 0)
				FROM kv_store WHERE namespace = $1 AND key <> $2
			`, p.namespace, key).Scan(&used)
			if err != nil {
				return err
			}
			if used+entrySize(key, value) > p.quotaBytes {
				return models.ErrStorageQuotaExceeded
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO kv_store (namespace, key, value, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, p.namespace, key, value)
		if err != nil {
			return err
		}
		return p.notify(ctx, tx, key)
	})
	return wrapErr("set", key, database.MapPostgresError(err))
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	err := p.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM kv_store WHERE namespace = $1 AND key = $2`, p.namespace, key)
		if err != nil || tag.RowsAffected() == 0 {
			return err
		}
		return p.notify(ctx, tx, key)
	})
	return wrapErr("remove", key, database.MapPostgresError(err))
}

func (p *Postgres) Clear(ctx context.Context) error {
	err := p.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM kv_store WHERE namespace = $1`, p.namespace); err != nil {
			return err
		}
		return p.notify(ctx, tx, "")
	})
	return wrapErr("clear", "", database.MapPostgresError(err))
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.HealthCheck(ctx)
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

// notify is delivered to listeners only once tx commits
func (p *Postgres) notify(ctx context.Context, tx pgx.Tx, key string) error {
	_, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`,
		p.channel, encodeEvent(ChangeEvent{Key: key, Origin: p.origin}))
	return err
}

// Watch holds one pooled connection in LISTEN mode until ctx is cancelled
func (p *Postgres) Watch(ctx context.Context) (<-chan ChangeEvent, error) {
	conn, err := p.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pq.QuoteIdentifier(p.channel)); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", p.channel, err)
	}

	ch := make(chan ChangeEvent, 16)
	go func() {
		defer close(ch)
		defer func() {
			// the connection still has LISTEN state; drop it instead of returning it to the pool
			conn.Conn().Close(context.Background())
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					p.logger.Error("postgres change listener stopped", slog.String("error", err.Error()))
				}
				return
			}

			ev, ok := decodeEvent(n.Payload)
			if !ok || ev.Origin == p.origin {
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
