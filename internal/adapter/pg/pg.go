package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/olyamironova/limitbook/internal/port"
)

var _ port.Journal = (*Journal)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS executions (
  id          UUID PRIMARY KEY,
  order_id    UUID NOT NULL,
  side        TEXT NOT NULL,
  type        TEXT NOT NULL,
  limit_price NUMERIC,
  requested   BIGINT NOT NULL,
  filled      BIGINT NOT NULL,
  resting     BIGINT NOT NULL,
  trades      INTEGER NOT NULL,
  notional    NUMERIC NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS fills (
  execution_id   UUID NOT NULL REFERENCES executions(id),
  seq            INTEGER NOT NULL,
  maker_order_id UUID NOT NULL,
  price          NUMERIC NOT NULL,
  quantity       BIGINT NOT NULL,
  PRIMARY KEY (execution_id, seq)
);
`

// Journal appends executions and their fills to PostgreSQL.
type Journal struct {
	pool *pgxpool.Pool
}

// NewJournal connects to dsn. Call Close when done.
func NewJournal(ctx context.Context, dsn string) (*Journal, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Journal{pool: pool}, nil
}

func (j *Journal) Close() {
	if j.pool != nil {
		j.pool.Close()
	}
}

// EnsureSchema creates the journal tables if they do not exist.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pg: ensure schema: %w", err)
	}
	return nil
}

// RecordExecution writes one execution row and one row per fill in a single
// transaction.
func (j *Journal) RecordExecution(ctx context.Context, res domain.ExecutionResult, at time.Time) error {
	if res.OrderID == "" {
		return errors.New("pg: execution without order id")
	}
	id := uuid.NewString()
	err := withTx(ctx, j.pool, func(tx pgx.Tx) error {
		var limitPrice *string
		if res.Type == domain.Limit {
			p := res.Price.String()
			limitPrice = &p
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO executions(id, order_id, side, type, limit_price, requested, filled, resting, trades, notional, created_at)
VALUES($1,$2,$3,$4,$5::numeric,$6,$7,$8,$9,$10::numeric,$11)
`, id, res.OrderID, string(res.Side), string(res.Type), limitPrice,
			res.Requested, res.Filled, res.Resting, res.TradeCount, res.Notional.String(), at); err != nil {
			return err
		}
		if len(res.Fills) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, f := range res.Fills {
			batch.Queue(`
INSERT INTO fills(execution_id, seq, maker_order_id, price, quantity)
VALUES($1,$2,$3,$4::numeric,$5)
`, id, i, f.MakerID, f.Price.String(), f.Quantity)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("pg: record execution %s: %w", res.OrderID, err)
	}
	return nil
}

// CountExecutions returns how many executions were journaled for orderID.
func (j *Journal) CountExecutions(ctx context.Context, orderID string) (int, error) {
	var n int
	if err := j.pool.QueryRow(ctx, `SELECT count(*) FROM executions WHERE order_id = $1`, orderID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pg: count executions: %w", err)
	}
	return n, nil
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}
