package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sacrifice-website/realtime"
	"sacrifice-website/storage"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Repository is the SQL implementation of storage.Provider. Every committed
// mutation is published to the realtime hub.
type Repository struct {
	db     *DB
	events realtime.Publisher
	now    func() time.Time
}

var _ storage.Provider = (*Repository)(nil)

func NewRepository(db *DB, events realtime.Publisher) *Repository {
	return &Repository{
		db:     db,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// changes collects events inside a transaction; they are published only
// after the commit succeeds.
type changes []realtime.Event

func (c *changes) add(table string, typ realtime.EventType, record, old any) {
	*c = append(*c, realtime.Event{
		Table:     table,
		Type:      typ,
		Record:    toRecord(record),
		OldRecord: toRecord(old),
	})
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sqlx.Tx, c *changes) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	var pending changes
	if err := fn(tx, &pending); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	r.publish(pending...)
	return nil
}

func (r *Repository) publish(events ...realtime.Event) {
	if r.events == nil {
		return
	}
	for _, e := range events {
		r.events.Publish(e)
	}
}

func (r *Repository) publishOne(table string, typ realtime.EventType, record, old any) {
	var c changes
	c.add(table, typ, record, old)
	r.publish(c...)
}

func toRecord(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// queryer is satisfied by both *DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// notFound maps sql.ErrNoRows to (nil, nil) for getters.
func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
