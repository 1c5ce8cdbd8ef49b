package database

import (
	"context"
	"fmt"
	"sacrifice-website/models"
	"sacrifice-website/realtime"
	"sacrifice-website/storage"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	TableTransactions = "reservation_transactions"
	TableShareholders = "shareholders"
)

const transactionColumns = `transaction_id, sacrifice_id, share_count, status, expires_at,
	created_at, last_edited_time`

// systemEditor is recorded on animals touched by reservation bookkeeping.
const systemEditor = "system"

// ==================== RESERVATION OPERATIONS ====================

func (r *Repository) ReserveShares(ctx context.Context, t *models.ReservationTransaction) error {
	now := r.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.LastEditedTime = now
	if t.Status == "" {
		t.Status = models.ReservationActive
	}

	return r.withTx(ctx, func(tx *sqlx.Tx, c *changes) error {
		// Conditional decrement: fails when another buyer took the shares first
		res, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE sacrifice_animals SET
				empty_share = empty_share - ?,
				last_edited_by = ?,
				last_edited_time = ?
			WHERE sacrifice_id = ? AND empty_share >= ?
		`), t.ShareCount, systemEditor, now, t.SacrificeID, t.ShareCount)
		if err != nil {
			return fmt.Errorf("reserve shares: %w", err)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			animal, err := getSacrifice(ctx, tx, t.SacrificeID)
			if err != nil {
				return err
			}
			if animal == nil {
				return storage.ErrNotFound
			}
			return storage.ErrInsufficientShares
		}

		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO reservation_transactions (`+transactionColumns+`)
			VALUES (:transaction_id, :sacrifice_id, :share_count, :status, :expires_at,
				:created_at, :last_edited_time)
		`, t); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrDuplicate
			}
			return fmt.Errorf("insert transaction: %w", err)
		}

		animal, err := getSacrifice(ctx, tx, t.SacrificeID)
		if err != nil {
			return err
		}
		c.add(TableSacrifices, realtime.EventUpdate, animal, nil)
		c.add(TableTransactions, realtime.EventInsert, t, nil)
		return nil
	})
}

func (r *Repository) GetTransaction(ctx context.Context, transactionID string) (*models.ReservationTransaction, error) {
	return getTransaction(ctx, r.db, transactionID)
}

func getTransaction(ctx context.Context, q queryer, transactionID string) (*models.ReservationTransaction, error) {
	var t models.ReservationTransaction
	err := sqlx.GetContext(ctx, q, &t, q.Rebind(
		`SELECT `+transactionColumns+` FROM reservation_transactions WHERE transaction_id = ?`), transactionID)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

// finishTransaction flips an active transaction to a terminal status. The
// WHERE clause on status makes concurrent transitions mutually exclusive.
func finishTransaction(ctx context.Context, tx *sqlx.Tx, transactionID string, to models.ReservationStatus, at time.Time) (*models.ReservationTransaction, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE reservation_transactions SET
			status = ?,
			last_edited_time = ?
		WHERE transaction_id = ? AND status = ?
	`), to, at, transactionID, models.ReservationActive)
	if err != nil {
		return nil, fmt.Errorf("update transaction status: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return nil, err
	}

	t, err := getTransaction(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, storage.ErrNotFound
	}
	if n == 0 {
		return t, storage.ErrStatusConflict
	}
	return t, nil
}

func (r *Repository) TransitionTransaction(ctx context.Context, transactionID string, to models.ReservationStatus) (*models.ReservationTransaction, error) {
	if !to.Terminal() {
		return nil, fmt.Errorf("transition to %q: %w", to, storage.ErrStatusConflict)
	}

	var result *models.ReservationTransaction
	var current *models.ReservationTransaction
	now := r.now()

	err := r.withTx(ctx, func(tx *sqlx.Tx, c *changes) error {
		t, err := finishTransaction(ctx, tx, transactionID, to, now)
		if err != nil {
			current = t
			return err
		}

		if to.Releases() {
			if err := releaseShares(ctx, tx, t.SacrificeID, t.ShareCount, systemEditor, now); err != nil {
				return err
			}
			animal, err := getSacrifice(ctx, tx, t.SacrificeID)
			if err != nil {
				return err
			}
			c.add(TableSacrifices, realtime.EventUpdate, animal, nil)
		}

		c.add(TableTransactions, realtime.EventUpdate, t, map[string]any{"status": models.ReservationActive})
		result = t
		return nil
	})
	if err != nil {
		// The caller needs the current row to answer idempotent repeats
		return current, err
	}
	return result, nil
}

func (r *Repository) CompleteTransaction(ctx context.Context, transactionID string, shareholders []models.Shareholder) (*models.ReservationTransaction, error) {
	var result *models.ReservationTransaction
	var current *models.ReservationTransaction
	now := r.now()

	err := r.withTx(ctx, func(tx *sqlx.Tx, c *changes) error {
		t, err := finishTransaction(ctx, tx, transactionID, models.ReservationCompleted, now)
		if err != nil {
			current = t
			return err
		}

		for i := range shareholders {
			sh := &shareholders[i]
			if sh.PurchaseTime.IsZero() {
				sh.PurchaseTime = now
			}
			sh.LastEditedTime = now
			if err := insertShareholder(ctx, tx, sh); err != nil {
				return err
			}
			c.add(TableShareholders, realtime.EventInsert, sh, nil)
		}

		c.add(TableTransactions, realtime.EventUpdate, t, map[string]any{"status": models.ReservationActive})
		result = t
		return nil
	})
	if err != nil {
		return current, err
	}
	return result, nil
}

func (r *Repository) ListOverdueTransactions(ctx context.Context, now time.Time, limit int) ([]models.ReservationTransaction, error) {
	if limit <= 0 {
		limit = 100
	}

	txs := make([]models.ReservationTransaction, 0)
	err := r.db.SelectContext(ctx, &txs, r.db.Rebind(`
		SELECT `+transactionColumns+`
		FROM reservation_transactions
		WHERE status = ? AND expires_at < ?
		ORDER BY expires_at ASC
		LIMIT ?
	`), models.ReservationActive, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue transactions: %w", err)
	}
	return txs, nil
}

func (r *Repository) PurgeTransactions(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM reservation_transactions
		WHERE status IN (?, ?, ?) AND last_edited_time < ?
	`), models.ReservationCompleted, models.ReservationCanceled, models.ReservationExpired, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge transactions: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.publishOne(TableTransactions, realtime.EventDelete, nil, map[string]any{"purged": n})
	}
	return n, nil
}
