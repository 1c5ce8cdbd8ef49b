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

const TableSacrifices = "sacrifice_animals"

const sacrificeColumns = `sacrifice_id, sacrifice_no, sacrifice_time, share_price, empty_share,
	notes, last_edited_by, last_edited_time`

// ==================== SACRIFICE OPERATIONS ====================

func (r *Repository) ListSacrifices(ctx context.Context) ([]models.SacrificeAnimal, error) {
	animals := make([]models.SacrificeAnimal, 0)
	err := r.db.SelectContext(ctx, &animals,
		`SELECT `+sacrificeColumns+` FROM sacrifice_animals ORDER BY sacrifice_no ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sacrifices: %w", err)
	}
	return animals, nil
}

func (r *Repository) GetSacrifice(ctx context.Context, sacrificeID string) (*models.SacrificeAnimal, error) {
	return getSacrifice(ctx, r.db, sacrificeID)
}

func getSacrifice(ctx context.Context, q queryer, sacrificeID string) (*models.SacrificeAnimal, error) {
	var animal models.SacrificeAnimal
	err := sqlx.GetContext(ctx, q, &animal, q.Rebind(
		`SELECT `+sacrificeColumns+` FROM sacrifice_animals WHERE sacrifice_id = ?`), sacrificeID)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sacrifice: %w", err)
	}
	return &animal, nil
}

func (r *Repository) CreateSacrifice(ctx context.Context, animal *models.SacrificeAnimal) error {
	if animal.LastEditedTime.IsZero() {
		animal.LastEditedTime = r.now()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO sacrifice_animals (`+sacrificeColumns+`)
		VALUES (:sacrifice_id, :sacrifice_no, :sacrifice_time, :share_price, :empty_share,
			:notes, :last_edited_by, :last_edited_time)
	`, animal)
	if isUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create sacrifice: %w", err)
	}

	r.publishOne(TableSacrifices, realtime.EventInsert, animal, nil)
	return nil
}

func (r *Repository) UpdateSacrifice(ctx context.Context, animal *models.SacrificeAnimal) error {
	animal.LastEditedTime = r.now()

	res, err := r.db.NamedExecContext(ctx, `
		UPDATE sacrifice_animals SET
			sacrifice_time = :sacrifice_time,
			share_price = :share_price,
			notes = :notes,
			last_edited_by = :last_edited_by,
			last_edited_time = :last_edited_time
		WHERE sacrifice_id = :sacrifice_id
	`, animal)
	if err != nil {
		return fmt.Errorf("update sacrifice: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	r.publishOne(TableSacrifices, realtime.EventUpdate, animal, nil)
	return nil
}

func (r *Repository) DeleteSacrifice(ctx context.Context, sacrificeID string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx, c *changes) error {
		var holders int
		if err := tx.GetContext(ctx, &holders, tx.Rebind(
			`SELECT COUNT(*) FROM shareholders WHERE sacrifice_id = ?`), sacrificeID); err != nil {
			return fmt.Errorf("count shareholders: %w", err)
		}
		if holders > 0 {
			return storage.ErrHasShareholders
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(
			`DELETE FROM sacrifice_animals WHERE sacrifice_id = ?`), sacrificeID)
		if err != nil {
			return fmt.Errorf("delete sacrifice: %w", err)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return storage.ErrNotFound
		}

		c.add(TableSacrifices, realtime.EventDelete, nil, map[string]any{"sacrifice_id": sacrificeID})
		return nil
	})
}

func (r *Repository) SetEmptyShare(ctx context.Context, sacrificeID string, emptyShare int, editor string) error {
	now := r.now()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE sacrifice_animals SET
			empty_share = ?,
			last_edited_by = ?,
			last_edited_time = ?
		WHERE sacrifice_id = ?
	`), emptyShare, editor, now, sacrificeID)
	if err != nil {
		return fmt.Errorf("set empty share: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	r.publishOne(TableSacrifices, realtime.EventUpdate, map[string]any{
		"sacrifice_id":     sacrificeID,
		"empty_share":      emptyShare,
		"last_edited_by":   editor,
		"last_edited_time": now,
	}, nil)
	return nil
}

// releaseShares gives shares back to an animal, never above the maximum.
func releaseShares(ctx context.Context, tx *sqlx.Tx, sacrificeID string, count int, editor string, at time.Time) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE sacrifice_animals SET
			empty_share = CASE WHEN empty_share + ? > 7 THEN 7 ELSE empty_share + ? END,
			last_edited_by = ?,
			last_edited_time = ?
		WHERE sacrifice_id = ?
	`), count, count, editor, at, sacrificeID)
	if err != nil {
		return fmt.Errorf("release shares: %w", err)
	}
	return nil
}
