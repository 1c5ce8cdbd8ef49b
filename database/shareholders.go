package database

import (
	"context"
	"fmt"
	"sacrifice-website/models"
	"sacrifice-website/realtime"
	"sacrifice-website/storage"
	"strings"

	"github.com/jmoiron/sqlx"
)

const shareholderColumns = `shareholder_id, shareholder_name, phone_number, transaction_id, sacrifice_id,
	share_price, delivery_type, delivery_location, delivery_fee, total_amount, paid_amount,
	remaining_payment, sacrifice_consent, contact_consent, security_code, purchase_time,
	last_edited_by, last_edited_time, notes`

// ==================== SHAREHOLDER OPERATIONS ====================

func insertShareholder(ctx context.Context, tx *sqlx.Tx, sh *models.Shareholder) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO shareholders (`+shareholderColumns+`)
		VALUES (:shareholder_id, :shareholder_name, :phone_number, :transaction_id, :sacrifice_id,
			:share_price, :delivery_type, :delivery_location, :delivery_fee, :total_amount, :paid_amount,
			:remaining_payment, :sacrifice_consent, :contact_consent, :security_code, :purchase_time,
			:last_edited_by, :last_edited_time, :notes)
	`, sh)
	if isUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert shareholder: %w", err)
	}
	return nil
}

func (r *Repository) ListShareholders(ctx context.Context, filter models.ShareholderFilter) ([]models.Shareholder, error) {
	var where []string
	var args []any

	if filter.SacrificeID != "" {
		where = append(where, "sacrifice_id = ?")
		args = append(args, filter.SacrificeID)
	}
	if filter.PhoneNumber != "" {
		where = append(where, "phone_number = ?")
		args = append(args, filter.PhoneNumber)
	}
	if filter.Unpaid {
		where = append(where, "remaining_payment > 0")
	}

	query := `SELECT ` + shareholderColumns + ` FROM shareholders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY purchase_time DESC, shareholder_id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	shareholders := make([]models.Shareholder, 0)
	if err := r.db.SelectContext(ctx, &shareholders, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list shareholders: %w", err)
	}
	return shareholders, nil
}

func (r *Repository) GetShareholder(ctx context.Context, shareholderID string) (*models.Shareholder, error) {
	return getShareholder(ctx, r.db, shareholderID)
}

func getShareholder(ctx context.Context, q queryer, shareholderID string) (*models.Shareholder, error) {
	var sh models.Shareholder
	err := sqlx.GetContext(ctx, q, &sh, q.Rebind(
		`SELECT `+shareholderColumns+` FROM shareholders WHERE shareholder_id = ?`), shareholderID)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shareholder: %w", err)
	}
	return &sh, nil
}

func (r *Repository) UpdateShareholder(ctx context.Context, sh *models.Shareholder) error {
	sh.LastEditedTime = r.now()

	res, err := r.db.NamedExecContext(ctx, `
		UPDATE shareholders SET
			shareholder_name = :shareholder_name,
			phone_number = :phone_number,
			delivery_type = :delivery_type,
			delivery_location = :delivery_location,
			delivery_fee = :delivery_fee,
			total_amount = :total_amount,
			paid_amount = :paid_amount,
			remaining_payment = :remaining_payment,
			sacrifice_consent = :sacrifice_consent,
			contact_consent = :contact_consent,
			notes = :notes,
			last_edited_by = :last_edited_by,
			last_edited_time = :last_edited_time
		WHERE shareholder_id = :shareholder_id
	`, sh)
	if err != nil {
		return fmt.Errorf("update shareholder: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	r.publishOne(TableShareholders, realtime.EventUpdate, sh, nil)
	return nil
}

func (r *Repository) DeleteShareholder(ctx context.Context, shareholderID, editor string) error {
	now := r.now()

	return r.withTx(ctx, func(tx *sqlx.Tx, c *changes) error {
		sh, err := getShareholder(ctx, tx, shareholderID)
		if err != nil {
			return err
		}
		if sh == nil {
			return storage.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`DELETE FROM shareholders WHERE shareholder_id = ?`), shareholderID); err != nil {
			return fmt.Errorf("delete shareholder: %w", err)
		}

		// One shareholder holds one share
		if err := releaseShares(ctx, tx, sh.SacrificeID, 1, editor, now); err != nil {
			return err
		}
		animal, err := getSacrifice(ctx, tx, sh.SacrificeID)
		if err != nil {
			return err
		}

		c.add(TableShareholders, realtime.EventDelete, nil, sh)
		c.add(TableSacrifices, realtime.EventUpdate, animal, nil)
		return nil
	})
}
