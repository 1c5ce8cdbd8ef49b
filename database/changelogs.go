package database

import (
	"context"
	"fmt"
	"sacrifice-website/models"
	"sacrifice-website/realtime"
	"strings"

	"github.com/jmoiron/sqlx"
)

const TableChangeLogs = "change_logs"

// ==================== CHANGE LOG OPERATIONS ====================

func (r *Repository) InsertChangeLogs(ctx context.Context, logs []models.ChangeLog) error {
	if len(logs) == 0 {
		return nil
	}

	return r.withTx(ctx, func(tx *sqlx.Tx, c *changes) error {
		for i := range logs {
			if logs[i].ChangedAt.IsZero() {
				logs[i].ChangedAt = r.now()
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO change_logs (event_id, table_name, row_id, column_name, old_value,
					new_value, change_type, description, change_owner, changed_at)
				VALUES (:event_id, :table_name, :row_id, :column_name, :old_value,
					:new_value, :change_type, :description, :change_owner, :changed_at)
			`, &logs[i]); err != nil {
				return fmt.Errorf("insert change log: %w", err)
			}
			c.add(TableChangeLogs, realtime.EventInsert, &logs[i], nil)
		}
		return nil
	})
}

func (r *Repository) ListChangeLogs(ctx context.Context, filter models.ChangeLogFilter) ([]models.ChangeLog, error) {
	var where []string
	var args []any

	if filter.TableName != "" {
		where = append(where, "table_name = ?")
		args = append(args, filter.TableName)
	}
	if filter.RowID != "" {
		where = append(where, "row_id = ?")
		args = append(args, filter.RowID)
	}

	query := `SELECT event_id, table_name, row_id, column_name, old_value, new_value,
		change_type, description, change_owner, changed_at FROM change_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY changed_at DESC, event_id ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	logs := make([]models.ChangeLog, 0)
	if err := r.db.SelectContext(ctx, &logs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list change logs: %w", err)
	}
	return logs, nil
}
