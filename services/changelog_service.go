package services

import (
	"context"
	"fmt"
	"log/slog"
	"sacrifice-website/models"

	"github.com/google/uuid"
)

// FieldChange is one column that differs between two versions of a row.
type FieldChange struct {
	Column string
	Old    string
	New    string
}

// Diff accumulates changed columns.
type Diff []FieldChange

// Add records the column when old and new render differently.
func (d *Diff) Add(column string, oldValue, newValue any) {
	o, n := fmt.Sprint(oldValue), fmt.Sprint(newValue)
	if o != n {
		*d = append(*d, FieldChange{Column: column, Old: o, New: n})
	}
}

// ChangeLogService writes and reads the audit trail. Writing is best effort:
// the change it describes is already committed.
type ChangeLogService struct {
	repo ChangeLogRepository
}

func NewChangeLogService(repo ChangeLogRepository) *ChangeLogService {
	return &ChangeLogService{repo: repo}
}

func (s *ChangeLogService) write(ctx context.Context, logs []models.ChangeLog) {
	if s == nil || len(logs) == 0 {
		return
	}
	if err := s.repo.InsertChangeLogs(ctx, logs); err != nil {
		slog.Warn("Failed to write change logs",
			"table", logs[0].TableName,
			"row_id", logs[0].RowID,
			"error", err,
		)
	}
}

func (s *ChangeLogService) RecordInsert(ctx context.Context, table, rowID, owner, description string) {
	s.write(ctx, []models.ChangeLog{{
		EventID:     uuid.NewString(),
		TableName:   table,
		RowID:       rowID,
		ChangeType:  models.ChangeInsert,
		Description: description,
		ChangeOwner: owner,
	}})
}

// RecordUpdate writes one row per changed column.
func (s *ChangeLogService) RecordUpdate(ctx context.Context, table, rowID, owner, description string, diff Diff) {
	logs := make([]models.ChangeLog, 0, len(diff))
	for _, c := range diff {
		logs = append(logs, models.ChangeLog{
			EventID:     uuid.NewString(),
			TableName:   table,
			RowID:       rowID,
			ColumnName:  c.Column,
			OldValue:    c.Old,
			NewValue:    c.New,
			ChangeType:  models.ChangeUpdate,
			Description: description,
			ChangeOwner: owner,
		})
	}
	s.write(ctx, logs)
}

func (s *ChangeLogService) RecordDelete(ctx context.Context, table, rowID, owner, description string) {
	s.write(ctx, []models.ChangeLog{{
		EventID:     uuid.NewString(),
		TableName:   table,
		RowID:       rowID,
		ChangeType:  models.ChangeDelete,
		Description: description,
		ChangeOwner: owner,
	}})
}

// List returns change logs, newest first
func (s *ChangeLogService) List(ctx context.Context, filter models.ChangeLogFilter) ([]models.ChangeLog, error) {
	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListChangeLogs(ctx, filter)
}
