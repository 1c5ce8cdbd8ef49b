package models

import "time"

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

type ChangeLog struct {
	EventID     string     `json:"event_id" db:"event_id"`
	TableName   string     `json:"table_name" db:"table_name"`
	RowID       string     `json:"row_id" db:"row_id"`
	ColumnName  string     `json:"column_name" db:"column_name"`
	OldValue    string     `json:"old_value" db:"old_value"`
	NewValue    string     `json:"new_value" db:"new_value"`
	ChangeType  ChangeType `json:"change_type" db:"change_type"`
	Description string     `json:"description" db:"description"`
	ChangeOwner string     `json:"change_owner" db:"change_owner"`
	ChangedAt   time.Time  `json:"changed_at" db:"changed_at"`
}

// ChangeLogFilter narrows change log listings. Zero values mean no filter.
type ChangeLogFilter struct {
	TableName string
	RowID     string
	Limit     int
	Offset    int
}
