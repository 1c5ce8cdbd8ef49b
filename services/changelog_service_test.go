package services

import (
	"context"
	"errors"
	"sacrifice-website/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDiff_Add(t *testing.T) {
	var d Diff
	d.Add("share_price", 100, 100)
	d.Add("share_price", 100, 120)
	d.Add("delivery_type", models.DeliveryAtSlaughterhouse, models.DeliveryCollective)
	d.Add("sacrifice_consent", false, false)

	require.Len(t, d, 2)
	assert.Equal(t, FieldChange{Column: "share_price", Old: "100", New: "120"}, d[0])
	assert.Equal(t, "toplu-teslim", d[1].New)
}

func TestChangeLogService_RecordUpdate(t *testing.T) {
	repo := new(MockRepository)
	repo.On("InsertChangeLogs", mock.Anything, mock.MatchedBy(func(logs []models.ChangeLog) bool {
		return len(logs) == 2 &&
			logs[0].ColumnName == "paid_amount" &&
			logs[1].ColumnName == "remaining_payment" &&
			logs[0].EventID != logs[1].EventID &&
			logs[0].ChangeOwner == "admin"
	})).Return(nil)
	svc := NewChangeLogService(repo)

	svc.RecordUpdate(context.Background(), "shareholders", "sh-1", "admin", "payment", Diff{
		{Column: "paid_amount", Old: "0", New: "500"},
		{Column: "remaining_payment", Old: "1000", New: "500"},
	})
	repo.AssertExpectations(t)
}

func TestChangeLogService_WriteFailureIsSwallowed(t *testing.T) {
	repo := new(MockRepository)
	repo.On("InsertChangeLogs", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	svc := NewChangeLogService(repo)

	assert.NotPanics(t, func() {
		svc.RecordInsert(context.Background(), "sacrifice_animals", "a-1", "admin", "added")
	})
	repo.AssertNumberOfCalls(t, "InsertChangeLogs", 1)
}

func TestChangeLogService_EmptyDiffWritesNothing(t *testing.T) {
	repo := new(MockRepository)
	svc := NewChangeLogService(repo)

	svc.RecordUpdate(context.Background(), "users", "u-1", "admin", "noop", nil)
	repo.AssertNotCalled(t, "InsertChangeLogs", mock.Anything, mock.Anything)
}

func TestChangeLogService_ListClampsPaging(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListChangeLogs", mock.Anything, models.ChangeLogFilter{TableName: "shareholders", Limit: 100}).
		Return([]models.ChangeLog{{EventID: "e1"}}, nil)
	svc := NewChangeLogService(repo)

	logs, err := svc.List(context.Background(), models.ChangeLogFilter{TableName: "shareholders", Limit: 10000, Offset: -3})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
