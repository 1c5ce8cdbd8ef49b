package services

import (
	"context"
	"sacrifice-website/models"
	"sacrifice-website/realtime"
	"sacrifice-website/storage"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestSacrificeService_Create(t *testing.T) {
	tests := []struct {
		name          string
		req           models.CreateSacrificeRequest
		repoErr       error
		expectedEmpty int
		expectedError error
	}{
		{
			name:          "Defaults to a full animal",
			req:           models.CreateSacrificeRequest{No: 1, SharePrice: 12000, Time: "08:30"},
			expectedEmpty: 7,
		},
		{
			name:          "Explicit empty share",
			req:           models.CreateSacrificeRequest{No: 2, SharePrice: 12000, EmptyShare: intPtr(3)},
			expectedEmpty: 3,
		},
		{
			name:          "Empty share out of range",
			req:           models.CreateSacrificeRequest{No: 3, SharePrice: 12000, EmptyShare: intPtr(9)},
			expectedError: ErrInvalidShareCount,
		},
		{
			name:          "Duplicate number",
			req:           models.CreateSacrificeRequest{No: 1, SharePrice: 12000},
			repoErr:       storage.ErrDuplicate,
			expectedError: ErrSacrificeExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository).allowChangeLogs()
			repo.On("CreateSacrifice", mock.Anything, mock.AnythingOfType("*models.SacrificeAnimal")).Return(tt.repoErr).Maybe()
			svc := NewSacrificeService(repo, NewChangeLogService(repo), nil)

			animal, err := svc.Create(context.Background(), tt.req, "admin@example.com")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, animal.ID)
			assert.Equal(t, tt.expectedEmpty, animal.EmptyShare)
			assert.Equal(t, "admin@example.com", animal.LastEditedBy)
		})
	}
}

func TestSacrificeService_Update(t *testing.T) {
	repo := new(MockRepository)
	var logged []models.ChangeLog
	repo.On("InsertChangeLogs", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		logged = args.Get(1).([]models.ChangeLog)
	}).Return(nil)
	repo.On("GetSacrifice", mock.Anything, "animal-1").Return(&models.SacrificeAnimal{
		ID: "animal-1", No: 4, SharePrice: 10000, Time: "09:00",
	}, nil)
	repo.On("UpdateSacrifice", mock.Anything, mock.Anything).Return(nil)
	svc := NewSacrificeService(repo, NewChangeLogService(repo), nil)

	animal, err := svc.Update(context.Background(), "animal-1", models.UpdateSacrificeRequest{
		SharePrice: intPtr(11000),
		Time:       strPtr("09:00"),
	}, "editor@example.com")

	require.NoError(t, err)
	assert.Equal(t, 11000, animal.SharePrice)
	require.Len(t, logged, 1)
	assert.Equal(t, "share_price", logged[0].ColumnName)
	assert.Equal(t, "10000", logged[0].OldValue)
	assert.Equal(t, "11000", logged[0].NewValue)
	assert.Equal(t, models.ChangeUpdate, logged[0].ChangeType)
}

func TestSacrificeService_Delete(t *testing.T) {
	tests := []struct {
		name          string
		repoErr       error
		expectedError error
	}{
		{name: "Success"},
		{name: "Has shareholders", repoErr: storage.ErrHasShareholders, expectedError: ErrHasShareholders},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository).allowChangeLogs()
			repo.On("GetSacrifice", mock.Anything, "animal-1").Return(&models.SacrificeAnimal{ID: "animal-1", No: 1}, nil)
			repo.On("DeleteSacrifice", mock.Anything, "animal-1").Return(tt.repoErr)
			svc := NewSacrificeService(repo, NewChangeLogService(repo), nil)

			err := svc.Delete(context.Background(), "animal-1", "admin@example.com")
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSacrificeService_UpdateShareCount(t *testing.T) {
	repo := new(MockRepository).allowChangeLogs()
	repo.On("GetSacrifice", mock.Anything, "animal-1").Return(&models.SacrificeAnimal{ID: "animal-1", EmptyShare: 7}, nil)
	repo.On("SetEmptyShare", mock.Anything, "animal-1", 2, "admin").Return(nil)
	svc := NewSacrificeService(repo, NewChangeLogService(repo), nil)

	animal, err := svc.UpdateShareCount(context.Background(), "animal-1", 2, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, animal.EmptyShare)

	_, err = svc.UpdateShareCount(context.Background(), "animal-1", 8, "admin")
	assert.ErrorIs(t, err, ErrInvalidShareCount)
	_, err = svc.UpdateShareCount(context.Background(), "animal-1", -1, "admin")
	assert.ErrorIs(t, err, ErrInvalidShareCount)
}

func TestSacrificeService_ListFromStore(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListSacrifices", mock.Anything).Return([]models.SacrificeAnimal{
		{ID: "b", No: 2, EmptyShare: 0},
		{ID: "a", No: 1, EmptyShare: 7},
		{ID: "c", No: 3, EmptyShare: 7},
		{ID: "d", No: 4, EmptyShare: 2},
	}, nil).Once()

	hub := realtime.NewHub(nil)
	store := realtime.NewStore[[]models.SacrificeAnimal]("sacrifices", repo.ListSacrifices, 0).Watch(hub, tableSacrifices)
	defer store.Close()
	svc := NewSacrificeService(repo, nil, store)

	animals, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, animals[0].No)
	assert.Equal(t, 4, animals[3].No)

	avail, err := svc.Availability(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, avail[7])
	assert.Equal(t, 1, avail[2])
	assert.Equal(t, 0, avail[1])
	_, soldOut := avail[0]
	assert.False(t, soldOut)

	// Both reads came from the cache
	repo.AssertNumberOfCalls(t, "ListSacrifices", 1)

	before := svc.Version()
	hub.Publish(realtime.Event{Table: tableSacrifices, Type: realtime.EventUpdate})
	assert.Greater(t, svc.Version(), before)
}
