package services

import (
	"context"
	"errors"
	"sacrifice-website/models"
	"sacrifice-website/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 6, 16, 9, 0, 0, 0, time.UTC)

func newTestReservationService(repo *MockRepository) *ReservationService {
	svc := NewReservationService(repo, NewChangeLogService(repo), ReservationConfig{
		TTL:         15 * time.Minute,
		MaxShares:   7,
		DeliveryFee: 750,
	})
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "ABCDEFGHIJKLMNOP" }
	return svc
}

func activeTx(shares int) *models.ReservationTransaction {
	return &models.ReservationTransaction{
		TransactionID: "ABCDEFGHIJKLMNOP",
		SacrificeID:   "animal-1",
		ShareCount:    shares,
		Status:        models.ReservationActive,
		ExpiresAt:     fixedNow.Add(10 * time.Minute),
		CreatedAt:     fixedNow.Add(-5 * time.Minute),
	}
}

// ==================== TESTS ====================

func TestNewTransactionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := NewTransactionID()
		assert.Len(t, id, TransactionIDLength)
		assert.Regexp(t, `^[A-Za-z0-9]{16}$`, id)
		seen[id] = true
	}
	assert.Len(t, seen, 50)
}

func TestReservationService_Create(t *testing.T) {
	tests := []struct {
		name          string
		shareCount    int
		mockSetup     func(*MockRepository)
		expectedError error
	}{
		{
			name:          "Zero shares",
			shareCount:    0,
			mockSetup:     func(repo *MockRepository) {},
			expectedError: ErrInvalidShareCount,
		},
		{
			name:          "More than an animal has",
			shareCount:    8,
			mockSetup:     func(repo *MockRepository) {},
			expectedError: ErrInvalidShareCount,
		},
		{
			name:       "Success",
			shareCount: 3,
			mockSetup: func(repo *MockRepository) {
				repo.On("ReserveShares", mock.Anything, mock.MatchedBy(func(tx *models.ReservationTransaction) bool {
					return tx.ShareCount == 3 &&
						tx.Status == models.ReservationActive &&
						tx.ExpiresAt.Equal(fixedNow.Add(15*time.Minute))
				})).Return(nil).Once()
			},
		},
		{
			name:       "Retries on id collision",
			shareCount: 1,
			mockSetup: func(repo *MockRepository) {
				repo.On("ReserveShares", mock.Anything, mock.Anything).Return(storage.ErrDuplicate).Once()
				repo.On("ReserveShares", mock.Anything, mock.Anything).Return(nil).Once()
			},
		},
		{
			name:       "Unknown animal",
			shareCount: 1,
			mockSetup: func(repo *MockRepository) {
				repo.On("ReserveShares", mock.Anything, mock.Anything).Return(storage.ErrNotFound)
			},
			expectedError: ErrSacrificeNotFound,
		},
		{
			name:       "Not enough shares",
			shareCount: 5,
			mockSetup: func(repo *MockRepository) {
				repo.On("ReserveShares", mock.Anything, mock.Anything).Return(storage.ErrInsufficientShares)
			},
			expectedError: ErrInsufficientShares,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.mockSetup(repo)
			svc := newTestReservationService(repo)

			tx, err := svc.Create(context.Background(), "animal-1", tt.shareCount)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, tx)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "ABCDEFGHIJKLMNOP", tx.TransactionID)
				assert.Equal(t, tt.shareCount, tx.ShareCount)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestReservationService_Complete(t *testing.T) {
	animal := &models.SacrificeAnimal{ID: "animal-1", No: 12, SharePrice: 10000, EmptyShare: 5}
	inputs := []models.ShareholderInput{
		{Name: "Ayşe Yılmaz", PhoneNumber: "+90 532 123 45 67", DeliveryType: models.DeliveryAtSlaughterhouse, SecurityCode: "123456"},
		{Name: "Mehmet Kaya", PhoneNumber: "5321234568", DeliveryType: models.DeliveryCollective, DeliveryLocation: "Merkez", SecurityCode: "654321"},
	}

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository).allowChangeLogs()
		svc := newTestReservationService(repo)

		completed := activeTx(2)
		completed.Status = models.ReservationCompleted
		repo.On("GetTransaction", mock.Anything, "ABCDEFGHIJKLMNOP").Return(activeTx(2), nil)
		repo.On("GetSacrifice", mock.Anything, "animal-1").Return(animal, nil)
		repo.On("CompleteTransaction", mock.Anything, "ABCDEFGHIJKLMNOP", mock.MatchedBy(func(hs []models.Shareholder) bool {
			return len(hs) == 2 &&
				hs[0].PhoneNumber == "05321234567" && hs[0].DeliveryFee == 0 && hs[0].TotalAmount == 10000 &&
				hs[1].PhoneNumber == "05321234568" && hs[1].DeliveryFee == 750 && hs[1].RemainingPayment == 10750
		})).Return(completed, nil)

		res, err := svc.Complete(context.Background(), "ABCDEFGHIJKLMNOP", inputs)

		require.NoError(t, err)
		assert.Equal(t, models.ReservationCompleted, res.Transaction.Status)
		assert.Len(t, res.Shareholders, 2)
		assert.Equal(t, "123456", res.Shareholders[0].SecurityCode)
		repo.AssertExpectations(t)
	})

	t.Run("Shareholder count mismatch", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestReservationService(repo)
		repo.On("GetTransaction", mock.Anything, "ABCDEFGHIJKLMNOP").Return(activeTx(3), nil)

		_, err := svc.Complete(context.Background(), "ABCDEFGHIJKLMNOP", inputs)

		assert.ErrorIs(t, err, ErrShareCountMismatch)
		repo.AssertNotCalled(t, "CompleteTransaction", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Past deadline expires the hold", func(t *testing.T) {
		repo := new(MockRepository).allowChangeLogs()
		svc := newTestReservationService(repo)
		late := activeTx(2)
		late.ExpiresAt = fixedNow.Add(-time.Second)
		repo.On("GetTransaction", mock.Anything, "ABCDEFGHIJKLMNOP").Return(late, nil)
		repo.On("TransitionTransaction", mock.Anything, "ABCDEFGHIJKLMNOP", models.ReservationExpired).Return(late, nil)

		_, err := svc.Complete(context.Background(), "ABCDEFGHIJKLMNOP", inputs)

		assert.ErrorIs(t, err, ErrTransactionNotActive)
		repo.AssertExpectations(t)
	})

	t.Run("Already completed", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestReservationService(repo)
		done := activeTx(2)
		done.Status = models.ReservationCompleted
		repo.On("GetTransaction", mock.Anything, "ABCDEFGHIJKLMNOP").Return(done, nil)

		_, err := svc.Complete(context.Background(), "ABCDEFGHIJKLMNOP", inputs)
		assert.ErrorIs(t, err, ErrTransactionNotActive)
	})

	t.Run("Unknown transaction", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestReservationService(repo)
		repo.On("GetTransaction", mock.Anything, "ABCDEFGHIJKLMNOP").Return(nil, nil)

		_, err := svc.Complete(context.Background(), "ABCDEFGHIJKLMNOP", inputs)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestReservationService_Expire(t *testing.T) {
	tests := []struct {
		name           string
		repoTx         *models.ReservationTransaction
		repoErr        error
		expectedStatus models.ReservationStatus
		expectedError  error
	}{
		{
			name:           "Active reservation expires",
			repoTx:         &models.ReservationTransaction{TransactionID: "ABCDEFGHIJKLMNOP", Status: models.ReservationExpired, ShareCount: 2},
			expectedStatus: models.ReservationExpired,
		},
		{
			name:           "Second expire is a no-op",
			repoTx:         &models.ReservationTransaction{TransactionID: "ABCDEFGHIJKLMNOP", Status: models.ReservationExpired, ShareCount: 2},
			repoErr:        storage.ErrStatusConflict,
			expectedStatus: models.ReservationExpired,
		},
		{
			name:          "Completed reservation cannot expire",
			repoTx:        &models.ReservationTransaction{TransactionID: "ABCDEFGHIJKLMNOP", Status: models.ReservationCompleted},
			repoErr:       storage.ErrStatusConflict,
			expectedError: ErrTransactionNotActive,
		},
		{
			name:          "Unknown transaction",
			repoErr:       storage.ErrNotFound,
			expectedError: ErrTransactionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository).allowChangeLogs()
			svc := newTestReservationService(repo)
			repo.On("TransitionTransaction", mock.Anything, "ABCDEFGHIJKLMNOP", models.ReservationExpired).Return(tt.repoTx, tt.repoErr)

			tx, err := svc.Expire(context.Background(), "ABCDEFGHIJKLMNOP")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, tx.Status)
		})
	}
}

func TestReservationService_UpdateStatus(t *testing.T) {
	t.Run("Completing without shareholders", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestReservationService(repo)
		repo.On("GetTransaction", mock.Anything, "ABCDEFGHIJKLMNOP").Return(activeTx(1), nil)

		_, err := svc.UpdateStatus(context.Background(), "ABCDEFGHIJKLMNOP", models.ReservationCompleted)
		assert.ErrorIs(t, err, ErrShareholdersRequired)
	})

	t.Run("Back to active is rejected", func(t *testing.T) {
		svc := newTestReservationService(new(MockRepository))
		_, err := svc.UpdateStatus(context.Background(), "ABCDEFGHIJKLMNOP", models.ReservationActive)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("Cancel", func(t *testing.T) {
		repo := new(MockRepository).allowChangeLogs()
		svc := newTestReservationService(repo)
		canceled := activeTx(1)
		canceled.Status = models.ReservationCanceled
		repo.On("TransitionTransaction", mock.Anything, "ABCDEFGHIJKLMNOP", models.ReservationCanceled).Return(canceled, nil)

		tx, err := svc.UpdateStatus(context.Background(), "ABCDEFGHIJKLMNOP", models.ReservationCanceled)
		require.NoError(t, err)
		assert.Equal(t, models.ReservationCanceled, tx.Status)
	})
}

func TestReservationService_ExpireOverdue(t *testing.T) {
	repo := new(MockRepository).allowChangeLogs()
	svc := newTestReservationService(repo)

	overdue := []models.ReservationTransaction{
		{TransactionID: "AAAAAAAAAAAAAAAA", Status: models.ReservationActive, ShareCount: 1},
		{TransactionID: "BBBBBBBBBBBBBBBB", Status: models.ReservationActive, ShareCount: 2},
		{TransactionID: "CCCCCCCCCCCCCCCC", Status: models.ReservationActive, ShareCount: 3},
	}
	repo.On("ListOverdueTransactions", mock.Anything, fixedNow, overdueBatch).Return(overdue, nil).Once()
	repo.On("TransitionTransaction", mock.Anything, "AAAAAAAAAAAAAAAA", models.ReservationExpired).Return(&overdue[0], nil)
	repo.On("TransitionTransaction", mock.Anything, "BBBBBBBBBBBBBBBB", models.ReservationExpired).Return(&overdue[1], storage.ErrStatusConflict)
	repo.On("TransitionTransaction", mock.Anything, "CCCCCCCCCCCCCCCC", models.ReservationExpired).Return(nil, errors.New("db down"))

	n, err := svc.ExpireOverdue(context.Background(), fixedNow)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	repo.AssertExpectations(t)
}

func TestReservationService_DeliveryFee(t *testing.T) {
	svc := newTestReservationService(new(MockRepository))
	assert.Equal(t, 0, svc.DeliveryFee(models.DeliveryAtSlaughterhouse))
	assert.Equal(t, 750, svc.DeliveryFee(models.DeliveryCollective))
}
