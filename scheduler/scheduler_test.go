package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPurger struct {
	mock.Mock
}

func (m *MockPurger) PurgeTransactions(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurger) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := New(new(MockPurger), new(MockPurger), "every day", time.Hour, nil)
	assert.ErrorContains(t, err, JobPurgeTransactions)
}

func TestScheduler_Jobs(t *testing.T) {
	now := time.Date(2026, 6, 20, 4, 0, 0, 0, time.UTC)
	purger := new(MockPurger)
	purger.On("PurgeTransactions", mock.Anything, now.Add(-30*24*time.Hour)).Return(int64(12), nil)
	purger.On("DeleteExpired", mock.Anything).Return(int64(0), errors.New("locked"))

	s, err := New(purger, purger, "0 4 * * *", 30*24*time.Hour, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	assert.Len(t, s.cron.Entries(), 2)

	n, err := s.PurgeTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	// Failures are logged, not propagated
	assert.NotPanics(t, func() { s.run(JobPurgeSessions, s.PurgeSessions) })
	purger.AssertExpectations(t)
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := New(new(MockPurger), new(MockPurger), "0 4 * * *", time.Hour, nil)
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
