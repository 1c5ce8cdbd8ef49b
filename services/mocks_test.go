package services

import (
	"context"
	"sacrifice-website/models"
	"time"

	"github.com/stretchr/testify/mock"
)

// ==================== MOCKS ====================

// MockRepository is a mock implementation of every repository interface
type MockRepository struct {
	mock.Mock
}

// Ensure MockRepository implements the repository interfaces
var (
	_ SacrificeRepository   = (*MockRepository)(nil)
	_ ReservationRepository = (*MockRepository)(nil)
	_ ShareholderRepository = (*MockRepository)(nil)
	_ ChangeLogRepository   = (*MockRepository)(nil)
	_ StageRepository       = (*MockRepository)(nil)
	_ UserRepository        = (*MockRepository)(nil)
)

func (m *MockRepository) ListSacrifices(ctx context.Context) ([]models.SacrificeAnimal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SacrificeAnimal), args.Error(1)
}

func (m *MockRepository) GetSacrifice(ctx context.Context, sacrificeID string) (*models.SacrificeAnimal, error) {
	args := m.Called(ctx, sacrificeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SacrificeAnimal), args.Error(1)
}

func (m *MockRepository) CreateSacrifice(ctx context.Context, animal *models.SacrificeAnimal) error {
	return m.Called(ctx, animal).Error(0)
}

func (m *MockRepository) UpdateSacrifice(ctx context.Context, animal *models.SacrificeAnimal) error {
	return m.Called(ctx, animal).Error(0)
}

func (m *MockRepository) DeleteSacrifice(ctx context.Context, sacrificeID string) error {
	return m.Called(ctx, sacrificeID).Error(0)
}

func (m *MockRepository) SetEmptyShare(ctx context.Context, sacrificeID string, emptyShare int, editor string) error {
	return m.Called(ctx, sacrificeID, emptyShare, editor).Error(0)
}

func (m *MockRepository) ReserveShares(ctx context.Context, tx *models.ReservationTransaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockRepository) GetTransaction(ctx context.Context, transactionID string) (*models.ReservationTransaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReservationTransaction), args.Error(1)
}

func (m *MockRepository) TransitionTransaction(ctx context.Context, transactionID string, to models.ReservationStatus) (*models.ReservationTransaction, error) {
	args := m.Called(ctx, transactionID, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReservationTransaction), args.Error(1)
}

func (m *MockRepository) CompleteTransaction(ctx context.Context, transactionID string, shareholders []models.Shareholder) (*models.ReservationTransaction, error) {
	args := m.Called(ctx, transactionID, shareholders)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReservationTransaction), args.Error(1)
}

func (m *MockRepository) ListOverdueTransactions(ctx context.Context, now time.Time, limit int) ([]models.ReservationTransaction, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReservationTransaction), args.Error(1)
}

func (m *MockRepository) ListShareholders(ctx context.Context, filter models.ShareholderFilter) ([]models.Shareholder, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Shareholder), args.Error(1)
}

func (m *MockRepository) GetShareholder(ctx context.Context, shareholderID string) (*models.Shareholder, error) {
	args := m.Called(ctx, shareholderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shareholder), args.Error(1)
}

func (m *MockRepository) UpdateShareholder(ctx context.Context, shareholder *models.Shareholder) error {
	return m.Called(ctx, shareholder).Error(0)
}

func (m *MockRepository) DeleteShareholder(ctx context.Context, shareholderID, editor string) error {
	return m.Called(ctx, shareholderID, editor).Error(0)
}

func (m *MockRepository) InsertChangeLogs(ctx context.Context, logs []models.ChangeLog) error {
	return m.Called(ctx, logs).Error(0)
}

func (m *MockRepository) ListChangeLogs(ctx context.Context, filter models.ChangeLogFilter) ([]models.ChangeLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChangeLog), args.Error(1)
}

func (m *MockRepository) ListStageMetrics(ctx context.Context) ([]models.StageMetric, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StageMetric), args.Error(1)
}

func (m *MockRepository) GetStageMetric(ctx context.Context, stage models.Stage) (*models.StageMetric, error) {
	args := m.Called(ctx, stage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StageMetric), args.Error(1)
}

func (m *MockRepository) SaveStageMetric(ctx context.Context, metric *models.StageMetric, expected int) error {
	return m.Called(ctx, metric, expected).Error(0)
}

func (m *MockRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockRepository) UpsertUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

// allowChangeLogs accepts any audit writes
func (m *MockRepository) allowChangeLogs() *MockRepository {
	m.On("InsertChangeLogs", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// MockSessionStore is a mock implementation of SessionStore interface
type MockSessionStore struct {
	mock.Mock
}

var _ SessionStore = (*MockSessionStore)(nil)

func (m *MockSessionStore) Create(ctx context.Context, user *models.User) (*models.Session, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

// MockExporter is a mock implementation of Exporter interface
type MockExporter struct {
	mock.Mock
}

var _ Exporter = (*MockExporter)(nil)

func (m *MockExporter) ExportShareholders(ctx context.Context, shareholders []models.Shareholder, animals []models.SacrificeAnimal) (int, error) {
	args := m.Called(ctx, shareholders, animals)
	return args.Int(0), args.Error(1)
}
