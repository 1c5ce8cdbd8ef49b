package services

import (
	"context"
	"sacrifice-website/models"
	"time"

	"google.golang.org/api/idtoken"
)

// SacrificeRepository defines the interface for sacrifice data access
type SacrificeRepository interface {
	ListSacrifices(ctx context.Context) ([]models.SacrificeAnimal, error)
	GetSacrifice(ctx context.Context, sacrificeID string) (*models.SacrificeAnimal, error)
	CreateSacrifice(ctx context.Context, animal *models.SacrificeAnimal) error
	UpdateSacrifice(ctx context.Context, animal *models.SacrificeAnimal) error
	DeleteSacrifice(ctx context.Context, sacrificeID string) error
	SetEmptyShare(ctx context.Context, sacrificeID string, emptyShare int, editor string) error
}

// ReservationRepository defines the interface for reservation data access
type ReservationRepository interface {
	GetSacrifice(ctx context.Context, sacrificeID string) (*models.SacrificeAnimal, error)
	ReserveShares(ctx context.Context, tx *models.ReservationTransaction) error
	GetTransaction(ctx context.Context, transactionID string) (*models.ReservationTransaction, error)
	TransitionTransaction(ctx context.Context, transactionID string, to models.ReservationStatus) (*models.ReservationTransaction, error)
	CompleteTransaction(ctx context.Context, transactionID string, shareholders []models.Shareholder) (*models.ReservationTransaction, error)
	ListOverdueTransactions(ctx context.Context, now time.Time, limit int) ([]models.ReservationTransaction, error)
}

// ShareholderRepository defines the interface for shareholder data access
type ShareholderRepository interface {
	GetSacrifice(ctx context.Context, sacrificeID string) (*models.SacrificeAnimal, error)
	ListShareholders(ctx context.Context, filter models.ShareholderFilter) ([]models.Shareholder, error)
	GetShareholder(ctx context.Context, shareholderID string) (*models.Shareholder, error)
	UpdateShareholder(ctx context.Context, shareholder *models.Shareholder) error
	DeleteShareholder(ctx context.Context, shareholderID, editor string) error
}

// ChangeLogRepository defines the interface for audit trail access
type ChangeLogRepository interface {
	InsertChangeLogs(ctx context.Context, logs []models.ChangeLog) error
	ListChangeLogs(ctx context.Context, filter models.ChangeLogFilter) ([]models.ChangeLog, error)
}

// StageRepository defines the interface for stage metric access
type StageRepository interface {
	ListStageMetrics(ctx context.Context) ([]models.StageMetric, error)
	GetStageMetric(ctx context.Context, stage models.Stage) (*models.StageMetric, error)
	SaveStageMetric(ctx context.Context, metric *models.StageMetric, expected int) error
}

// UserRepository defines the interface for admin user access
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
}

// SessionStore defines the interface for session management
type SessionStore interface {
	Create(ctx context.Context, user *models.User) (*models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// Exporter writes shareholders to an external sheet
type Exporter interface {
	ExportShareholders(ctx context.Context, shareholders []models.Shareholder, animals []models.SacrificeAnimal) (int, error)
}

// TokenValidator checks a Google ID token; production uses idtoken.Validate
type TokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
