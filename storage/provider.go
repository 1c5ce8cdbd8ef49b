package storage

import (
	"context"
	"sacrifice-website/models"
	"time"
)

// Provider is the interface for all persistence backends.
// Getters return (nil, nil) when the row does not exist; mutations on a
// missing row return ErrNotFound.
type Provider interface {
	// ==================== SACRIFICE OPERATIONS ====================

	ListSacrifices(ctx context.Context) ([]models.SacrificeAnimal, error)
	GetSacrifice(ctx context.Context, sacrificeID string) (*models.SacrificeAnimal, error)
	CreateSacrifice(ctx context.Context, animal *models.SacrificeAnimal) error
	UpdateSacrifice(ctx context.Context, animal *models.SacrificeAnimal) error
	DeleteSacrifice(ctx context.Context, sacrificeID string) error

	// SetEmptyShare overwrites the empty share counter of an animal
	SetEmptyShare(ctx context.Context, sacrificeID string, emptyShare int, editor string) error

	// ==================== RESERVATION OPERATIONS ====================

	// ReserveShares decrements the animal's empty shares and stores the
	// transaction as one unit. Returns ErrNotFound or ErrInsufficientShares.
	ReserveShares(ctx context.Context, tx *models.ReservationTransaction) error

	GetTransaction(ctx context.Context, transactionID string) (*models.ReservationTransaction, error)

	// TransitionTransaction moves an active transaction to a terminal status,
	// giving the shares back when the status releases them.
	// Returns ErrNotFound or ErrStatusConflict.
	TransitionTransaction(ctx context.Context, transactionID string, to models.ReservationStatus) (*models.ReservationTransaction, error)

	// CompleteTransaction marks an active transaction completed and inserts
	// its shareholders as one unit.
	CompleteTransaction(ctx context.Context, transactionID string, shareholders []models.Shareholder) (*models.ReservationTransaction, error)

	ListOverdueTransactions(ctx context.Context, now time.Time, limit int) ([]models.ReservationTransaction, error)

	// PurgeTransactions deletes terminal transactions last edited before the cutoff
	PurgeTransactions(ctx context.Context, before time.Time) (int64, error)

	// ==================== SHAREHOLDER OPERATIONS ====================

	ListShareholders(ctx context.Context, filter models.ShareholderFilter) ([]models.Shareholder, error)
	GetShareholder(ctx context.Context, shareholderID string) (*models.Shareholder, error)
	UpdateShareholder(ctx context.Context, shareholder *models.Shareholder) error

	// DeleteShareholder removes the shareholder and returns its share to the animal
	DeleteShareholder(ctx context.Context, shareholderID, editor string) error

	// ==================== CHANGE LOG OPERATIONS ====================

	InsertChangeLogs(ctx context.Context, logs []models.ChangeLog) error
	ListChangeLogs(ctx context.Context, filter models.ChangeLogFilter) ([]models.ChangeLog, error)

	// ==================== STAGE OPERATIONS ====================

	ListStageMetrics(ctx context.Context) ([]models.StageMetric, error)
	GetStageMetric(ctx context.Context, stage models.Stage) (*models.StageMetric, error)

	// SaveStageMetric stores metric only if the stage counter still equals
	// expected; otherwise it returns ErrConcurrentUpdate
	SaveStageMetric(ctx context.Context, metric *models.StageMetric, expected int) error

	// ==================== USER OPERATIONS ====================

	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// UpsertUser inserts a user; an existing user only gets profile fields refreshed
	UpsertUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error

	// ==================== SESSION OPERATIONS ====================

	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	TouchSession(ctx context.Context, sessionID string, at time.Time) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	Close() error
}
