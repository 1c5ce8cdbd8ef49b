package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sacrifice-website/models"
	"sacrifice-website/storage"
	"sacrifice-website/validator"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TransactionIDLength = 16
	transactionAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	tableSacrifices   = "sacrifice_animals"
	tableTransactions = "reservation_transactions"
	tableShareholders = "shareholders"
	tableStageMetrics = "stage_metrics"
	tableUsers        = "users"

	systemOwner     = "system"
	overdueBatch    = 100
	idGenerateTries = 3
)

// NewTransactionID returns a random 16 character alphanumeric id.
func NewTransactionID() string {
	var b strings.Builder
	b.Grow(TransactionIDLength)
	size := big.NewInt(int64(len(transactionAlphabet)))
	for i := 0; i < TransactionIDLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand failed: %v", err))
		}
		b.WriteByte(transactionAlphabet[n.Int64()])
	}
	return b.String()
}

type ReservationConfig struct {
	TTL         time.Duration
	MaxShares   int
	DeliveryFee int
}

// ReservationService runs the checkout flow: hold shares, then either
// complete with shareholders or release them.
type ReservationService struct {
	repo    ReservationRepository
	changes *ChangeLogService
	cfg     ReservationConfig
	now     func() time.Time
	newID   func() string
}

func NewReservationService(repo ReservationRepository, changes *ChangeLogService, cfg ReservationConfig) *ReservationService {
	if cfg.MaxShares < 1 || cfg.MaxShares > models.MaxSharesPerAnimal {
		cfg.MaxShares = models.MaxSharesPerAnimal
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	return &ReservationService{
		repo:    repo,
		changes: changes,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   NewTransactionID,
	}
}

func mapReservationError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrTransactionNotFound
	case errors.Is(err, storage.ErrStatusConflict):
		return ErrTransactionNotActive
	case errors.Is(err, storage.ErrConcurrentUpdate):
		return ErrConcurrentUpdate
	}
	return err
}

// Create holds shareCount shares of an animal for the configured TTL.
func (s *ReservationService) Create(ctx context.Context, sacrificeID string, shareCount int) (*models.ReservationTransaction, error) {
	if shareCount < 1 || shareCount > s.cfg.MaxShares {
		return nil, ErrInvalidShareCount
	}

	now := s.now()
	for attempt := 0; attempt < idGenerateTries; attempt++ {
		tx := &models.ReservationTransaction{
			TransactionID: s.newID(),
			SacrificeID:   sacrificeID,
			ShareCount:    shareCount,
			Status:        models.ReservationActive,
			ExpiresAt:     now.Add(s.cfg.TTL),
			CreatedAt:     now,
		}

		err := s.repo.ReserveShares(ctx, tx)
		switch {
		case err == nil:
			slog.Info("Shares reserved",
				"transaction_id", tx.TransactionID,
				"sacrifice_id", sacrificeID,
				"share_count", shareCount,
			)
			return tx, nil
		case errors.Is(err, storage.ErrDuplicate):
			continue
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrSacrificeNotFound
		case errors.Is(err, storage.ErrInsufficientShares):
			return nil, ErrInsufficientShares
		case errors.Is(err, storage.ErrConcurrentUpdate):
			return nil, ErrConcurrentUpdate
		default:
			return nil, fmt.Errorf("reserve shares: %w", err)
		}
	}
	return nil, fmt.Errorf("reserve shares: %w", storage.ErrDuplicate)
}

func (s *ReservationService) Get(ctx context.Context, transactionID string) (*models.ReservationTransaction, error) {
	tx, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}

// DeliveryFee returns the fee charged for a delivery type.
func (s *ReservationService) DeliveryFee(t models.DeliveryType) int {
	if t == models.DeliveryCollective {
		return s.cfg.DeliveryFee
	}
	return 0
}

// Complete turns an active reservation into one shareholder per share.
func (s *ReservationService) Complete(ctx context.Context, transactionID string, inputs []models.ShareholderInput) (*models.CompletedReservation, error) {
	tx, err := s.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != models.ReservationActive {
		return nil, ErrTransactionNotActive
	}
	if !s.now().Before(tx.ExpiresAt) {
		// Release the hold now rather than waiting for the expiry worker
		if _, err := s.repo.TransitionTransaction(ctx, transactionID, models.ReservationExpired); err != nil && !errors.Is(err, storage.ErrStatusConflict) {
			slog.Warn("Failed to expire overdue reservation", "transaction_id", transactionID, "error", err)
		}
		return nil, ErrTransactionNotActive
	}
	if len(inputs) != tx.ShareCount {
		return nil, ErrShareCountMismatch
	}

	animal, err := s.repo.GetSacrifice(ctx, tx.SacrificeID)
	if err != nil {
		return nil, err
	}
	if animal == nil {
		return nil, ErrSacrificeNotFound
	}

	holders := make([]models.Shareholder, 0, len(inputs))
	for _, in := range inputs {
		phone, ok := validator.NormalizePhone(in.PhoneNumber)
		if !ok {
			return nil, ErrInvalidPhone
		}
		fee := s.DeliveryFee(in.DeliveryType)
		total := animal.SharePrice + fee
		holders = append(holders, models.Shareholder{
			ID:               uuid.NewString(),
			Name:             strings.TrimSpace(in.Name),
			PhoneNumber:      phone,
			TransactionID:    tx.TransactionID,
			SacrificeID:      animal.ID,
			SharePrice:       animal.SharePrice,
			DeliveryType:     in.DeliveryType,
			DeliveryLocation: strings.TrimSpace(in.DeliveryLocation),
			DeliveryFee:      fee,
			TotalAmount:      total,
			PaidAmount:       0,
			RemainingPayment: total,
			SacrificeConsent: in.SacrificeConsent,
			ContactConsent:   in.ContactConsent,
			SecurityCode:     in.SecurityCode,
			LastEditedBy:     systemOwner,
		})
	}

	completed, err := s.repo.CompleteTransaction(ctx, transactionID, holders)
	if err != nil {
		return nil, mapReservationError(err)
	}

	for _, sh := range holders {
		s.changes.RecordInsert(ctx, tableShareholders, sh.ID, sh.Name,
			fmt.Sprintf("%s bought a share of sacrifice #%d", sh.Name, animal.No))
	}
	var diff Diff
	diff.Add("status", models.ReservationActive, models.ReservationCompleted)
	s.changes.RecordUpdate(ctx, tableTransactions, tx.TransactionID, systemOwner, "reservation completed", diff)

	slog.Info("Reservation completed", "transaction_id", tx.TransactionID, "shareholders", len(holders))
	return &models.CompletedReservation{Transaction: completed, Shareholders: holders}, nil
}

// finish moves an active reservation to a releasing status. Repeating the
// same request returns the current row.
func (s *ReservationService) finish(ctx context.Context, transactionID string, to models.ReservationStatus, owner string) (*models.ReservationTransaction, error) {
	tx, err := s.repo.TransitionTransaction(ctx, transactionID, to)
	if err != nil {
		if errors.Is(err, storage.ErrStatusConflict) && tx != nil && tx.Status == to {
			return tx, nil
		}
		return nil, mapReservationError(err)
	}

	var diff Diff
	diff.Add("status", models.ReservationActive, to)
	s.changes.RecordUpdate(ctx, tableTransactions, transactionID, owner,
		fmt.Sprintf("reservation %s, %d shares released", to, tx.ShareCount), diff)
	return tx, nil
}

func (s *ReservationService) Expire(ctx context.Context, transactionID string) (*models.ReservationTransaction, error) {
	return s.finish(ctx, transactionID, models.ReservationExpired, systemOwner)
}

func (s *ReservationService) Cancel(ctx context.Context, transactionID string) (*models.ReservationTransaction, error) {
	return s.finish(ctx, transactionID, models.ReservationCanceled, systemOwner)
}

// UpdateStatus is the generic status endpoint. Completing needs shareholders,
// so it only succeeds as an idempotent repeat.
func (s *ReservationService) UpdateStatus(ctx context.Context, transactionID string, status models.ReservationStatus) (*models.ReservationTransaction, error) {
	switch status {
	case models.ReservationExpired, models.ReservationCanceled:
		return s.finish(ctx, transactionID, status, systemOwner)
	case models.ReservationCompleted:
		tx, err := s.Get(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		if tx.Status == models.ReservationCompleted {
			return tx, nil
		}
		if tx.Status != models.ReservationActive {
			return nil, ErrTransactionNotActive
		}
		return nil, ErrShareholdersRequired
	default:
		return nil, ErrInvalidStatus
	}
}

// ExpireOverdue expires every active reservation past its deadline and
// returns how many were expired.
func (s *ReservationService) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	for {
		overdue, err := s.repo.ListOverdueTransactions(ctx, now, overdueBatch)
		if err != nil {
			return expired, err
		}

		progressed := 0
		for _, tx := range overdue {
			if _, err := s.repo.TransitionTransaction(ctx, tx.TransactionID, models.ReservationExpired); err != nil {
				if errors.Is(err, storage.ErrStatusConflict) {
					// Completed or canceled in the meantime
					progressed++
					continue
				}
				slog.Warn("Failed to expire reservation", "transaction_id", tx.TransactionID, "error", err)
				continue
			}
			expired++
			progressed++
			var diff Diff
			diff.Add("status", models.ReservationActive, models.ReservationExpired)
			s.changes.RecordUpdate(ctx, tableTransactions, tx.TransactionID, systemOwner, "reservation timed out", diff)
		}

		if len(overdue) < overdueBatch || progressed == 0 {
			return expired, nil
		}
	}
}
