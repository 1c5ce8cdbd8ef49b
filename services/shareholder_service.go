package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sacrifice-website/models"
	"sacrifice-website/storage"
	"sacrifice-website/validator"
	"strings"
	"time"
)

// ShareholderService handles buyers after checkout
type ShareholderService struct {
	repo     ShareholderRepository
	changes  *ChangeLogService
	exporter Exporter
	fee      int
}

// NewShareholderService creates a shareholder service. exporter may be nil
// when no sheet is configured.
func NewShareholderService(repo ShareholderRepository, changes *ChangeLogService, exporter Exporter, deliveryFee int) *ShareholderService {
	return &ShareholderService{repo: repo, changes: changes, exporter: exporter, fee: deliveryFee}
}

func (s *ShareholderService) List(ctx context.Context, filter models.ShareholderFilter) ([]models.Shareholder, error) {
	if filter.PhoneNumber != "" {
		if phone, ok := validator.NormalizePhone(filter.PhoneNumber); ok {
			filter.PhoneNumber = phone
		}
	}
	if filter.Limit < 0 {
		filter.Limit = 0
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListShareholders(ctx, filter)
}

func (s *ShareholderService) Get(ctx context.Context, shareholderID string) (*models.Shareholder, error) {
	sh, err := s.repo.GetShareholder(ctx, shareholderID)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, ErrShareholderNotFound
	}
	return sh, nil
}

// Update edits payment, delivery and consent fields and recomputes totals
func (s *ShareholderService) Update(ctx context.Context, shareholderID string, req models.UpdateShareholderRequest, editor string) (*models.Shareholder, error) {
	sh, err := s.Get(ctx, shareholderID)
	if err != nil {
		return nil, err
	}

	var diff Diff
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		diff.Add("shareholder_name", sh.Name, name)
		sh.Name = name
	}
	if req.PhoneNumber != nil {
		phone, ok := validator.NormalizePhone(*req.PhoneNumber)
		if !ok {
			return nil, ErrInvalidPhone
		}
		diff.Add("phone_number", sh.PhoneNumber, phone)
		sh.PhoneNumber = phone
	}
	if req.DeliveryType != nil {
		fee := 0
		if *req.DeliveryType == models.DeliveryCollective {
			fee = s.fee
		}
		diff.Add("delivery_type", sh.DeliveryType, *req.DeliveryType)
		diff.Add("delivery_fee", sh.DeliveryFee, fee)
		sh.DeliveryType = *req.DeliveryType
		sh.DeliveryFee = fee
	}
	if req.DeliveryLocation != nil {
		loc := strings.TrimSpace(*req.DeliveryLocation)
		diff.Add("delivery_location", sh.DeliveryLocation, loc)
		sh.DeliveryLocation = loc
	}
	if req.PaidAmount != nil {
		diff.Add("paid_amount", sh.PaidAmount, *req.PaidAmount)
		sh.PaidAmount = *req.PaidAmount
	}
	if req.SacrificeConsent != nil {
		diff.Add("sacrifice_consent", sh.SacrificeConsent, *req.SacrificeConsent)
		sh.SacrificeConsent = *req.SacrificeConsent
	}
	if req.Notes != nil {
		diff.Add("notes", sh.Notes, *req.Notes)
		sh.Notes = *req.Notes
	}

	total := sh.SharePrice + sh.DeliveryFee
	diff.Add("total_amount", sh.TotalAmount, total)
	diff.Add("remaining_payment", sh.RemainingPayment, total-sh.PaidAmount)
	sh.TotalAmount = total
	sh.RemainingPayment = total - sh.PaidAmount

	if len(diff) == 0 {
		return sh, nil
	}

	sh.LastEditedBy = editor
	sh.LastEditedTime = time.Now().UTC()
	if err := s.repo.UpdateShareholder(ctx, sh); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrShareholderNotFound
		}
		return nil, fmt.Errorf("update shareholder: %w", err)
	}

	s.changes.RecordUpdate(ctx, tableShareholders, sh.ID, editor,
		fmt.Sprintf("shareholder %s updated", sh.Name), diff)
	return sh, nil
}

// Delete removes the shareholder and gives its share back to the animal
func (s *ShareholderService) Delete(ctx context.Context, shareholderID, editor string) error {
	sh, err := s.Get(ctx, shareholderID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteShareholder(ctx, shareholderID, editor); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrShareholderNotFound
		}
		return fmt.Errorf("delete shareholder: %w", err)
	}

	s.changes.RecordDelete(ctx, tableShareholders, shareholderID, editor,
		fmt.Sprintf("shareholder %s deleted, share returned", sh.Name))
	slog.Info("Shareholder deleted", "shareholder_id", shareholderID, "editor", editor)
	return nil
}

// Lookup returns every share bought with the phone number. The security
// code must match at least one of them.
func (s *ShareholderService) Lookup(ctx context.Context, phone, securityCode string) ([]models.ShareHolding, error) {
	normalized, ok := validator.NormalizePhone(phone)
	if !ok {
		return nil, ErrInvalidPhone
	}

	holders, err := s.repo.ListShareholders(ctx, models.ShareholderFilter{PhoneNumber: normalized})
	if err != nil {
		return nil, fmt.Errorf("lookup shareholders: %w", err)
	}
	if len(holders) == 0 {
		return nil, ErrShareholderNotFound
	}

	matched := make([]models.Shareholder, 0, len(holders))
	for _, h := range holders {
		if subtle.ConstantTimeCompare([]byte(h.SecurityCode), []byte(securityCode)) == 1 {
			matched = append(matched, h)
		}
	}
	if len(matched) == 0 {
		return nil, ErrInvalidSecurityCode
	}

	animals := make(map[string]*models.SacrificeAnimal)
	out := make([]models.ShareHolding, 0, len(matched))
	for _, h := range matched {
		animal, seen := animals[h.SacrificeID]
		if !seen {
			animal, err = s.repo.GetSacrifice(ctx, h.SacrificeID)
			if err != nil {
				return nil, err
			}
			animals[h.SacrificeID] = animal
		}
		holding := models.ShareHolding{Shareholder: h}
		if animal != nil {
			holding.SacrificeNo = animal.No
			holding.SacrificeTime = animal.Time
		}
		out = append(out, holding)
	}
	return out, nil
}

// Export writes all shareholders to the configured sheet
func (s *ShareholderService) Export(ctx context.Context, animals []models.SacrificeAnimal) (int, error) {
	if s.exporter == nil {
		return 0, ErrExportUnavailable
	}
	holders, err := s.repo.ListShareholders(ctx, models.ShareholderFilter{})
	if err != nil {
		return 0, fmt.Errorf("list shareholders: %w", err)
	}
	n, err := s.exporter.ExportShareholders(ctx, holders, animals)
	if err != nil {
		return 0, fmt.Errorf("export shareholders: %w", err)
	}
	slog.Info("Shareholders exported", "rows", n)
	return n, nil
}
