package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sacrifice-website/models"
	"sacrifice-website/realtime"
	"sacrifice-website/storage"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SacrificeService manages the animals on sale
type SacrificeService struct {
	repo    SacrificeRepository
	changes *ChangeLogService
	store   *realtime.Store[[]models.SacrificeAnimal]
}

// NewSacrificeService creates a sacrifice service. store may be nil, in
// which case listings always hit the repository.
func NewSacrificeService(repo SacrificeRepository, changes *ChangeLogService, store *realtime.Store[[]models.SacrificeAnimal]) *SacrificeService {
	return &SacrificeService{repo: repo, changes: changes, store: store}
}

// List returns all animals ordered by sacrifice number
func (s *SacrificeService) List(ctx context.Context) ([]models.SacrificeAnimal, error) {
	var (
		animals []models.SacrificeAnimal
		err     error
	)
	if s.store != nil {
		animals, err = s.store.Get(ctx)
	} else {
		animals, err = s.repo.ListSacrifices(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list sacrifices: %w", err)
	}

	out := make([]models.SacrificeAnimal, len(animals))
	copy(out, animals)
	sort.SliceStable(out, func(i, j int) bool { return out[i].No < out[j].No })
	return out, nil
}

// Version identifies the cached listing; zero without a store
func (s *SacrificeService) Version() uint64 {
	if s.store == nil {
		return 0
	}
	return s.store.Version()
}

func (s *SacrificeService) Get(ctx context.Context, sacrificeID string) (*models.SacrificeAnimal, error) {
	animal, err := s.repo.GetSacrifice(ctx, sacrificeID)
	if err != nil {
		return nil, err
	}
	if animal == nil {
		return nil, ErrSacrificeNotFound
	}
	return animal, nil
}

func (s *SacrificeService) Create(ctx context.Context, req models.CreateSacrificeRequest, editor string) (*models.SacrificeAnimal, error) {
	emptyShare := models.MaxSharesPerAnimal
	if req.EmptyShare != nil {
		emptyShare = *req.EmptyShare
	}
	if emptyShare < 0 || emptyShare > models.MaxSharesPerAnimal {
		return nil, ErrInvalidShareCount
	}

	animal := &models.SacrificeAnimal{
		ID:             uuid.NewString(),
		No:             req.No,
		Time:           req.Time,
		SharePrice:     req.SharePrice,
		EmptyShare:     emptyShare,
		Notes:          strings.TrimSpace(req.Notes),
		LastEditedBy:   editor,
		LastEditedTime: time.Now().UTC(),
	}

	if err := s.repo.CreateSacrifice(ctx, animal); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrSacrificeExists
		}
		return nil, fmt.Errorf("create sacrifice: %w", err)
	}

	s.changes.RecordInsert(ctx, tableSacrifices, animal.ID, editor,
		fmt.Sprintf("sacrifice #%d added", animal.No))
	slog.Info("Sacrifice created", "sacrifice_id", animal.ID, "sacrifice_no", animal.No, "editor", editor)
	return animal, nil
}

func (s *SacrificeService) Update(ctx context.Context, sacrificeID string, req models.UpdateSacrificeRequest, editor string) (*models.SacrificeAnimal, error) {
	animal, err := s.Get(ctx, sacrificeID)
	if err != nil {
		return nil, err
	}

	var diff Diff
	if req.Time != nil {
		diff.Add("sacrifice_time", animal.Time, *req.Time)
		animal.Time = *req.Time
	}
	if req.SharePrice != nil {
		diff.Add("share_price", animal.SharePrice, *req.SharePrice)
		animal.SharePrice = *req.SharePrice
	}
	if req.Notes != nil {
		notes := strings.TrimSpace(*req.Notes)
		diff.Add("notes", animal.Notes, notes)
		animal.Notes = notes
	}
	if len(diff) == 0 {
		return animal, nil
	}

	animal.LastEditedBy = editor
	animal.LastEditedTime = time.Now().UTC()
	if err := s.repo.UpdateSacrifice(ctx, animal); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSacrificeNotFound
		}
		return nil, fmt.Errorf("update sacrifice: %w", err)
	}

	s.changes.RecordUpdate(ctx, tableSacrifices, animal.ID, editor,
		fmt.Sprintf("sacrifice #%d updated", animal.No), diff)
	return animal, nil
}

// Delete removes an animal that has no shareholders
func (s *SacrificeService) Delete(ctx context.Context, sacrificeID, editor string) error {
	animal, err := s.Get(ctx, sacrificeID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteSacrifice(ctx, sacrificeID); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return ErrSacrificeNotFound
		case errors.Is(err, storage.ErrHasShareholders):
			return ErrHasShareholders
		}
		return fmt.Errorf("delete sacrifice: %w", err)
	}

	s.changes.RecordDelete(ctx, tableSacrifices, sacrificeID, editor,
		fmt.Sprintf("sacrifice #%d deleted", animal.No))
	slog.Info("Sacrifice deleted", "sacrifice_id", sacrificeID, "editor", editor)
	return nil
}

// UpdateShareCount overwrites the empty share counter
func (s *SacrificeService) UpdateShareCount(ctx context.Context, sacrificeID string, emptyShare int, editor string) (*models.SacrificeAnimal, error) {
	if emptyShare < 0 || emptyShare > models.MaxSharesPerAnimal {
		return nil, ErrInvalidShareCount
	}
	animal, err := s.Get(ctx, sacrificeID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetEmptyShare(ctx, sacrificeID, emptyShare, editor); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSacrificeNotFound
		}
		return nil, fmt.Errorf("set empty share: %w", err)
	}

	var diff Diff
	diff.Add("empty_share", animal.EmptyShare, emptyShare)
	s.changes.RecordUpdate(ctx, tableSacrifices, sacrificeID, editor,
		fmt.Sprintf("sacrifice #%d share count set", animal.No), diff)

	animal.EmptyShare = emptyShare
	animal.LastEditedBy = editor
	animal.LastEditedTime = time.Now().UTC()
	return animal, nil
}

// Availability counts animals per empty share value, 1 through 7. Sold out
// animals are left out.
func (s *SacrificeService) Availability(ctx context.Context) (models.Availability, error) {
	animals, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(models.Availability, models.MaxSharesPerAnimal)
	for n := 1; n <= models.MaxSharesPerAnimal; n++ {
		out[n] = 0
	}
	for _, a := range animals {
		if a.EmptyShare > 0 {
			out[a.EmptyShare]++
		}
	}
	return out, nil
}
