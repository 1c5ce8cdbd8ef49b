package services

import (
	"context"
	"errors"
	"fmt"
	"sacrifice-website/models"
	"sacrifice-website/realtime"
	"sacrifice-website/storage"
	"slices"
	"time"
)

// stageSaveAttempts bounds how often a stage update is re-read and retried
// after losing a race to another admin.
const stageSaveAttempts = 3

// TrackingService moves animals through the slaughter, butcher and delivery
// queues and builds the public dashboard.
type TrackingService struct {
	repo    StageRepository
	changes *ChangeLogService
	store   *realtime.Store[[]models.StageMetric]
	now     func() time.Time
}

func NewTrackingService(repo StageRepository, changes *ChangeLogService, store *realtime.Store[[]models.StageMetric]) *TrackingService {
	return &TrackingService{
		repo:    repo,
		changes: changes,
		store:   store,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func validStage(stage models.Stage) bool {
	return slices.Contains(models.Stages, stage)
}

// Stages returns the metrics in pipeline order
func (s *TrackingService) Stages(ctx context.Context) ([]models.StageMetric, error) {
	var (
		metrics []models.StageMetric
		err     error
	)
	if s.store != nil {
		metrics, err = s.store.Get(ctx)
	} else {
		metrics, err = s.repo.ListStageMetrics(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list stage metrics: %w", err)
	}

	byStage := make(map[models.Stage]models.StageMetric, len(metrics))
	for _, m := range metrics {
		byStage[m.Stage] = m
	}
	out := make([]models.StageMetric, 0, len(models.Stages))
	for _, st := range models.Stages {
		m, ok := byStage[st]
		if !ok {
			m = models.StageMetric{Stage: st}
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *TrackingService) Version() uint64 {
	if s.store == nil {
		return 0
	}
	return s.store.Version()
}

func (s *TrackingService) get(ctx context.Context, stage models.Stage) (*models.StageMetric, error) {
	if !validStage(stage) {
		return nil, ErrStageNotFound
	}
	m, err := s.repo.GetStageMetric(ctx, stage)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = &models.StageMetric{Stage: stage}
	}
	return m, nil
}

// update reads the stage, applies change and saves it only if nobody moved
// the counter in between. A lost race re-reads and tries again.
func (s *TrackingService) update(ctx context.Context, stage models.Stage, change func(m *models.StageMetric)) (*models.StageMetric, int, error) {
	for attempt := 0; attempt < stageSaveAttempts; attempt++ {
		m, err := s.get(ctx, stage)
		if err != nil {
			return nil, 0, err
		}
		prev := m.CurrentSacrificeNumber
		change(m)

		err = s.repo.SaveStageMetric(ctx, m, prev)
		if err == nil {
			return m, prev, nil
		}
		if !errors.Is(err, storage.ErrConcurrentUpdate) {
			return nil, 0, fmt.Errorf("save stage metric: %w", err)
		}
	}
	return nil, 0, ErrConcurrentUpdate
}

// Advance moves the stage to the next animal. The time since the previous
// advance is folded into the running average.
func (s *TrackingService) Advance(ctx context.Context, stage models.Stage, editor string) (*models.StageMetric, error) {
	m, prev, err := s.update(ctx, stage, func(m *models.StageMetric) {
		now := s.now()
		prev := m.CurrentSacrificeNumber
		if prev >= 1 && !m.UpdatedAt.IsZero() {
			elapsed := now.Sub(m.UpdatedAt).Seconds()
			if elapsed < 0 {
				elapsed = 0
			}
			m.AvgProgressDuration = (m.AvgProgressDuration*float64(prev-1) + elapsed) / float64(prev)
		}
		m.CurrentSacrificeNumber = prev + 1
		m.UpdatedAt = now
	})
	if err != nil {
		return nil, err
	}

	var diff Diff
	diff.Add("current_sacrifice_number", prev, m.CurrentSacrificeNumber)
	s.changes.RecordUpdate(ctx, tableStageMetrics, string(stage), editor,
		fmt.Sprintf("%s advanced to #%d", stage, m.CurrentSacrificeNumber), diff)
	return m, nil
}

// Set corrects the current number without touching the average
func (s *TrackingService) Set(ctx context.Context, stage models.Stage, number int, editor string) (*models.StageMetric, error) {
	if number < 0 {
		return nil, ErrInvalidShareCount
	}
	m, prev, err := s.update(ctx, stage, func(m *models.StageMetric) {
		m.CurrentSacrificeNumber = number
		m.UpdatedAt = s.now()
	})
	if err != nil {
		return nil, err
	}

	var diff Diff
	diff.Add("current_sacrifice_number", prev, number)
	s.changes.RecordUpdate(ctx, tableStageMetrics, string(stage), editor,
		fmt.Sprintf("%s set to #%d", stage, number), diff)
	return m, nil
}

// Tracking builds the dashboard. With sacrificeNo > 0 each stage also
// reports how many animals are ahead and the estimated wait.
func (s *TrackingService) Tracking(ctx context.Context, sacrificeNo int) (*models.Tracking, error) {
	version := s.Version()
	metrics, err := s.Stages(ctx)
	if err != nil {
		return nil, err
	}

	out := &models.Tracking{
		Version:     version,
		SacrificeNo: sacrificeNo,
		Stages:      make([]models.StageProgress, 0, len(metrics)),
		GeneratedAt: s.now(),
	}
	for _, m := range metrics {
		p := models.StageProgress{StageMetric: m}
		if sacrificeNo > 0 {
			remaining := max(sacrificeNo-m.CurrentSacrificeNumber, 0)
			wait := float64(remaining) * m.AvgProgressDuration
			done := m.CurrentSacrificeNumber >= sacrificeNo
			p.Remaining = &remaining
			p.EstimatedWaitSec = &wait
			p.Done = &done
		}
		out.Stages = append(out.Stages, p)
	}
	return out, nil
}
