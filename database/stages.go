package database

import (
	"context"
	"fmt"
	"sacrifice-website/models"
	"sacrifice-website/realtime"
	"sacrifice-website/storage"
	"sort"
)

const TableStageMetrics = "stage_metrics"

// ==================== STAGE OPERATIONS ====================

// ListStageMetrics returns the stages in processing order.
func (r *Repository) ListStageMetrics(ctx context.Context) ([]models.StageMetric, error) {
	metrics := make([]models.StageMetric, 0, len(models.Stages))
	err := r.db.SelectContext(ctx, &metrics,
		`SELECT stage, current_sacrifice_number, avg_progress_duration, updated_at FROM stage_metrics`)
	if err != nil {
		return nil, fmt.Errorf("list stage metrics: %w", err)
	}

	order := make(map[models.Stage]int, len(models.Stages))
	for i, s := range models.Stages {
		order[s] = i
	}
	sort.SliceStable(metrics, func(i, j int) bool {
		return order[metrics[i].Stage] < order[metrics[j].Stage]
	})
	return metrics, nil
}

func (r *Repository) GetStageMetric(ctx context.Context, stage models.Stage) (*models.StageMetric, error) {
	var m models.StageMetric
	err := r.db.GetContext(ctx, &m, r.db.Rebind(`
		SELECT stage, current_sacrifice_number, avg_progress_duration, updated_at
		FROM stage_metrics WHERE stage = ?
	`), stage)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stage metric: %w", err)
	}
	return &m, nil
}

// SaveStageMetric writes m only while the stored counter still equals
// expected. A lost race yields storage.ErrConcurrentUpdate.
func (r *Repository) SaveStageMetric(ctx context.Context, m *models.StageMetric, expected int) error {
	m.UpdatedAt = r.now()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE stage_metrics
		SET current_sacrifice_number = ?, avg_progress_duration = ?, updated_at = ?
		WHERE stage = ? AND current_sacrifice_number = ?
	`), m.CurrentSacrificeNumber, m.AvgProgressDuration, m.UpdatedAt, m.Stage, expected)
	if err != nil {
		return fmt.Errorf("save stage metric: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}

	if n == 0 {
		current, err := r.GetStageMetric(ctx, m.Stage)
		if err != nil {
			return err
		}
		if current != nil {
			return storage.ErrConcurrentUpdate
		}
		_, err = r.db.NamedExecContext(ctx, `
			INSERT INTO stage_metrics (stage, current_sacrifice_number, avg_progress_duration, updated_at)
			VALUES (:stage, :current_sacrifice_number, :avg_progress_duration, :updated_at)
		`, m)
		if isUniqueViolation(err) {
			return storage.ErrConcurrentUpdate
		}
		if err != nil {
			return fmt.Errorf("save stage metric: %w", err)
		}
	}

	r.publishOne(TableStageMetrics, realtime.EventUpdate, m, nil)
	return nil
}
