package models

import "time"

type Stage string

const (
	StageSlaughter Stage = "slaughter_stage"
	StageButcher   Stage = "butcher_stage"
	StageDelivery  Stage = "delivery_stage"
)

// Stages lists the pipeline in processing order.
var Stages = []Stage{StageSlaughter, StageButcher, StageDelivery}

type StageMetric struct {
	Stage                  Stage     `json:"stage" db:"stage"`
	CurrentSacrificeNumber int       `json:"current_sacrifice_number" db:"current_sacrifice_number"`
	AvgProgressDuration    float64   `json:"avg_progress_duration" db:"avg_progress_duration"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}

type SetStageRequest struct {
	CurrentSacrificeNumber *int `json:"current_sacrifice_number" validate:"required,gte=0"`
}

// StageProgress is one row of the tracking dashboard.
type StageProgress struct {
	StageMetric
	Remaining        *int     `json:"remaining,omitempty"`
	EstimatedWaitSec *float64 `json:"estimated_wait_seconds,omitempty"`
	Done             *bool    `json:"done,omitempty"`
}

type Tracking struct {
	Version     uint64          `json:"version"`
	SacrificeNo int             `json:"sacrifice_no,omitempty"`
	Stages      []StageProgress `json:"stages"`
	GeneratedAt time.Time       `json:"generated_at"`
}
