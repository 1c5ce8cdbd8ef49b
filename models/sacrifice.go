package models

import "time"

// MaxSharesPerAnimal is the number of shares a single animal is split into.
const MaxSharesPerAnimal = 7

type SacrificeAnimal struct {
	ID             string    `json:"sacrifice_id" db:"sacrifice_id"`
	No             int       `json:"sacrifice_no" db:"sacrifice_no"`
	Time           string    `json:"sacrifice_time" db:"sacrifice_time"`
	SharePrice     int       `json:"share_price" db:"share_price"`
	EmptyShare     int       `json:"empty_share" db:"empty_share"`
	Notes          string    `json:"notes" db:"notes"`
	LastEditedBy   string    `json:"last_edited_by" db:"last_edited_by"`
	LastEditedTime time.Time `json:"last_edited_time" db:"last_edited_time"`
}

type CreateSacrificeRequest struct {
	No         int    `json:"sacrifice_no" validate:"required,gte=1"`
	Time       string `json:"sacrifice_time" validate:"omitempty,clock"`
	SharePrice int    `json:"share_price" validate:"required,gte=1"`
	EmptyShare *int   `json:"empty_share" validate:"omitempty,gte=0,lte=7"`
	Notes      string `json:"notes" validate:"max=500"`
}

type UpdateSacrificeRequest struct {
	Time       *string `json:"sacrifice_time" validate:"omitempty,clock"`
	SharePrice *int    `json:"share_price" validate:"omitempty,gte=1"`
	Notes      *string `json:"notes" validate:"omitempty,max=500"`
}

type UpdateShareCountRequest struct {
	EmptyShare *int `json:"empty_share" validate:"required,gte=0,lte=7"`
}

// Availability maps an empty share count to how many animals have it.
type Availability map[int]int
