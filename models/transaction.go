package models

import "time"

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCanceled  ReservationStatus = "canceled"
	ReservationExpired   ReservationStatus = "expired"
)

// Terminal reports whether no further transition is allowed.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationCompleted || s == ReservationCanceled || s == ReservationExpired
}

// Releases reports whether entering this status returns the held shares.
func (s ReservationStatus) Releases() bool {
	return s == ReservationCanceled || s == ReservationExpired
}

type ReservationTransaction struct {
	TransactionID  string            `json:"transaction_id" db:"transaction_id"`
	SacrificeID    string            `json:"sacrifice_id" db:"sacrifice_id"`
	ShareCount     int               `json:"share_count" db:"share_count"`
	Status         ReservationStatus `json:"status" db:"status"`
	ExpiresAt      time.Time         `json:"expires_at" db:"expires_at"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	LastEditedTime time.Time         `json:"last_edited_time" db:"last_edited_time"`
}

type CreateReservationRequest struct {
	SacrificeID string `json:"sacrifice_id" validate:"required"`
	ShareCount  int    `json:"share_count" validate:"required,gte=1,lte=7"`
}

type TransactionRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,transactionid"`
}

type UpdateReservationStatusRequest struct {
	TransactionID string            `json:"transaction_id" validate:"required,transactionid"`
	Status        ReservationStatus `json:"status" validate:"required,reservationstatus"`
}

type CompleteReservationRequest struct {
	TransactionID string             `json:"transaction_id" validate:"required,transactionid"`
	Shareholders  []ShareholderInput `json:"shareholders" validate:"required,min=1,max=7,dive"`
}

type CompletedReservation struct {
	Transaction  *ReservationTransaction `json:"transaction"`
	Shareholders []Shareholder           `json:"shareholders"`
}
