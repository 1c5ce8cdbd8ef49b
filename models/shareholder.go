package models

import "time"

type DeliveryType string

const (
	DeliveryAtSlaughterhouse DeliveryType = "kesimhane"
	DeliveryCollective       DeliveryType = "toplu-teslim"
)

type Shareholder struct {
	ID               string       `json:"shareholder_id" db:"shareholder_id"`
	Name             string       `json:"shareholder_name" db:"shareholder_name"`
	PhoneNumber      string       `json:"phone_number" db:"phone_number"`
	TransactionID    string       `json:"transaction_id" db:"transaction_id"`
	SacrificeID      string       `json:"sacrifice_id" db:"sacrifice_id"`
	SharePrice       int          `json:"share_price" db:"share_price"`
	DeliveryType     DeliveryType `json:"delivery_type" db:"delivery_type"`
	DeliveryLocation string       `json:"delivery_location" db:"delivery_location"`
	DeliveryFee      int          `json:"delivery_fee" db:"delivery_fee"`
	TotalAmount      int          `json:"total_amount" db:"total_amount"`
	PaidAmount       int          `json:"paid_amount" db:"paid_amount"`
	RemainingPayment int          `json:"remaining_payment" db:"remaining_payment"`
	SacrificeConsent bool         `json:"sacrifice_consent" db:"sacrifice_consent"`
	ContactConsent   bool         `json:"contact_consent" db:"contact_consent"`
	SecurityCode     string       `json:"-" db:"security_code"`
	PurchaseTime     time.Time    `json:"purchase_time" db:"purchase_time"`
	LastEditedBy     string       `json:"last_edited_by" db:"last_edited_by"`
	LastEditedTime   time.Time    `json:"last_edited_time" db:"last_edited_time"`
	Notes            string       `json:"notes" db:"notes"`
}

// ShareholderInput is one buyer entered at checkout.
type ShareholderInput struct {
	Name             string       `json:"shareholder_name" validate:"required,min=3,max=100"`
	PhoneNumber      string       `json:"phone_number" validate:"required,phone"`
	DeliveryType     DeliveryType `json:"delivery_type" validate:"required,deliverytype"`
	DeliveryLocation string       `json:"delivery_location" validate:"max=200"`
	SacrificeConsent bool         `json:"sacrifice_consent"`
	ContactConsent   bool         `json:"contact_consent"`
	SecurityCode     string       `json:"security_code" validate:"required,securitycode"`
}

type UpdateShareholderRequest struct {
	Name             *string       `json:"shareholder_name" validate:"omitempty,min=3,max=100"`
	PhoneNumber      *string       `json:"phone_number" validate:"omitempty,phone"`
	DeliveryType     *DeliveryType `json:"delivery_type" validate:"omitempty,deliverytype"`
	DeliveryLocation *string       `json:"delivery_location" validate:"omitempty,max=200"`
	PaidAmount       *int          `json:"paid_amount" validate:"omitempty,gte=0"`
	SacrificeConsent *bool         `json:"sacrifice_consent"`
	Notes            *string       `json:"notes" validate:"omitempty,max=500"`
}

type ShareholderLookupRequest struct {
	PhoneNumber  string `json:"phone_number" validate:"required,phone"`
	SecurityCode string `json:"security_code" validate:"required,securitycode"`
}

// ShareholderFilter narrows admin listings. Zero values mean no filter.
type ShareholderFilter struct {
	SacrificeID string
	PhoneNumber string
	Unpaid      bool
	Limit       int
	Offset      int
}

// ShareHolding is what a buyer sees when querying their share.
type ShareHolding struct {
	Shareholder
	SacrificeNo   int    `json:"sacrifice_no"`
	SacrificeTime string `json:"sacrifice_time"`
}
