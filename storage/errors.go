package storage

import "errors"

// Backend-neutral persistence errors
var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicate          = errors.New("record already exists")
	ErrInsufficientShares = errors.New("not enough empty shares")
	ErrStatusConflict     = errors.New("transaction is not active")
	ErrHasShareholders    = errors.New("sacrifice has shareholders")
	ErrConcurrentUpdate   = errors.New("concurrent update, retry")
)
