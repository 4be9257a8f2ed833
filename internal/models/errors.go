package models

import "errors"

var (
	ErrInvalidCode   = errors.New("invalid stock code")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidBar    = errors.New("invalid bar (high < low)")
	ErrInvalidVolume = errors.New("invalid volume")
	ErrStockNotFound = errors.New("stock not found")
	ErrNoValidDays   = errors.New("no valid trading days in series")
	ErrNoteTooLong   = errors.New("note exceeds maximum length")
	ErrInvalidStatus = errors.New("invalid stock status")
)
