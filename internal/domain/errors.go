package domain

import "github.com/cockroachdb/errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")

	ErrRoomNotAvailable = errors.New("room is not available")
	ErrRoomNotOccupied  = errors.New("room is not occupied")
	ErrNoGuests         = errors.New("at least one guest is required")
)
