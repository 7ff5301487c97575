package slots

import "errors"

var (
	ErrSlotNotFound = errors.New("slot not found")
	ErrInvalidInput = errors.New("invalid slot input")
)
