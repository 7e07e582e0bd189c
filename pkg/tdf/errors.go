package tdf

import "errors"

var (
	ErrEmptyReport              = errors.New("avl report is empty")
	ErrMissingVehicleIdentifier = errors.New("avl report has no vehicle identifier")
	ErrMissingLocation          = errors.New("avl report has no usable location")
	ErrMissingTimestamp         = errors.New("avl report has no recorded at timestamp")
)
