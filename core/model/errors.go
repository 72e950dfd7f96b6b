package model

import "errors"

var (
	// ErrConfig marks invalid, non-physical configuration.
	ErrConfig = errors.New("configuration error")
	// ErrDataShape marks price data with the wrong point count or misaligned timestamps.
	ErrDataShape = errors.New("data shape error")
	// ErrSolverUnavailable is returned when the numerical solver cannot be invoked.
	ErrSolverUnavailable = errors.New("solver unavailable")
	// ErrInfeasible is returned when a day has no usable optimal dispatch.
	ErrInfeasible = errors.New("no feasible dispatch")
)
