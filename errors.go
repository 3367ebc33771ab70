package quoteboard

import (
	"errors"
	"fmt"
)

var (
	// ErrOverflowRetryExhausted means the text did not fit at any attempted scale.
	ErrOverflowRetryExhausted = errors.New("quoteboard: text does not fit after scale reduction")
	// ErrMeasurementUnavailable means the Measurer failed or returned a non-finite width.
	ErrMeasurementUnavailable = errors.New("quoteboard: text measurement unavailable")
	// ErrInvalidBox means the content box has no usable area.
	ErrInvalidBox = errors.New("quoteboard: invalid content box")
	// ErrInvalidConfig means a Config field is out of range.
	ErrInvalidConfig = errors.New("quoteboard: invalid config")
	// ErrInvalidScale means the starting scale is not a positive finite number.
	ErrInvalidScale = errors.New("quoteboard: invalid scale")
)

// LayoutError is returned by Engine.Layout when no layout could be produced.
//
// Kind is either ErrOverflowRetryExhausted or ErrMeasurementUnavailable, and
// errors.Is matches both Kind and Cause.
type LayoutError struct {
	Kind     error
	Scale    float64 // Scale of the last attempt, or the rejected next scale
	Attempts int     // Number of packing attempts made
	Cause    error   // Measurement failure, if any
}

func (e *LayoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v at scale %.4g after %d attempts: %v", e.Kind, e.Scale, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("%v (scale %.4g, %d attempts)", e.Kind, e.Scale, e.Attempts)
}

func (e *LayoutError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
