package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPair   = errors.New("invalid currency pair")
	ErrInvalidPrice  = errors.New("bid and ask must be positive")
	ErrDuplicatePair = errors.New("currency pair already exists")
	ErrPairNotFound  = errors.New("currency pair not found")
)

// Provider failure classes.
var (
	ErrUnknownPair    = errors.New("currency pair is not listed by provider")
	ErrMalformedQuote = errors.New("provider returned malformed quote")
	ErrTransport      = errors.New("provider request failed")
	ErrDecode         = errors.New("provider response could not be decoded")
)

// AcquisitionError is returned when a rate could not be obtained from the provider.
// The provider failure is kept as the wrapped cause.
type AcquisitionError struct {
	Pair string
	Err  error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire rate for pair %q: %v", e.Pair, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// StoreError is a persistence failure of a rate store operation.
type StoreError struct {
	Op   string
	Pair string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Pair == "" {
		return fmt.Sprintf("rate store %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("rate store %s failed for pair %q: %v", e.Op, e.Pair, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
