package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrConfiguration  = errors.New("missing configuration")
	ErrSubmission     = errors.New("vendor submission rejected")
	ErrVendorTerminal = errors.New("vendor task failed")
	ErrTemporary      = errors.New("temporary failure")
	ErrBudgetExceeded = errors.New("time budget exceeded")
	ErrNarrative      = errors.New("narrative enrichment failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
