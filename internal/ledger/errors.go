package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks input the ledger refused without changing state
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateBatchNumber is returned when a submission cannot be given unique batch numbers
	ErrDuplicateBatchNumber = errors.New("duplicate batch number")
	// ErrItemNotFound is returned when no item has the requested id
	ErrItemNotFound = errors.New("stock item not found")
)

// ValidationError names the fields that made an operation decline
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrValidation, e.Reason, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(reason string, fields ...string) error {
	return &ValidationError{Fields: fields, Reason: reason}
}
