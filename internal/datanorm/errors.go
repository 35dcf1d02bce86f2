package datanorm

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSheet  = errors.New("missing required sheet")
	ErrMissingColumn = errors.New("missing required column")
)

// ValidationError reports a structurally invalid input. Column is empty when
// the whole sheet is missing.
type ValidationError struct {
	Sheet  string
	Column string
}

func (e *ValidationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s: %q", ErrMissingSheet, e.Sheet)
	}
	return fmt.Sprintf("%s: sheet %q has no %q column", ErrMissingColumn, e.Sheet, e.Column)
}

// Is lets errors.Is match the sentinels.
func (e *ValidationError) Is(target error) bool {
	if e.Column == "" {
		return target == ErrMissingSheet
	}
	return target == ErrMissingColumn
}
