package diagnostics

import "errors"

// Sentinel errors for the diagnostics service layer.
var (
	ErrNotFound    = errors.New("report not found")
	ErrRunning     = errors.New("a report for this date is already running")
	ErrNoWorkbook  = errors.New("reference workbook is required")
	ErrBadWorkbook = errors.New("workbook could not be read")
)
