package analyses

import "errors"

// ErrNotFound indicates the analysis does not exist.
var ErrNotFound = errors.New("analysis not found")

// ErrForbidden indicates the caller does not own the analysis.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidTransition indicates an update that would move an analysis
// out of a terminal status or skip the processing step.
var ErrInvalidTransition = errors.New("invalid status transition")
