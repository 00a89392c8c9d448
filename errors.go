package docqa

import "errors"

// Sentinel errors for the refusal kinds spec.md §7 names. Outcome.Status
// is the caller-facing discriminant; every one of these is attached to
// a log line by refuseWithCause alongside its RefusalReason text, never
// exposed on Outcome itself and never something callers are expected to
// branch on directly. There is no sentinel for an empty/blank query —
// spec.md §4.1 routes that case through the OODGate's own "Out of
// domain" refusal rather than a distinct reason, so ErrOutOfDomain
// already covers it.
var (
	// ErrOutOfDomain is returned when the OODGate refuses a query,
	// including for an empty or blank input.
	ErrOutOfDomain = errors.New("docqa: out of domain")

	// ErrInsufficientRelevance is returned when the GateEngine finds no
	// candidate within threshold.
	ErrInsufficientRelevance = errors.New("docqa: insufficient relevance")

	// ErrCoverageMissing is returned when the CoverageGate finds the
	// retrieved documents don't back every entity the query names.
	ErrCoverageMissing = errors.New("docqa: coverage missing")

	// ErrInvalidSelection is returned on a second call whose
	// selected_option doesn't match any prior option.
	ErrInvalidSelection = errors.New("docqa: invalid selection")

	// ErrBackendFailure wraps an unexpected error from the store or
	// embedder.
	ErrBackendFailure = errors.New("docqa: backend failure")

	// ErrCancelled is returned when ctx is cancelled mid-pipeline.
	ErrCancelled = errors.New("docqa: cancelled")
)
