package model

import "errors"

// Error taxonomy for one generation run.
//
// Only ErrConfiguration crosses the engine's outer boundary; upstream,
// validation, and duplicate failures resolve into a partial result.
var (
	// ErrConfiguration marks a missing precondition (absent credentials,
	// invalid request). Checked before any external call; aborts the run.
	ErrConfiguration = errors.New("configuration error")

	// ErrUpstream marks a failed embedding/search/generation call.
	// Recovered via fallback where available; otherwise the slot is
	// abandoned for the current round.
	ErrUpstream = errors.New("upstream service error")

	// ErrValidation marks malformed or incomplete generation output.
	// Triggers the bounded in-slot retry.
	ErrValidation = errors.New("validation error")

	// ErrDuplicate marks a fingerprint or normalized-stem collision.
	// Silently rejected and only reflected in aggregate counts.
	ErrDuplicate = errors.New("duplicate item")
)
