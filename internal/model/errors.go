package model

import "errors"

// Domain error sentinels. Callers classify failures with errors.Is; messages
// carry the specifics via eris wrapping at the call site.
var (
	// ErrInvalidInput marks caller errors (bad coordinates, category, or
	// location). Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidRequestSize marks a requested lead count outside the fixed
	// {10,25,50,100} enumeration. Fatal for the whole batch.
	ErrInvalidRequestSize = errors.New("invalid request size")

	// ErrNoPropertiesFound means zero candidates were found across all price
	// bands. Fatal for the whole batch.
	ErrNoPropertiesFound = errors.New("no properties found")

	// ErrImageRetrieval means the satellite imagery provider was unreachable
	// or misconfigured.
	ErrImageRetrieval = errors.New("satellite image retrieval failed")

	// ErrVisionUnavailable means every provider in the vision chain failed at
	// the transport level.
	ErrVisionUnavailable = errors.New("all vision providers unavailable")

	// ErrMalformedAnalysis means a vision provider responded but the payload
	// violated the category schema. A data-quality failure, not availability:
	// it is never retried against another provider.
	ErrMalformedAnalysis = errors.New("malformed vision analysis")
)
