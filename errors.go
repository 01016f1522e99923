package matcha

import (
	"errors"
	"fmt"

	"github.com/matchadb/matcha/internal/vindex"
)

// Category sentinels. Every concrete error returned by the store matches
// exactly one of these via errors.Is, so callers can branch on failure
// class without knowing the concrete type.
var (
	// ErrContractViolation marks caller mistakes: wrong dimensionality,
	// unknown spaces, invalid top-k. Never retried.
	ErrContractViolation = errors.New("matcha: contract violation")

	// ErrUnavailable marks failures of the backing snapshot storage.
	// Retryable by the caller; the store never retries internally.
	ErrUnavailable = errors.New("matcha: backing store unavailable")

	// ErrNotFound is returned by point reads and deletes for absent items.
	ErrNotFound = errors.New("matcha: not found")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("matcha: store is closed")
)

var (
	// ErrInvalidTopK is returned when a search requests fewer than one result.
	ErrInvalidTopK = fmt.Errorf("top-k must be >= 1: %w", ErrContractViolation)

	// ErrNoVectors is returned for an upsert item that carries no vectors.
	ErrNoVectors = fmt.Errorf("item has no vectors: %w", ErrContractViolation)
)

// DimensionMismatchError indicates a vector or query whose length does
// not match the declared dimensionality of its space.
type DimensionMismatchError struct {
	Space    string
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("space %q: dimension mismatch: expected %d, got %d", e.Space, e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrContractViolation }

// UnknownSpaceError indicates a reference to a space that was never
// declared. Distinct from an empty search result.
type UnknownSpaceError struct {
	Space string
}

func (e *UnknownSpaceError) Error() string {
	return fmt.Sprintf("unknown vector space %q", e.Space)
}

func (e *UnknownSpaceError) Unwrap() error { return ErrContractViolation }

// SpaceMismatchError indicates a redeclaration of an existing space with
// conflicting parameters. The existing declaration always wins; the
// caller must keep space configuration stable.
type SpaceMismatchError struct {
	Name      string
	Existing  SpaceSpec
	Requested SpaceSpec
}

func (e *SpaceMismatchError) Error() string {
	return fmt.Sprintf("space %q already declared with dimension %d (%s), redeclared with dimension %d (%s)",
		e.Name, e.Existing.Dimension, e.Existing.Metric, e.Requested.Dimension, e.Requested.Metric)
}

func (e *SpaceMismatchError) Unwrap() error { return ErrContractViolation }

// InvalidVectorError indicates a vector that cannot participate in
// cosine similarity, e.g. an empty or zero-norm vector.
type InvalidVectorError struct {
	Space  string
	Reason string
}

func (e *InvalidVectorError) Error() string {
	if e.Space == "" {
		return fmt.Sprintf("invalid vector: %s", e.Reason)
	}
	return fmt.Sprintf("space %q: invalid vector: %s", e.Space, e.Reason)
}

func (e *InvalidVectorError) Unwrap() error { return ErrContractViolation }

// UnavailableError wraps a backing-storage failure with the operation
// that hit it. The original error is available via errors.Unwrap.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: backing store unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() []error { return []error{ErrUnavailable, e.Err} }

// SnapshotFormatError indicates a snapshot that cannot be decoded:
// bad magic, unsupported version, checksum mismatch, or truncation.
type SnapshotFormatError struct {
	Reason string
}

func (e *SnapshotFormatError) Error() string {
	return fmt.Sprintf("invalid snapshot: %s", e.Reason)
}

// translateError maps internal errors to the public taxonomy at the API
// boundary. Errors already in the taxonomy pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, vindex.ErrDimension) {
		var dm *DimensionMismatchError
		if errors.As(err, &dm) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrContractViolation, err)
	}

	return err
}
