package catalog

import (
	"errors"
	"fmt"
)

// All catalog errors carry the target identifiers so callers can build an
// actionable message without re-deriving context.

type NotFoundError struct {
	Kind       string // "work" | "source" | "revision" | "branch"
	WorkID     string
	SourceID   string
	RevisionID string
	Branch     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found (work=%s source=%s revision=%s branch=%s)",
		e.Kind, e.WorkID, e.SourceID, e.RevisionID, e.Branch)
}

type ConflictError struct {
	Reason     string
	WorkID     string
	SourceID   string
	RevisionID string
	Branch     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s (work=%s source=%s revision=%s branch=%s)",
		e.Reason, e.WorkID, e.SourceID, e.RevisionID, e.Branch)
}

type UnauthorizedError struct {
	Action     string
	WorkID     string
	SourceID   string
	RevisionID string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized to %s (work=%s source=%s revision=%s)",
		e.Action, e.WorkID, e.SourceID, e.RevisionID)
}

type InvalidStateError struct {
	Detail     string
	WorkID     string
	SourceID   string
	RevisionID string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: %s (work=%s source=%s revision=%s)",
		e.Detail, e.WorkID, e.SourceID, e.RevisionID)
}

// UpstreamError wraps an object-store or VCS backend failure during an
// append. The append is aborted with no metadata written.
type UpstreamError struct {
	Op       string
	WorkID   string
	SourceID string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed (work=%s source=%s): %v",
		e.Op, e.WorkID, e.SourceID, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsUnauthorized(err error) bool {
	var e *UnauthorizedError
	return errors.As(err, &e)
}

func IsInvalidState(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

func IsUpstream(err error) bool {
	var e *UpstreamError
	return errors.As(err, &e)
}
