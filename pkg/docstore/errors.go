// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/xataio/docsync/internal/searchstore"
)

// Error kind names, as reported in responses and logs.
const (
	KindArgument         = "ArgumentError"
	KindSchema           = "SchemaError"
	KindNotFound         = "NotFoundError"
	KindAlreadyExists    = "ResourceAlreadyExistsError"
	KindResourceNotFound = "ResourceNotFoundError"
	KindConflict         = "ConflictError"
	KindAuthorization    = "AuthorizationError"
	KindRequest          = "RequestError"
	KindTransport        = "TransportError"
	KindEngine           = "EngineError"
	KindPartialUpdate    = "PartialUpdateError"
)

// ArgumentError reports a caller supplied parameter with the wrong shape. It
// is always returned before any request is sent to the engine.
type ArgumentError struct {
	Argument string
	// Index of the offending document in a multi document call, -1 otherwise.
	Index  int
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid argument %s: document at index %d: %s", e.Argument, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}

// SchemaError reports the first field in a mapping whose type is not part of
// the supported type table.
type SchemaError struct {
	Field  string
	Type   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid schema field %q (%s): %s", e.Field, e.Type, e.Reason)
	}
	return fmt.Sprintf("invalid schema field %q: unsupported type %q", e.Field, e.Type)
}

// NotFoundError is returned when the existence probe finds no document with
// the requested id.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %q not found in collection %q", e.ID, e.Collection)
}

// EngineError wraps a failure reported by the engine or its transport.
type EngineError struct {
	Op    string
	Kind  string
	Cause error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// PartialUpdateError is returned when one of the per field updates fails.
// Fields in Applied were already written and are not rolled back.
type PartialUpdateError struct {
	ID      string
	Applied []string
	Field   string
	Cause   error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("updating field %q of document %q (applied %v): %v", e.Field, e.ID, e.Applied, e.Cause)
}

func (e *PartialUpdateError) Unwrap() error {
	return e.Cause
}

func newEngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return err
	}
	return &EngineError{
		Op:    op,
		Kind:  classifyEngineError(err),
		Cause: err,
	}
}

func classifyEngineError(err error) string {
	var (
		alreadyExists   searchstore.ErrResourceAlreadyExists
		queryInvalid    searchstore.ErrQueryInvalid
		illegalArgument *searchstore.ErrIllegalArgument
		retryable       searchstore.RetryableError
		netErr          net.Error
	)
	switch {
	case errors.As(err, &alreadyExists):
		return KindAlreadyExists
	case errors.Is(err, searchstore.ErrResourceNotFound):
		return KindResourceNotFound
	case errors.Is(err, searchstore.ErrConflict):
		return KindConflict
	case errors.Is(err, searchstore.ErrUnauthorized):
		return KindAuthorization
	case errors.As(err, &queryInvalid),
		errors.As(err, &illegalArgument),
		errors.Is(err, searchstore.ErrTooManyClauses),
		errors.Is(err, searchstore.ErrTooManyNestedClauses),
		errors.Is(err, searchstore.ErrTooManyBuckets):
		return KindRequest
	case errors.As(err, &retryable),
		errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindTransport
	default:
		return KindEngine
	}
}

// ErrorKind returns the kind name of the error on input, or an empty string
// for a nil error.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var (
		argErr     *ArgumentError
		schemaErr  *SchemaError
		notFound   *NotFoundError
		partialErr *PartialUpdateError
		engineErr  *EngineError
	)
	switch {
	case errors.As(err, &argErr):
		return KindArgument
	case errors.As(err, &schemaErr):
		return KindSchema
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &partialErr):
		return KindPartialUpdate
	case errors.As(err, &engineErr):
		return engineErr.Kind
	default:
		return classifyEngineError(err)
	}
}
