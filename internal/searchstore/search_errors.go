// SPDX-License-Identifier: Apache-2.0

package searchstore

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xataio/docsync/internal/json"
)

type ResponseError struct {
	Type         string           `mapstructure:"type"`
	Reason       string           `mapstructure:"reason"`
	FailedShards []map[string]any `mapstructure:"failed_shards"`
	CausedBy     *CausedBy        `mapstructure:"caused_by"`
	RootCause    []RootCause      `mapstructure:"root_cause"`
}

type CausedBy struct {
	Type   string `mapstructure:"type"`
	Reason string `mapstructure:"reason"`
}

type RootCause struct {
	Type   string `mapstructure:"type"`
	Reason string `mapstructure:"reason"`
}

// StatusError is an engine error response that doesn't map to any of the
// known error categories.
type StatusError struct {
	StatusCode int
	Type       string
	Reason     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Type, e.Reason)
}

type RetryableError struct {
	Cause error
}

func (r RetryableError) Error() string {
	return fmt.Sprintf("%v", r.Cause)
}

func (r RetryableError) Unwrap() error {
	return r.Cause
}

type ErrIllegalArgument struct {
	Reason string
}

func (e *ErrIllegalArgument) Error() string {
	return e.Reason
}

type ErrResourceAlreadyExists struct {
	Reason string
}

func (e ErrResourceAlreadyExists) Error() string {
	return fmt.Sprintf("resource already exists: %s", e.Reason)
}

type ErrQueryInvalid struct {
	Cause error
}

func (e ErrQueryInvalid) Error() string {
	return e.Cause.Error()
}

func (e ErrQueryInvalid) Unwrap() error {
	return e.Cause
}

const (
	SearchExecutionException       = "search_phase_execution_exception"
	TooManyBucketsException        = "too_many_buckets_exception"
	TooManyNestedClausesException  = "too_many_nested_clauses"
	TooManyClausesException        = "too_many_clauses"
	IllegalArgumentException       = "illegal_argument_exception"
	SnapshotInProgressException    = "snapshot_in_progress_exception"
	ResourceAlreadyExistsException = "resource_already_exists_exception"
	IndexNotFoundException         = "index_not_found_exception"
)

var (
	ErrTooManyRequests            = errors.New("too many requests")
	ErrTooManyBuckets             = errors.New("too many buckets")
	ErrTooManyNestedClauses       = errors.New("too many nested clauses")
	ErrTooManyClauses             = errors.New("too many clauses")
	ErrUnsupportedSearchFieldType = errors.New("unsupported search field type")
	ErrResourceNotFound           = errors.New("search resource not found")
	ErrUnauthorized               = errors.New("not authorized")
	ErrConflict                   = errors.New("version conflict")
	ErrBulkResponseMismatch       = errors.New("bulk response item count mismatch")
)

type apiResponse interface {
	GetBody() io.ReadCloser
	GetStatusCode() int
	IsError() bool
}

func IsErrResponse(res apiResponse) error {
	if !res.IsError() {
		return nil
	}
	return ExtractResponseError(res.GetBody(), res.GetStatusCode())
}

// ExtractResponseError decodes the engine error envelope in the body and maps
// it to one of the package errors based on the status code and error type.
func ExtractResponseError(body io.ReadCloser, statusCode int) error {
	var e map[string]any
	if err := json.NewDecoder(body).Decode(&e); err != nil {
		if statusCode == http.StatusNotFound {
			return fmt.Errorf("%w: [%d]", ErrResourceNotFound, statusCode)
		}
		return fmt.Errorf("decoding error response: %w", err)
	}

	errType, errReason := "<unknown error type>", "<unknown error reason>"
	switch eErr := e["error"].(type) {
	case string:
		// some APIs return a plain string error
		errType, errReason = "error", eErr
	case map[string]any:
		var respErr ResponseError
		if err := mapstructure.Decode(eErr, &respErr); err == nil {
			errType, errReason = respErr.Type, respErr.Reason
			if respErr.Type == SearchExecutionException {
				if err := searchExecutionError(&respErr); err != nil {
					return err
				}
				marshalled, _ := json.Marshal(respErr.FailedShards)
				errReason = string(marshalled)
			}
		}
	}

	if err, ok := getRetryableError(statusCode); ok {
		return RetryableError{Cause: err}
	}

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: [%d]: %s: %s", ErrResourceNotFound, statusCode, errType, errReason)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: [%d]: %s: %s", ErrUnauthorized, statusCode, errType, errReason)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, errReason)
	case http.StatusBadRequest:
		switch errType {
		case ResourceAlreadyExistsException:
			return ErrResourceAlreadyExists{Reason: errReason}
		case SnapshotInProgressException:
			return RetryableError{Cause: fmt.Errorf("[%d] %s: %s", statusCode, errType, errReason)}
		case IllegalArgumentException:
			return &ErrIllegalArgument{Reason: errReason}
		default:
			return ErrQueryInvalid{Cause: errors.New(errReason)}
		}
	}

	return &StatusError{StatusCode: statusCode, Type: errType, Reason: errReason}
}

func searchExecutionError(respErr *ResponseError) error {
	if respErr.CausedBy != nil {
		switch respErr.CausedBy.Type {
		case TooManyBucketsException:
			return ErrTooManyBuckets
		case TooManyNestedClausesException:
			return ErrTooManyNestedClauses
		case TooManyClausesException:
			return ErrTooManyClauses
		case IllegalArgumentException:
			return &ErrIllegalArgument{Reason: respErr.CausedBy.Reason}
		}
	}
	if len(respErr.RootCause) > 0 {
		if respErr.RootCause[0].Type == TooManyNestedClausesException {
			return ErrTooManyNestedClauses
		}
		if strings.Contains(respErr.RootCause[0].Reason, "failed to create query") {
			return ErrQueryInvalid{Cause: errors.New(respErr.RootCause[0].Reason)}
		}
	}
	return nil
}

func getRetryableError(statusCode int) (error, bool) {
	switch statusCode {
	case http.StatusRequestTimeout:
		return errors.New("request timeout"), true
	case http.StatusLocked:
		return errors.New("resource locked"), true
	case http.StatusTooEarly:
		return errors.New("too early"), true
	case http.StatusTooManyRequests:
		return ErrTooManyRequests, true
	case http.StatusBadGateway:
		return errors.New("bad gateway"), true
	case http.StatusServiceUnavailable:
		return errors.New("service unavailable"), true
	case http.StatusGatewayTimeout:
		return errors.New("gateway timeout"), true
	}

	return nil, false
}
