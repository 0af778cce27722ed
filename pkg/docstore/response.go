// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"errors"
	"reflect"
)

type Status string

const (
	StatusOK          Status = "ok"
	StatusNoDocuments Status = "no_documents"
	StatusNotFound    Status = "not_found"
	StatusError       Status = "error"
)

const noDocumentsMessage = "no documents found"

// Response is the uniform result shape of the store operations, as rendered
// by the HTTP API and the CLI.
type Response struct {
	Status    Status `json:"status"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse renders the result of an operation. Data is kept on errors, so
// that partial outcomes are still reported. An empty query result has its own
// status.
func NewResponse(data any, err error) *Response {
	if v := reflect.ValueOf(data); v.Kind() == reflect.Pointer && v.IsNil() {
		data = nil
	}

	if err != nil {
		status := StatusError
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			status = StatusNotFound
		}
		return &Response{
			Status:    status,
			ErrorKind: ErrorKind(err),
			Message:   err.Error(),
			Data:      data,
		}
	}

	if result, ok := data.(*QueryResult); ok && result.IsEmpty() {
		return &Response{
			Status:  StatusNoDocuments,
			Message: noDocumentsMessage,
			Data:    result,
		}
	}

	return &Response{
		Status: StatusOK,
		Data:   data,
	}
}
