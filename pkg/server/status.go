// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"

	"github.com/xataio/docsync/pkg/docstore"
)

var errorKindStatus = map[string]int{
	docstore.KindArgument:         http.StatusBadRequest,
	docstore.KindSchema:           http.StatusUnprocessableEntity,
	docstore.KindNotFound:         http.StatusNotFound,
	docstore.KindAlreadyExists:    http.StatusConflict,
	docstore.KindResourceNotFound: http.StatusNotFound,
	docstore.KindConflict:         http.StatusConflict,
	docstore.KindRequest:          http.StatusBadRequest,
	docstore.KindAuthorization:    http.StatusBadGateway,
	docstore.KindTransport:        http.StatusServiceUnavailable,
	docstore.KindEngine:           http.StatusBadGateway,
	docstore.KindPartialUpdate:    http.StatusInternalServerError,
}

// httpStatus returns the status code for the response. Successful responses
// use the status on input.
func httpStatus(resp *docstore.Response, success int) int {
	switch resp.Status {
	case docstore.StatusOK, docstore.StatusNoDocuments:
		return success
	case docstore.StatusNotFound:
		return http.StatusNotFound
	}

	if status, found := errorKindStatus[resp.ErrorKind]; found {
		return status
	}
	return http.StatusInternalServerError
}
