// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"net/http"
)

type Client interface {
	Do(*http.Request) (*http.Response, error)
}

// Server is a blocking HTTP server that can be shut down gracefully.
type Server interface {
	Start(address string) error
	Shutdown(context.Context) error
}
