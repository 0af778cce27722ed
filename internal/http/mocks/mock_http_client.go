// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"net/http"
	"sync"
)

// Client hands every request to DoFn, keeping count of the calls it receives.
type Client struct {
	DoFn func(call int, req *http.Request) (*http.Response, error)

	mu    sync.Mutex
	calls int
}

func (m *Client) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()
	return m.DoFn(call, req)
}

func (m *Client) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
