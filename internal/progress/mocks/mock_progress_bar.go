// SPDX-License-Identifier: Apache-2.0

package mocks

import "sync/atomic"

// Bar keeps track of the progress reported to it. AddFn and CloseFn are
// optional.
type Bar struct {
	AddFn   func(int) error
	CloseFn func() error

	added  atomic.Int64
	closed atomic.Bool
}

func (b *Bar) Add(n int) error {
	b.added.Add(int64(n))
	if b.AddFn != nil {
		return b.AddFn(n)
	}
	return nil
}

func (b *Bar) Close() error {
	b.closed.Store(true)
	if b.CloseFn != nil {
		return b.CloseFn()
	}
	return nil
}

func (b *Bar) Added() int64 {
	return b.added.Load()
}

func (b *Bar) Closed() bool {
	return b.closed.Load()
}
