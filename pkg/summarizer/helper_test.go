// SPDX-License-Identifier: Apache-2.0

package summarizer

import (
	"context"
	"sync"
)

type mockGenerator struct {
	generateFn func(ctx context.Context, req *GenerationRequest) (string, error)

	mu       sync.Mutex
	requests []*GenerationRequest
}

func (m *mockGenerator) Generate(ctx context.Context, req *GenerationRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.generateFn(ctx, req)
}

// echoGenerator returns the forced prefix followed by a summary naming the
// mention, mimicking a well behaved model.
func echoGenerator() *mockGenerator {
	return &mockGenerator{
		generateFn: func(_ context.Context, req *GenerationRequest) (string, error) {
			return req.ForcedPrefix + " summary of " + req.ForcedPrefix[len("[1] "):len(req.ForcedPrefix)-1] + " [2] other", nil
		},
	}
}

const testDocument = `Russian President Vladimir Putin has met his commanders in two regions of Ukraine that Moscow claims to have annexed, while Russian forces stepped up heavy artillery bombardments and air strikes on Tuesday on the devastated Ukrainian city of Bakhmut.
Ukraine's President Volodymyr Zelenskiy, meanwhile, visited troops in the eastern town of Avdiivka.`
