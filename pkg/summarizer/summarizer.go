// SPDX-License-Identifier: Apache-2.0

package summarizer

import (
	"context"
	"fmt"

	loglib "github.com/xataio/docsync/pkg/log"
)

// Target is a mention of an entity in the document, identified by its rune
// offsets. Several targets can share the same UUID.
type Target struct {
	UUID      int64 `json:"target_uuid"`
	SpanStart int   `json:"span_start"`
	SpanEnd   int   `json:"span_end"`
}

type Summary struct {
	TargetUUID int64  `json:"target_uuid"`
	Summary    string `json:"summary"`
}

// GenerationRequest is the input of one generation. The output must start
// with ForcedPrefix.
type GenerationRequest struct {
	Model             string  `json:"model,omitempty"`
	Prompt            string  `json:"prompt"`
	ForcedPrefix      string  `json:"forced_prefix"`
	MaxNewTokens      int     `json:"max_new_tokens"`
	NumBeams          int     `json:"num_beams"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	EndOfSequence     string  `json:"eos"`
	DoSample          bool    `json:"do_sample"`
}

// Generator produces the text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req *GenerationRequest) (string, error)
}

// Summarizer produces one summary per entity mentioned in a document.
type Summarizer struct {
	generator Generator
	logger    loglib.Logger
	cfg       Config
}

type Option func(*Summarizer)

func New(generator Generator, cfg *Config, opts ...Option) *Summarizer {
	s := &Summarizer{
		generator: generator,
		logger:    loglib.NewNoopLogger(),
		cfg:       *cfg,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func WithLogger(l loglib.Logger) Option {
	return func(s *Summarizer) {
		s.logger = loglib.NewModuleLogger(l, "summarizer")
	}
}

// Summarize generates a summary for every distinct target UUID, in the order
// the UUIDs first appear in the targets. Targets whose generated text can't be
// parsed are skipped. A generator failure aborts the whole request.
func (s *Summarizer) Summarize(ctx context.Context, document string, targets []Target) ([]Summary, error) {
	entities := resolveMentions(document, targets)
	mentions := make([]string, 0, len(entities))
	for _, e := range entities {
		mentions = append(mentions, e.mention)
	}

	summaries := make([]Summary, 0, len(entities))
	for _, e := range entities {
		s.logger.Debug("summarizing target", loglib.Fields{
			"target_uuid": e.uuid,
			"mention":     e.mention,
		})

		text, err := s.generator.Generate(ctx, s.generationRequest(buildPrompt(mentions, e.mention, document), e.mention))
		if err != nil {
			return nil, fmt.Errorf("generating summary for target %d: %w", e.uuid, err)
		}

		summary, err := parseSummary(text)
		if err != nil {
			s.logger.Warn(err, "skipping unparseable summary", loglib.Fields{
				"target_uuid": e.uuid,
				"output":      text,
			})
			continue
		}
		summaries = append(summaries, Summary{TargetUUID: e.uuid, Summary: summary})
	}

	return summaries, nil
}

func (s *Summarizer) generationRequest(prompt, mention string) *GenerationRequest {
	return &GenerationRequest{
		Model:             s.cfg.Model,
		Prompt:            prompt,
		ForcedPrefix:      fmt.Sprintf("[1] %s:", mention),
		MaxNewTokens:      s.cfg.maxNewTokens(),
		NumBeams:          s.cfg.numBeams(),
		RepetitionPenalty: s.cfg.repetitionPenalty(),
		EndOfSequence:     s.cfg.endOfSequence(),
		DoSample:          false,
	}
}
