// SPDX-License-Identifier: Apache-2.0

package summarizer

type Config struct {
	// Model is forwarded to the generator. Optional.
	Model string
	// MaxNewTokens bounds the length of each generated summary. Defaults to
	// 1024.
	MaxNewTokens int
	// NumBeams is the beam search width. Defaults to 4.
	NumBeams int
	// RepetitionPenalty penalises output tokens not seen in the prompt.
	// Defaults to 1.5.
	RepetitionPenalty float64
	// EndOfSequence stops the generation. Defaults to a newline.
	EndOfSequence string
}

const (
	defaultMaxNewTokens      = 1024
	defaultNumBeams          = 4
	defaultRepetitionPenalty = 1.5
	defaultEndOfSequence     = "\n"
)

func (c *Config) maxNewTokens() int {
	if c.MaxNewTokens > 0 {
		return c.MaxNewTokens
	}
	return defaultMaxNewTokens
}

func (c *Config) numBeams() int {
	if c.NumBeams > 0 {
		return c.NumBeams
	}
	return defaultNumBeams
}

func (c *Config) repetitionPenalty() float64 {
	if c.RepetitionPenalty > 0 {
		return c.RepetitionPenalty
	}
	return defaultRepetitionPenalty
}

func (c *Config) endOfSequence() string {
	if c.EndOfSequence != "" {
		return c.EndOfSequence
	}
	return defaultEndOfSequence
}
