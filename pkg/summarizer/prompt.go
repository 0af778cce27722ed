// SPDX-License-Identifier: Apache-2.0

package summarizer

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

type entity struct {
	uuid    int64
	mention string
}

var errUnexpectedOutput = errors.New("unexpected generator output")

// resolveMentions groups the targets by UUID, keeping the first seen order,
// and picks one mention per UUID: the most frequent one, the longest one on a
// tie, and the first one if they also have the same length.
func resolveMentions(document string, targets []Target) []entity {
	runes := []rune(document)

	order := []int64{}
	grouped := map[int64][]string{}
	for _, t := range targets {
		if _, found := grouped[t.UUID]; !found {
			order = append(order, t.UUID)
		}
		grouped[t.UUID] = append(grouped[t.UUID], spanText(runes, t.SpanStart, t.SpanEnd))
	}

	entities := make([]entity, 0, len(order))
	for _, uuid := range order {
		entities = append(entities, entity{uuid: uuid, mention: mostFrequent(grouped[uuid])})
	}
	return entities
}

// spanText returns the trimmed text between the rune offsets. Out of range
// offsets are clamped to the document.
func spanText(runes []rune, start, end int) string {
	start = min(max(start, 0), len(runes))
	end = min(max(end, start), len(runes))
	return strings.TrimSpace(string(runes[start:end]))
}

func mostFrequent(mentions []string) string {
	sorted := slices.Clone(mentions)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})

	counts := make(map[string]int, len(sorted))
	for _, m := range sorted {
		counts[m]++
	}

	best := ""
	bestCount := 0
	for _, m := range sorted {
		if counts[m] > bestCount {
			best = m
			bestCount = counts[m]
		}
	}
	return best
}

// buildPrompt lists the entity first and the other mentions after it, followed
// by the document. Only the first mention equal to the entity is left out of
// the others.
func buildPrompt(mentions []string, mention, document string) string {
	others := slices.Clone(mentions)
	if i := slices.Index(others, mention); i >= 0 {
		others = slices.Delete(others, i, i+1)
	}

	lines := make([]string, 0, len(others))
	for i, other := range others {
		lines = append(lines, fmt.Sprintf("[%d] %s", i+2, strings.TrimSpace(other)))
	}
	return fmt.Sprintf("[1] %s\n%s\ndocument: %s", strings.TrimSpace(mention), strings.Join(lines, "\n"), document)
}

// parseSummary extracts the summary body from generated text shaped as
// "[1] <label>: <summary> [2] ...". Only the first line is considered, and it
// must have exactly one label separator.
func parseSummary(text string) (string, error) {
	line, _, _ := strings.Cut(strings.ReplaceAll(text, " [", "\n["), "\n")
	line = strings.ReplaceAll(line, "[1] ", "")

	parts := strings.Split(line, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: expected one label separator, found %d", errUnexpectedOutput, len(parts)-1)
	}
	return strings.TrimSpace(parts[1]), nil
}
