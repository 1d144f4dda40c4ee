// Package chunker groups texts into batches bounded by an estimated token count.
package chunker

import "unicode/utf8"

// DefaultMaxTokens is the default token budget per chunk.
const DefaultMaxTokens = 3000

// EstimateTokens estimates the token count for a text at roughly four
// characters per token. Non-empty text is at least one token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	tokens := (n + 3) / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

// Chunk splits items into consecutive chunks whose estimated tokens do not
// exceed maxTokens. Items are never split and keep their order; an item over
// the budget gets a chunk of its own.
func Chunk[T any](items []T, maxTokens int, text func(T) string) [][]T {
	if len(items) == 0 {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var chunks [][]T
	var current []T
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
			currentTokens = 0
		}
	}

	for _, item := range items {
		tokens := EstimateTokens(text(item))

		if tokens > maxTokens {
			flush()
			chunks = append(chunks, []T{item})
			continue
		}

		if currentTokens+tokens > maxTokens {
			flush()
		}

		current = append(current, item)
		currentTokens += tokens
	}
	flush()

	return chunks
}

// ChunkStrings is Chunk for plain strings.
func ChunkStrings(texts []string, maxTokens int) [][]string {
	return Chunk(texts, maxTokens, func(s string) string { return s })
}
