package chunker

import "strings"

// LengthFunc measures text length in tokens. The default counts
// whitespace-delimited words, which understates true LLM token counts for
// numeric-heavy financial text; callers needing exact budgets can swap in a
// real tokenizer.
type LengthFunc func(string) int

// WordCount is the default length function.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// lastWords returns the trailing n words of text joined by single spaces,
// or "" when text has no more than n words (the overlap would just repeat
// the whole window).
func lastWords(text string, n int) string {
	words := strings.Fields(text)
	if n <= 0 || len(words) <= n {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ")
}
