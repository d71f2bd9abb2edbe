package content

import "unicode/utf8"

// Truncation bounds applied before text becomes model input, keeping prompts
// inside model context limits. Truncation is silent — never an error — and the
// returned flag marks the result so a clipped input is not presented as a
// complete-document result.
const (
	// SummaryLimit bounds summarize_text input.
	SummaryLimit = 8000

	// AnalysisLimit bounds extract_structured and generic analysis input.
	AnalysisLimit = 10000
)

// Truncate clips s to at most limit runes. It reports whether clipping
// occurred. A limit of zero or less means no truncation.
func Truncate(s string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:limit]), true
}

// EstimateTokens provides a fast token count estimate without importing tiktoken.
//
// Heuristic: utf8 rune count / 3.
//
//   - English text averages ~4 chars/token, CJK text averages ~1.5 chars/token.
//   - Dividing by 3 is a reasonable middle-ground for mixed-language content.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 3
	if est < 1 {
		return 1
	}
	return est
}
