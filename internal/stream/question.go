package stream

import "strings"

// questionPrefixes mark sentences that read as questions or requests
// even without a question mark.
var questionPrefixes = []string{
	"what", "why", "how", "when", "where", "who", "which",
	"can you", "could you", "would you", "do you",
	"tell me", "explain", "compare", "difference", "walk me through",
}

// Extract returns the most recent question-like sentence in the window,
// normalized to end with a question mark, or "" when nothing qualifies.
// It is a pure function and idempotent on its own output.
func Extract(window string, minWords int) string {
	normalized := strings.Join(strings.Fields(window), " ")
	if normalized == "" {
		return ""
	}

	question := ""
	for _, sentence := range splitSentences(normalized) {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}
		if isCandidate(trimmed) {
			question = trimmed
		}
	}
	if question == "" {
		return ""
	}
	if len(strings.Fields(question)) < minWords {
		return ""
	}
	if !strings.HasSuffix(question, "?") {
		question = strings.TrimRight(question, ".! ") + "?"
	}
	return question
}

// splitSentences splits normalized text after terminal punctuation
// followed by a space, keeping the punctuation with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		if isTerminal(text[i]) && text[i+1] == ' ' {
			sentences = append(sentences, text[start:i+1])
			start = i + 2
			i++
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

func isTerminal(b byte) bool {
	return b == '.' || b == '?' || b == '!'
}

// isCandidate reports whether a sentence looks like a question: it
// carries a question mark anywhere, or opens with an interrogative or
// request prefix.
func isCandidate(sentence string) bool {
	if strings.Contains(sentence, "?") {
		return true
	}
	lower := strings.ToLower(sentence)
	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
