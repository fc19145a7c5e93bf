// Package format turns raw recognizer transcripts into display sentences.
package format

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// questionWords are lead words that mark a transcript as a question.
var questionWords = []string{
	"what", "why", "how", "when", "where",
	"who", "can", "is", "are", "do", "does",
	"did", "will", "would", "should", "could",
}

// conjunctions get a comma inserted in front of them.
var conjunctions = []string{"and", "but", "so", "because"}

// Sentence normalizes a transcript: trimmed, lowercased with the first
// letter capitalized, closed with "?" or "." and with a comma before
// common conjunctions. Empty input returns "".
//
// Comma insertion is plain substring replacement and runs after the
// terminal punctuation is added.
func Sentence(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(text)
	text = string(unicode.ToUpper(first)) + text[size:]

	lead := ""
	if fields := strings.Fields(text); len(fields) > 0 {
		lead = strings.ToLower(fields[0])
	}

	if IsQuestionWord(lead) {
		if !strings.HasSuffix(text, "?") {
			text += "?"
		}
	} else if !strings.HasSuffix(text, ".") {
		text += "."
	}

	for _, w := range conjunctions {
		text = strings.ReplaceAll(text, " "+w+" ", ", "+w+" ")
	}

	return text
}

// IsQuestionWord reports whether word opens a question.
func IsQuestionWord(word string) bool {
	return slices.Contains(questionWords, strings.ToLower(word))
}
