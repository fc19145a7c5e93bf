package format

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSentence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "question", input: "what is happening", want: "What is happening?"},
		{name: "conjunction", input: "i went home and i slept", want: "I went home, and i slept."},
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: "   \t\n", want: ""},
		{name: "trims and lowercases", input: "  HELLO World  ", want: "Hello world."},
		{name: "keeps existing period", input: "it is done.", want: "It is done."},
		{name: "keeps existing question mark", input: "how are you?", want: "How are you?"},
		{name: "uppercase lead word", input: "WHERE are we", want: "Where are we?"},
		{name: "question word not first", input: "tell me what time it is", want: "Tell me what time it is."},
		{name: "all conjunctions", input: "a and b but c so d because e", want: "A, and b, but c, so d, because e."},
		{name: "naive double comma", input: "yes, and no", want: "Yes,, and no."},
		{name: "multibyte first letter", input: "élan is nice", want: "Élan is nice."},
		{name: "single word", input: "ok", want: "Ok."},
		{name: "question word alone", input: "why", want: "Why?"},
		{name: "question with trailing period", input: "is it.", want: "Is it.?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sentence(tt.input))
		})
	}
}

func TestSentenceFirstCharacterCapitalized(t *testing.T) {
	inputs := []string{"hello", "  zebra crossing", "Is that so", "123 go", "über alles"}
	for _, in := range inputs {
		out := Sentence(in)
		want, _ := utf8.DecodeRuneInString(strings.ToLower(strings.TrimSpace(in)))
		got, _ := utf8.DecodeRuneInString(out)
		assert.Equal(t, unicode.ToUpper(want), got, "input %q", in)
	}
}

func TestSentenceTerminalPunctuation(t *testing.T) {
	inputs := []string{"what now", "who", "did it work", "the end", "stop", "can we go?", "fine."}
	for _, in := range inputs {
		out := Sentence(in)
		question := IsQuestionWord(strings.Fields(in)[0])
		if question {
			assert.True(t, strings.HasSuffix(out, "?"), "input %q", in)
			assert.False(t, strings.HasSuffix(out, "??"), "input %q", in)
		} else {
			assert.True(t, strings.HasSuffix(out, "."), "input %q", in)
			assert.False(t, strings.HasSuffix(out, ".."), "input %q", in)
			assert.False(t, strings.HasSuffix(out, "?"), "input %q", in)
		}
	}
}

func TestIsQuestionWord(t *testing.T) {
	assert.True(t, IsQuestionWord("Could"))
	assert.True(t, IsQuestionWord("does"))
	assert.False(t, IsQuestionWord("maybe"))
	assert.False(t, IsQuestionWord(""))
}
