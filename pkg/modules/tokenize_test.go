package modules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := map[string]struct {
		text      string
		lowercase bool
		expected  [][]string
	}{
		"empty": {
			text:     "",
			expected: [][]string{},
		},
		"sentence_breaks": {
			text:     "Hello World. Hello again!",
			expected: [][]string{{"Hello", "World"}, {"Hello", "again"}},
		},
		"line_breaks": {
			text:     "The world\nis big.",
			expected: [][]string{{"The", "world"}, {"is", "big"}},
		},
		"punctuation_only_tokens": {
			text:     "wait - what?! (really)",
			expected: [][]string{{"wait", "what"}, {"really"}},
		},
		"inner_punctuation_kept": {
			text:     "don't e.g. stop",
			expected: [][]string{{"don't", "e.g"}, {"stop"}},
		},
		"lowercase": {
			text:      "Hello WORLD",
			lowercase: true,
			expected:  [][]string{{"hello", "world"}},
		},
		"blank_lines": {
			text:     "one\n\n\ntwo  three\n",
			expected: [][]string{{"one"}, {"two", "three"}},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.expected, tokenize(test.text, test.lowercase))
		})
	}
}
