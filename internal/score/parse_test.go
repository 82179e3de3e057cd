package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Result
	}{
		{
			"plain json",
			`{"score": 85, "explanation": "strong overlap"}`,
			Result{Score: 85, Explanation: "strong overlap"},
		},
		{
			"json fence",
			"```json\n{\"score\": 40, \"explanation\": \"partial\"}\n```",
			Result{Score: 40, Explanation: "partial"},
		},
		{
			"bare fence",
			"```\n{\"score\": 0, \"explanation\": \"none\"}\n```",
			Result{Score: 0, Explanation: "none"},
		},
		{
			"surrounding whitespace",
			"  \n{\"score\": 100}\n  ",
			Result{Score: 100},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseResult(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseResultRejectsBadReplies(t *testing.T) {
	for name, text := range map[string]string{
		"not json":      "the job looks great",
		"missing score": `{"explanation": "no verdict"}`,
		"above range":   `{"score": 101}`,
		"below range":   `{"score": -1}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResult(text)
			assert.Error(t, err)
		})
	}
}
