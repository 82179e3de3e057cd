package score

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// Result is the provider's verdict on one job.
type Result struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// ParseResult decodes the provider's reply. Models often wrap the JSON in a
// markdown code fence despite instructions; strip it before decoding.
func ParseResult(text string) (Result, error) {
	body := stripFence(strings.TrimSpace(text))

	var raw struct {
		Score       *int   `json:"score"`
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Result{}, errors.Wrap(err, "decode score response")
	}
	if raw.Score == nil {
		return Result{}, errors.New("score response missing score")
	}
	if *raw.Score < 0 || *raw.Score > 100 {
		return Result{}, errors.Newf("score %d out of range", *raw.Score)
	}
	return Result{Score: *raw.Score, Explanation: raw.Explanation}, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line ("json", "" etc)
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
