package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStalenessPeriod(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		elapsed time.Duration
		want    time.Duration
	}{
		{"minutes round up to an hour", 10 * time.Minute, time.Hour},
		{"half an hour rounds up to an hour", 30 * time.Minute, time.Hour},
		{"ninety minutes rounds to two hours", 90 * time.Minute, 2 * time.Hour},
		{"exact hour multiple is kept", 26 * time.Hour, 26 * time.Hour},
		{"day and a half", 36 * time.Hour, 36 * time.Hour},
		{"five days", 5 * periodDay, 5 * periodDay},
		{"future timestamp clamps to an hour", -time.Hour, time.Hour},
		{"zero elapsed is still an hour", 0, time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			last := now.Add(-tc.elapsed)
			assert.Equal(t, tc.want, StalenessPeriod(&last, now))
		})
	}
}

func TestStalenessPeriodNoHistory(t *testing.T) {
	assert.Equal(t, periodMonth, StalenessPeriod(nil, time.Now()))
}
