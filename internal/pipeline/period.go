// Package pipeline runs a search end to end: scrape, rule sweep, ban sweep,
// populate, score. Stages are queue tasks chained by dependency, so a crash
// mid-run loses only the in-flight stage.
package pipeline

import "time"

const (
	periodHour  = time.Hour
	periodDay   = 24 * time.Hour
	periodWeek  = 7 * periodDay
	periodMonth = 30 * periodDay
)

var periodBuckets = []time.Duration{periodHour, periodDay, periodWeek, periodMonth}

// StalenessPeriod converts the time since the search last executed into the
// lookback window the scrape should cover: the elapsed time rounded to the
// nearest multiple of a bucket (hour, day, week, month), never less than one
// bucket, ties going to the smaller bucket. A search with no history gets a
// month.
func StalenessPeriod(lastExecuted *time.Time, now time.Time) time.Duration {
	if lastExecuted == nil {
		return periodMonth
	}
	elapsed := now.Sub(*lastExecuted)
	if elapsed < 0 {
		elapsed = 0
	}

	best := periodBuckets[0]
	bestErr := time.Duration(-1)
	for _, bucket := range periodBuckets {
		k := (elapsed + bucket/2) / bucket
		if k < 1 {
			k = 1
		}
		candidate := k * bucket
		diff := candidate - elapsed
		if diff < 0 {
			diff = -diff
		}
		if bestErr < 0 || diff < bestErr {
			best = candidate
			bestErr = diff
		}
	}
	return best
}
