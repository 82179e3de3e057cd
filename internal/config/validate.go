package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong or
// suspicious about it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.Owner.Name = strings.TrimSpace(out.Owner.Name)
	out.Scoring.BaseURL = strings.TrimRight(strings.TrimSpace(out.Scoring.BaseURL), "/")
	out.Scoring.Model = strings.TrimSpace(out.Scoring.Model)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if out.Owner.Name == "" {
		res.addErr("owner.name is required")
	}

	if out.Scrape.RequestsPerSecond <= 0 {
		res.addErr("scrape.requests_per_second must be > 0")
	} else if out.Scrape.RequestsPerSecond > 5 {
		res.addWarn("scrape.requests_per_second is high (%.1f) and may trip board rate limits.", out.Scrape.RequestsPerSecond)
	}
	if out.Scrape.Burst <= 0 {
		res.addErr("scrape.burst must be > 0")
	}

	if out.Workers.Count <= 0 {
		res.addErr("workers.count must be > 0")
	} else if out.Workers.Count > 32 {
		res.addWarn("workers.count is very high (%d) for a single sqlite writer.", out.Workers.Count)
	}

	if out.Scoring.Enabled {
		if out.Scoring.BaseURL == "" {
			res.addErr("scoring.base_url is required when scoring.enabled=true")
		}
		if out.Scoring.Model == "" {
			res.addErr("scoring.model is required when scoring.enabled=true")
		}
	}

	return out, res
}
