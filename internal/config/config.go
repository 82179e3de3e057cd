package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	// Owner is the single local user all jobs, rules and searches belong to.
	Owner struct {
		Name string `yaml:"name"`
	} `yaml:"owner"`

	Scrape struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"scrape"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Scoring struct {
		Enabled bool   `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"scoring"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// Defaults returns a usable local-first configuration.
func Defaults() Config {
	var cfg Config
	cfg.App.Port = 8787
	cfg.Owner.Name = "default"
	cfg.Scrape.RequestsPerSecond = 1
	cfg.Scrape.Burst = 2
	cfg.Workers.Count = 4
	cfg.Scoring.Enabled = false
	cfg.Scoring.BaseURL = "https://api.openai.com/v1"
	cfg.Scoring.Model = "gpt-4o-mini"
	return cfg
}
