package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Logger struct {
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"logger"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Scheduler struct {
		Tick      string `yaml:"tick"`
		Tolerance string `yaml:"tolerance"`
	} `yaml:"scheduler"`
	Quiz struct {
		Duration      string `yaml:"duration"`
		Questions     int    `yaml:"questions"`
		AnswerTimeout string `yaml:"answerTimeout"`
		VoteTTL       string `yaml:"voteTtl"`
	} `yaml:"quiz"`
	Source struct {
		WikiURL         string `yaml:"wikiUrl"`
		RefreshInterval string `yaml:"refreshInterval"`
		FlickrKey       string `yaml:"flickrKey"`
		FlickrGroup     string `yaml:"flickrGroup"`
	} `yaml:"source"`
	Messenger struct {
		WebhookURL string `yaml:"webhookUrl"`
	} `yaml:"messenger"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
