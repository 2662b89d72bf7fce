package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the immutable process-wide settings. It is constructed once
// at startup and passed by parameter into every component.
type Config struct {
	DoneMessageText            string `yaml:"doneMessageText"`
	ScrollsCountForEachCapture int    `yaml:"scrollsCountForEachCapture"`
	IterationsCount            int    `yaml:"iterationsCount"`

	BaseURL     string `yaml:"baseUrl"`
	CookiesFile string `yaml:"cookiesFile"`
	Headless    bool   `yaml:"headless"`
	LogDir      string `yaml:"logDir"`

	// Deploy-ish settings, overridable from the environment.
	LedgerDSN   string `yaml:"ledgerDsn"`
	MetricsAddr string `yaml:"metricsAddr"`
}

func defaults() Config {
	return Config{
		DoneMessageText:            "Done",
		ScrollsCountForEachCapture: 2,
		IterationsCount:            2,
		BaseURL:                    "https://x.com",
		CookiesFile:                "cookies.txt",
		Headless:                   false,
		LogDir:                     "logs",
	}
}

// Load reads the YAML config file at path. A missing or malformed file is
// not fatal: the documented defaults are used instead. Environment
// variables (optionally from a local .env) override the deploy settings.
func Load(path string) Config {
	_ = godotenv.Load()

	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("config file %s not readable, using defaults: %v", path, err)
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Printf("config file %s malformed, using defaults: %v", path, err)
		cfg = defaults()
	}

	if cfg.DoneMessageText == "" {
		cfg.DoneMessageText = "Done"
	}
	if cfg.ScrollsCountForEachCapture <= 0 {
		cfg.ScrollsCountForEachCapture = 2
	}
	if cfg.IterationsCount <= 0 {
		cfg.IterationsCount = 2
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://x.com"
	}

	cfg.LedgerDSN = getEnv("LEDGER_DSN", cfg.LedgerDSN)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default value.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
