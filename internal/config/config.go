package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	HTTPAddr    string
	DBPath      string
	SeedOnStart bool
	CORSOrigins []string

	LLM LLMConfig
}

// LLMConfig carries the completion endpoint credentials and sampling knobs.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Timeout     time.Duration
}

// Load reads an optional dotenv vault and then the process environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	return Config{
		Env:         envOr("APP_ENV", "development"),
		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		DBPath:      envOr("DB_PATH", "study.db"),
		SeedOnStart: envBool("SEED_ON_START", true),
		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),
		LLM: LLMConfig{
			BaseURL:     envOr("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      strings.TrimSpace(os.Getenv("LLM_API_KEY")),
			Model:       envOr("LLM_MODEL", "gpt-4o-mini"),
			Temperature: envFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:   envInt("LLM_MAX_TOKENS", 8192),
			TopP:        envFloat("LLM_TOP_P", 1),
			Timeout:     envDuration("LLM_TIMEOUT", 0),
		},
	}
}

func envOr(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func envFloat(k string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(k)), 64)
	if err != nil {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	parts := strings.Split(envOr(k, def), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
