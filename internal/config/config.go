package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Hub
	HTTPAddr string
	Env      string // "dev" | "prod"
	DBPath   string // e.g. "./data/presencia.db"

	// Terminal
	StoreURL    string // hub base URL the terminal talks to
	DetectorURL string // face-detection sidecar
	CameraURL   string // snapshot camera endpoint

	SessionTimeout time.Duration
	PollInterval   time.Duration
	Cooldown       time.Duration
	TokenTTL       time.Duration

	SupervisorTokens []string
	ShiftConfigPath  string // empty = embedded default schedule
}

func FromEnv() Config {
	addr := getenvDefault("PRESENCIA_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("PRESENCIA_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("PRESENCIA_DB_PATH", "./data/presencia.db")

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		StoreURL:    getenvDefault("PRESENCIA_STORE_URL", "http://localhost:8080"),
		DetectorURL: getenvDefault("PRESENCIA_DETECTOR_URL", "http://localhost:8500"),
		CameraURL:   getenvDefault("PRESENCIA_CAMERA_URL", "http://localhost:8600/snapshot"),

		SessionTimeout: getenvSeconds("PRESENCIA_SESSION_TIMEOUT_S", 10),
		PollInterval:   getenvMillis("PRESENCIA_POLL_INTERVAL_MS", 250),
		Cooldown:       getenvSeconds("PRESENCIA_DECISION_COOLDOWN_S", 3),
		TokenTTL:       getenvSeconds("PRESENCIA_TOKEN_TTL_S", 900),

		SupervisorTokens: splitCSV(os.Getenv("PRESENCIA_SUPERVISOR_TOKENS")),
		ShiftConfigPath:  strings.TrimSpace(os.Getenv("PRESENCIA_SHIFTS_PATH")),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvSeconds(key string, def int) time.Duration {
	return time.Duration(getenvInt(key, def)) * time.Second
}

func getenvMillis(key string, def int) time.Duration {
	return time.Duration(getenvInt(key, def)) * time.Millisecond
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
