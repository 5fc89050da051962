package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	BlobBasePath string

	CORSOrigins []string

	AuthSecret    string
	AdminUser     string
	AdminPassHash string // bcrypt

	// First encoding attempted for root documents; the parser falls back
	// to the alternate of utf-8/utf-16 on its own.
	SourceEncoding string

	// Generation service (OpenAI-compatible endpoint).
	GenBaseURL     string
	GenAPIKey      string
	GenModel       string
	GenMaxAttempts int
	GenBackoff     time.Duration
	GenRefDir      string // few-shot reference directory, empty disables
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:       addr,
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		BlobBasePath:   envOr("BLOB_BASE_PATH", "./data"),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000"),
		AuthSecret:     envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:      envOr("ADMIN_USER", "admin"),
		AdminPassHash:  os.Getenv("ADMIN_PASS_HASH"),
		SourceEncoding: envOr("SOURCE_ENCODING", "utf-8"),
		GenBaseURL:     envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GenAPIKey:      os.Getenv("OPENAI_API_KEY"),
		GenModel:       envOr("OPENAI_MODEL", "gpt-4o"),
		GenMaxAttempts: envInt("GEN_MAX_ATTEMPTS", 3),
		GenBackoff:     time.Duration(envInt("GEN_BACKOFF_MS", 2000)) * time.Millisecond,
		GenRefDir:      os.Getenv("GEN_REFERENCE_DIR"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
