// Package appconfig turns env-backed config values into typed settings with defaults
package appconfig

import (
	"log"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort         = "8080"
	defaultLogLevel     = "info"
	defaultResultPrefix = "renders/"
	defaultThumbPrefix  = "thumbs/"
	defaultThumbSize    = 256
	defaultSessionTTL   = 30 * time.Minute
	defaultSessionLimit = 256
	defaultMaxUploadMB  = 20
)

// Getter - контракт конфига, реализуется *config.Config из wbf
type Getter interface {
	GetString(key string) string
}

type Settings struct {
	Port           string
	GinMode        string
	LogLevel       string
	ResultPrefix   string
	ThumbPrefix    string
	ThumbSize      int
	SessionTTL     time.Duration
	SessionLimit   int
	MaxUploadBytes int64
	KafkaBroker    string
	KafkaTopic     string
	KafkaGroupID   string
}

// Load reads every key the app uses; empty or malformed values fall back to defaults.
func Load(cfg Getter) Settings {
	return Settings{
		Port:           stringOr(cfg, "APP_PORT", defaultPort),
		GinMode:        cfg.GetString("GIN_MODE"),
		LogLevel:       stringOr(cfg, "LOG_LEVEL", defaultLogLevel),
		ResultPrefix:   prefix(stringOr(cfg, "RESULT_KEY", defaultResultPrefix)),
		ThumbPrefix:    prefix(stringOr(cfg, "THUMB_KEY", defaultThumbPrefix)),
		ThumbSize:      intOr(cfg, "THUMB_SIZE", defaultThumbSize),
		SessionTTL:     durationOr(cfg, "SESSION_TTL", defaultSessionTTL),
		SessionLimit:   intOr(cfg, "SESSION_LIMIT", defaultSessionLimit),
		MaxUploadBytes: int64(intOr(cfg, "MAX_UPLOAD_MB", defaultMaxUploadMB)) << 20,
		KafkaBroker:    cfg.GetString("KAFKA_BROKER"),
		KafkaTopic:     cfg.GetString("KAFKA_TOPIC"),
		KafkaGroupID:   cfg.GetString("KAFKA_GROUPID"),
	}
}

func stringOr(cfg Getter, key, def string) string {
	if v := strings.TrimSpace(cfg.GetString(key)); v != "" {
		return v
	}
	return def
}

func intOr(cfg Getter, key string, def int) int {
	raw := strings.TrimSpace(cfg.GetString(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("Incorrect value %q for %s. Using default %d...", raw, key, def)
		return def
	}
	return v
}

func durationOr(cfg Getter, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(cfg.GetString(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("Incorrect value %q for %s. Using default %v...", raw, key, def)
		return def
	}
	return v
}

// ключи в minio без завершающего слеша склеиваются с uid в одно имя
func prefix(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
