package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	BackendFirebase = "firebase"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	ProjectID                    string   `toml:"project_id"`
	Port                         string   `toml:"port"`
	AllowedOrigins               []string `toml:"allowed_origins"`
	StorageBucket                string   `toml:"storage_bucket"`
	SignedURLServiceAccountEmail string   `toml:"signed_url_service_account_email"`

	// Backend selects where messages live: firebase, redis or memory.
	Backend           string `toml:"backend"`
	NotifyTopic       string `toml:"notify_topic"`
	MaxImageDimension int    `toml:"max_image_dimension"`
	MaxImageBytes     int64  `toml:"max_image_bytes"`

	Redis RedisConfig `toml:"redis"`

	// DevUsers are accepted by the offline identity provider used when no
	// Firebase project is configured.
	DevUsers []DevUser `toml:"dev_users"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type DevUser struct {
	Token    string `toml:"token"`
	UID      string `toml:"uid"`
	Name     string `toml:"name"`
	PhotoURL string `toml:"photo_url"`
	Email    string `toml:"email"`
}

func Load() (Config, error) {
	cfg := defaultConfig()

	path := getenv("CHAT_CONFIG_FILE", "configs/chat.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	overrideByEnv(&cfg)

	if cfg.StorageBucket == "" && cfg.ProjectID != "" {
		cfg.StorageBucket = cfg.ProjectID + ".appspot.com"
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// UsesFirebase reports whether the Firebase clients must be created.
func (c Config) UsesFirebase() bool {
	return c.Backend == BackendFirebase || c.ProjectID != ""
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendFirebase:
		if c.ProjectID == "" {
			return fmt.Errorf("missing FIREBASE_PROJECT_ID or GOOGLE_CLOUD_PROJECT")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("missing REDIS_ADDR")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown CHAT_BACKEND %q", c.Backend)
	}
	for i, u := range c.DevUsers {
		if u.Token == "" || u.UID == "" {
			return fmt.Errorf("dev_users[%d]: token and uid are required", i)
		}
	}
	if c.MaxImageDimension < 0 || c.MaxImageBytes < 0 {
		return fmt.Errorf("image limits must not be negative")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Port:              "8080",
		AllowedOrigins:    []string{"http://localhost:4200"},
		Backend:           BackendFirebase,
		MaxImageDimension: 1600,
		MaxImageBytes:     10 << 20,
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
	}
}

func overrideByEnv(cfg *Config) {
	// FIREBASE_PROJECT_ID または GOOGLE_CLOUD_PROJECT を読む
	if v := getenv("FIREBASE_PROJECT_ID", ""); v != "" {
		cfg.ProjectID = v
	} else if v := getenv("GOOGLE_CLOUD_PROJECT", ""); v != "" {
		cfg.ProjectID = v
	}

	cfg.Port = getenv("PORT", cfg.Port)
	if origins := getenv("ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}
	cfg.StorageBucket = getenv("FIREBASE_STORAGE_BUCKET", cfg.StorageBucket)
	cfg.SignedURLServiceAccountEmail = getenv("SIGNED_URL_SERVICE_ACCOUNT_EMAIL", cfg.SignedURLServiceAccountEmail)

	cfg.Backend = getenv("CHAT_BACKEND", cfg.Backend)
	cfg.NotifyTopic = getenv("CHAT_NOTIFY_TOPIC", cfg.NotifyTopic)
	cfg.MaxImageDimension = getenvInt("CHAT_MAX_IMAGE_DIMENSION", cfg.MaxImageDimension)
	cfg.MaxImageBytes = int64(getenvInt("CHAT_MAX_IMAGE_BYTES", int(cfg.MaxImageBytes)))

	cfg.Redis.Addr = getenv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getenv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getenvInt("REDIS_DB", cfg.Redis.DB)
}

func splitList(s string) []string {
	out := []string{}
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
