package utils

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// LoadEnv reads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("[config] .env could not be parsed")
	}
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
	AdminEmails []string
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("MOVIEHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
		log.Warn("[config] MOVIEHUB_JWT_SECRET not set, using the dev secret")
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   getEnv("MOVIEHUB_JWT_ISSUER", "moviehub"),
		JWTDuration: time.Duration(getInt("MOVIEHUB_JWT_TTL_HOURS", 24)) * time.Hour,
		AdminEmails: getList("MOVIEHUB_ADMIN_EMAILS"),
	}
}

type ServerConfig struct {
	HTTPAddr  string
	TCPAddr   string
	GrpcAddr  string
	RateLimit int
	RateEvery time.Duration
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:  getEnv("MOVIEHUB_HTTP_ADDR", ":8080"),
		TCPAddr:   getEnv("MOVIEHUB_TCP_ADDR", ":7070"),
		GrpcAddr:  getEnv("MOVIEHUB_GRPC_ADDR", ":9090"),
		RateLimit: getInt("MOVIEHUB_RATE_LIMIT", 100),
		RateEvery: getDuration("MOVIEHUB_RATE_WINDOW", 15*time.Minute),
	}
}

type StoreConfig struct {
	Backend  string // "sqlite" or "mongo"
	MongoURI string
	MongoDB  string
}

func LoadStoreConfig() StoreConfig {
	return StoreConfig{
		Backend:  strings.ToLower(getEnv("MOVIEHUB_STORE", "sqlite")),
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "moviehub"),
	}
}

type LookupConfig struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	CacheTTL  time.Duration
	Cache     string // "memory" or "redis"
	Capacity  int
	RedisAddr string
	RedisPass string
}

func LoadLookupConfig() LookupConfig {
	apiKey := os.Getenv("OMDB_API_KEY")
	if apiKey == "" {
		log.Warn("[config] OMDB_API_KEY not set, external lookups will be rejected upstream")
	}
	return LookupConfig{
		APIKey:    apiKey,
		BaseURL:   getEnv("OMDB_BASE_URL", "http://www.omdbapi.com/"),
		Timeout:   getDuration("OMDB_TIMEOUT", 8*time.Second),
		CacheTTL:  30 * time.Minute,
		Cache:     strings.ToLower(getEnv("MOVIEHUB_CACHE", "memory")),
		Capacity:  getInt("MOVIEHUB_CACHE_CAPACITY", 500),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
	}
}

func getEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		log.Debugf("[config] %s not set, using default %q", key, def)
		return def
	}
	return v
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Warnf("[config] %s=%q is not a positive integer, using %d", key, raw, def)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warnf("[config] %s=%q is not a valid duration, using %s", key, raw, def)
		return def
	}
	return d
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		v = strings.TrimSpace(strings.ToLower(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
