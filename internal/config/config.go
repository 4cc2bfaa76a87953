package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	Store    string // "mongo" | "memory"
	MongoURI string
	MongoDB  string

	JWTSecret        string
	JWTActiveKid     string
	JWTActiveKeyPath string
	JWTNextKid       string
	JWTNextKeyPath   string
	TokenTTL         time.Duration
	BcryptCost       int

	GeocoderURL     string
	GeocoderTimeout time.Duration

	UploadDir   string
	MaxUploadMB int
	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string

	RedisAddr       string
	RateLimitPerMin int

	RabbitURL      string
	RabbitExchange string

	LogJSON   bool
	DDEnabled bool
	DDService string
}

func Load() Config {
	return Config{
		Port:     getenv("APP_PORT", "8080"),
		Store:    getenv("STORE", "mongo"),
		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDB:  getenv("MONGO_DB", "placekeep"),

		JWTSecret:        getenv("JWT", "default_secret_key"),
		JWTActiveKid:     getenv("JWT_ACTIVE_KID", ""),
		JWTActiveKeyPath: getenv("JWT_ACTIVE_KEY_PATH", ""),
		JWTNextKid:       getenv("JWT_NEXT_KID", ""),
		JWTNextKeyPath:   getenv("JWT_NEXT_KEY_PATH", ""),
		TokenTTL:         time.Duration(positive("TOKEN_TTL_MINUTES", 60)) * time.Minute,
		BcryptCost:       positive("BCRYPT_COST", 12),

		GeocoderURL:     getenv("LOCATION_API", "https://geocode.arcgis.com/arcgis/rest/services/World/GeocodeServer/findAddressCandidates"),
		GeocoderTimeout: time.Duration(positive("GEOCODER_TIMEOUT_SECONDS", 5)) * time.Second,

		UploadDir:   getenv("UPLOAD_DIR", "uploads/images"),
		MaxUploadMB: positive("MAX_UPLOAD_MB", 5),
		S3Bucket:    getenv("S3_BUCKET", ""),
		S3Region:    getenv("S3_REGION", "us-east-1"),
		S3AccessKey: getenv("S3_ACCESS_KEY", ""),
		S3SecretKey: getenv("S3_SECRET_KEY", ""),

		RedisAddr:       getenv("REDIS_ADDR", ""),
		RateLimitPerMin: atoi(getenv("RATE_LIMIT_PER_MIN", "5"), 5),

		RabbitURL:      getenv("RABBIT_URL", ""),
		RabbitExchange: getenv("RABBIT_EXCHANGE", "places.events"),

		LogJSON:   boolean(getenv("LOG_JSON", "true")),
		DDEnabled: boolean(getenv("DD_ENABLED", "false")),
		DDService: getenv("DD_SERVICE", "places-service"),
	}
}

// RS256 reports whether an RSA signing key is configured.
func (c Config) RS256() bool {
	return c.JWTActiveKid != "" && c.JWTActiveKeyPath != ""
}

// atoi falls back to def when s is not a number.
func atoi(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return v
	}
	return def
}

// positive reads k as a number and keeps def unless the value is above zero.
func positive(k string, def int) int {
	if v := atoi(os.Getenv(k), def); v > 0 {
		return v
	}
	return def
}

func boolean(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
