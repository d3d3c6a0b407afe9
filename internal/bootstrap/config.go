package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	MediaEnginePion    = "pion"
	MediaEngineKurento = "kurento"
)

// Config holds everything read from the environment at startup.
type Config struct {
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	JWTSecret      string
	JWTExpiryHours int

	ServerPort        string
	MetricsPort       string
	LogLevel          string
	AppEnv            string
	CORSAllowedOrigin string
	RateLimitMax      int
	RateLimitWindow   time.Duration

	MediaEngine   string
	KurentoURL    string
	NAT1To1IP     string
	UDPPortMin    uint16
	UDPPortMax    uint16
	STUNURLs      []string
	AlertSchedule string
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return v, nil
}

func getenvPort(key string) (uint16, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a port number: %w", key, err)
	}
	return uint16(v), nil
}

// LoadConfig reads the configuration from the environment, after loading a
// .env file if one exists.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            getenv("DB_HOST", "127.0.0.1"),
		DBPort:            getenv("DB_PORT", "3306"),
		DBName:            getenv("DB_NAME", "mocamp"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:         getenv("REDIS_KEY_PREFIX", "mocamp:"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ServerPort:        getenv("SERVER_PORT", "8080"),
		MetricsPort:       getenv("METRICS_PORT", "9090"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		AppEnv:            getenv("APP_ENV", "development"),
		CORSAllowedOrigin: getenv("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
		MediaEngine:       strings.ToLower(getenv("MEDIA_ENGINE", MediaEnginePion)),
		KurentoURL:        getenv("KURENTO_URL", "ws://localhost:8888/kurento"),
		NAT1To1IP:         os.Getenv("WEBRTC_NAT_1TO1_IP"),
		AlertSchedule:     getenv("ALERT_CHECK_SCHEDULE", "@every 1m"),
	}

	var err error
	if cfg.RedisDB, err = getenvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.JWTExpiryHours, err = getenvInt("JWT_EXPIRY_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = getenvInt("RATE_LIMIT_MAX", 100); err != nil {
		return nil, err
	}
	cfg.RateLimitWindow = time.Second
	if raw := os.Getenv("RATE_LIMIT_WINDOW"); raw != "" {
		if cfg.RateLimitWindow, err = time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("environment variable RATE_LIMIT_WINDOW must be a duration: %w", err)
		}
	}
	if cfg.UDPPortMin, err = getenvPort("WEBRTC_UDP_PORT_MIN"); err != nil {
		return nil, err
	}
	if cfg.UDPPortMax, err = getenvPort("WEBRTC_UDP_PORT_MAX"); err != nil {
		return nil, err
	}
	if raw := os.Getenv("WEBRTC_STUN_URLS"); raw != "" {
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.STUNURLs = append(cfg.STUNURLs, u)
			}
		}
	}

	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	if cfg.MediaEngine != MediaEnginePion && cfg.MediaEngine != MediaEngineKurento {
		return nil, fmt.Errorf("unknown MEDIA_ENGINE %q, want %q or %q", cfg.MediaEngine, MediaEnginePion, MediaEngineKurento)
	}
	if cfg.UDPPortMin > cfg.UDPPortMax {
		return nil, fmt.Errorf("WEBRTC_UDP_PORT_MIN must not exceed WEBRTC_UDP_PORT_MAX")
	}
	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return cfg, nil
}
