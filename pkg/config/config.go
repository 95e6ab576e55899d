package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	MetricsPort             string
	LogLevel                string
	FirebaseCredentialsPath string
	FirebaseProjectID       string
	StorageBucket           string
	PostgresUrl             string
	MongoURI                string
	MongoDatabase           string

	NotificationLocale  string
	FanoutConcurrency   int
	TokenMaxAgeDays     int
	StoryTTL            time.Duration
	ImageCodec          string
	ImageMagickBin      string
	SchedulerEnabled    bool
	CallableRequireAuth bool
	TriggerTimeout      time.Duration
}

// Load reads the configuration from the environment, after loading a .env
// file when one is present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		StorageBucket:           getEnv("STORAGE_BUCKET", ""),
		PostgresUrl:             getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "socialmedia"),

		NotificationLocale:  getEnv("NOTIFICATION_LOCALE", "en"),
		FanoutConcurrency:   getInt("FANOUT_CONCURRENCY", 32),
		TokenMaxAgeDays:     getInt("TOKEN_MAX_AGE_DAYS", 60),
		StoryTTL:            getDuration("STORY_TTL", 24*time.Hour),
		ImageCodec:          getEnv("IMAGE_CODEC", "imagemagick"),
		ImageMagickBin:      getEnv("IMAGEMAGICK_BIN", "convert"),
		SchedulerEnabled:    getBool("SCHEDULER_ENABLED", true),
		CallableRequireAuth: getBool("CALLABLE_REQUIRE_AUTH", false),
		TriggerTimeout:      getDuration("TRIGGER_TIMEOUT", 540*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Ignoring invalid integer %s=%q", key, value)
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
		log.Printf("Ignoring invalid boolean %s=%q", key, value)
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("90s", "24h").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		log.Printf("Ignoring invalid duration %s=%q", key, value)
	}
	return defaultValue
}
