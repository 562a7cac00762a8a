package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Sessions
	SessionTokenHours     int
	SessionIdleMinutes    int
	IdleWorkerPollSeconds int
	MaxSessions           int

	// Simulation
	PhysicsHz     int
	FrameHz       int
	CanvasWidth   float64
	CanvasHeight  float64
	InputDrawMode string

	// Audio
	AudioSampleRate int

	// Security
	JWTSecret string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/linechime?sslmode=disable"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Sessions
		SessionTokenHours:     getEnvInt("SESSION_TOKEN_HOURS", 12),
		SessionIdleMinutes:    getEnvInt("SESSION_IDLE_MINUTES", 30),
		IdleWorkerPollSeconds: getEnvInt("IDLE_WORKER_POLL_SECONDS", 15),
		MaxSessions:           getEnvInt("MAX_SESSIONS", 200),

		// Simulation
		PhysicsHz:     getEnvInt("PHYSICS_HZ", 240),
		FrameHz:       getEnvInt("FRAME_HZ", 30),
		CanvasWidth:   getEnvFloat("CANVAS_WIDTH", 1280),
		CanvasHeight:  getEnvFloat("CANVAS_HEIGHT", 720),
		InputDrawMode: getEnv("INPUT_DRAW_MODE", "tap"),

		// Audio
		AudioSampleRate: getEnvInt("AUDIO_SAMPLE_RATE", 44100),

		// Security
		JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultValue
}
