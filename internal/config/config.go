package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port            string
	MongoDBURI      string
	MongoDBName     string
	JWTSecret       string
	Environment     string
	LogLevel        string
	MinSeparationKm float64
	AllowedOrigins  []string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:        getEnvWithDefault("PORT", "8080"),
		MongoDBURI:  os.Getenv("MONGODB_URI"),
		MongoDBName: getEnvWithDefault("MONGODB_DB", "calibar"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
	}

	sep := getEnvWithDefault("MIN_SEPARATION_KM", "0.05")
	minSeparation, err := strconv.ParseFloat(sep, 64)
	if err != nil || minSeparation <= 0 {
		return nil, fmt.Errorf("MIN_SEPARATION_KM must be a positive number, got %q", sep)
	}
	cfg.MinSeparationKm = minSeparation

	origins := getEnvWithDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	// Validate required fields
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
