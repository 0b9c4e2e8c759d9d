package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration
type Config struct {
	Port        int
	SiteRoot    string // public base URL used in ping, pause and badge links
	Database    DatabaseConfig
	JWTSecret   string
	SecretKey   string // HMAC key for signed unsubscribe and badge links
	Environment string
	CORSOrigins []string
	SMTP        SMTPConfig
	LogDir      string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type         string // postgres
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// SMTPConfig holds outbound mail settings. Host left empty disables mail
// delivery (links are still generated and logged).
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load loads configuration from environment variables
func Load() *Config {
	env := getEnv("ENVIRONMENT", "production")

	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		SiteRoot: strings.TrimRight(getEnv("SITE_ROOT", "http://localhost:8080"), "/"),
		Database: DatabaseConfig{
			Type:         getEnv("DATABASE_TYPE", "postgres"),
			DSN:          getEnv("DATABASE_DSN", buildPostgresDSN()),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		},
		JWTSecret:   loadSecret("JWT_SECRET", env),
		SecretKey:   loadSecret("SECRET_KEY", env),
		Environment: env,
		CORSOrigins: loadCORSOrigins(env),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@localhost"),
		},
		LogDir: getEnv("LOG_DIR", "logs"),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	return cfg
}

func buildPostgresDSN() string {
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "pulsetrack")
	password := getEnv("POSTGRES_PASSWORD", "secret")
	dbName := getEnv("POSTGRES_DB", "pulsetrack")
	sslMode := getEnv("POSTGRES_SSLMODE", "disable")

	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(user, password),
		Host:   fmt.Sprintf("%s:%s", host, port),
		Path:   dbName,
	}

	query := u.Query()
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()

	return u.String()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if len(c.SecretKey) < 32 {
			return fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
	}

	if _, err := url.Parse(c.SiteRoot); err != nil {
		return fmt.Errorf("SITE_ROOT is not a valid URL: %w", err)
	}

	if c.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	return nil
}

func loadSecret(key, env string) string {
	secret := os.Getenv(key)

	if secret == "" {
		if env == "production" {
			log.Fatalf("FATAL: %s environment variable is required in production", key)
		}

		log.Printf("WARNING: %s not set. Generating random secret for development.", key)
		log.Printf("WARNING: This secret will change on restart. Set %s in production!", key)
		return generateRandomSecret()
	}

	if len(secret) < 16 {
		log.Fatalf("FATAL: %s must be at least 16 characters long", key)
	}

	return secret
}

func loadCORSOrigins(env string) []string {
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}

	if env == "development" {
		return []string{"http://localhost:3000", "http://localhost:8080"}
	}

	if siteRoot := os.Getenv("SITE_ROOT"); siteRoot != "" {
		return []string{strings.TrimRight(siteRoot, "/")}
	}

	log.Println("WARNING: SITE_ROOT not set. Using default localhost origins.")
	return []string{"http://localhost:3000", "http://localhost:8080"}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func generateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Fatal("Failed to generate random secret:", err)
	}
	return base64.URLEncoding.EncodeToString(bytes)
}
