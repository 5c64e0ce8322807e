package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

type config struct {
	Port          string
	SecretKey     string
	TokenTTL      time.Duration
	AllowedOrigin string
	LogLevel      string
	SeedPassword  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	SMSCountryCode   string
}

// loadConfig reads the process environment. godotenv has already been applied
// by the caller, so values from .env are visible here.
func loadConfig() (config, error) {
	cfg := config{
		Port:             getEnv("PORT", "8000"),
		SecretKey:        os.Getenv("SECRET_KEY"),
		AllowedOrigin:    getEnv("ALLOWED_ORIGIN", "*"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		SeedPassword:     os.Getenv("SEED_PASSWORD"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           os.Getenv("DB_USER"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBName:           os.Getenv("DB_NAME"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM"),
		SMSCountryCode:   getEnv("SMS_COUNTRY_CODE", "+91"),
	}

	if cfg.SecretKey == "" {
		return config{}, errors.New("SECRET_KEY is not set")
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return config{}, fmt.Errorf("PORT must be numeric: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "30m"))
	if err != nil {
		return config{}, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	if ttl <= 0 {
		return config{}, errors.New("TOKEN_TTL must be positive")
	}
	cfg.TokenTTL = ttl

	if v := os.Getenv("REDIS_DB"); v != "" {
		if cfg.RedisDB, err = strconv.Atoi(v); err != nil {
			return config{}, fmt.Errorf("REDIS_DB must be numeric: %w", err)
		}
	}

	if _, err = log.ParseLevel(cfg.LogLevel); err != nil {
		return config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func (c config) databaseDSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return dsn.String()
}

func (c config) smsEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func setupLogger(level string) {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	if lvl, err := log.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
}
