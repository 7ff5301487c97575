package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Admin     AdminConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig
	LogLevel  slog.Level
	Location  *time.Location
}

type ServerConfig struct {
	Host string
	Port int
}

type StorageConfig struct {
	DataDir      string
	S3Endpoint   string
	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Prefix     string
	S3MaxBackups int
}

type PostgresConfig struct {
	DSN      string
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

// Enabled reports whether any PostgreSQL connection setting was provided.
func (c PostgresConfig) Enabled() bool {
	return c.DSN != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type AdminConfig struct {
	User         string
	Password     string
	PasswordHash string
}

type SMTPConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	From         string
	BookingEmail string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.User != "" && c.Password != ""
}

type RateLimitConfig struct {
	PerMinute int
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: stringEnv("SERVER_HOST", "localhost"),
		Port: serverPort,
	}

	maxBackups, err := intEnv("S3_MAX_BACKUPS", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	storageCfg := StorageConfig{
		DataDir:      stringEnv("DATA_DIR", "data"),
		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3Region:     stringEnv("S3_REGION", "us-east-1"),
		S3Bucket:     os.Getenv("S3_BUCKET"),
		S3AccessKey:  os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:  os.Getenv("S3_SECRET_KEY"),
		S3Prefix:     os.Getenv("S3_PREFIX"),
		S3MaxBackups: maxBackups,
	}

	postgresCfg, err := postgresFromEnv()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	adminCfg := AdminConfig{
		User:         stringEnv("ADMIN_USER", "admin"),
		Password:     os.Getenv("ADMIN_PASSWORD"),
		PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
	}

	smtpPort, err := intEnv("SMTP_PORT", 465)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	smtpUser := os.Getenv("SMTP_USER")
	smtpCfg := SMTPConfig{
		Host:         os.Getenv("SMTP_HOST"),
		Port:         smtpPort,
		User:         smtpUser,
		Password:     os.Getenv("SMTP_PASS"),
		From:         stringEnv("FROM_EMAIL", smtpUser),
		BookingEmail: stringEnv("BOOKING_EMAIL", smtpUser),
	}

	perMinute, err := intEnv("RATE_LIMIT_PER_MINUTE", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	level, err := parseLevel(stringEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	loc, err := time.LoadLocation(stringEnv("TIMEZONE", "Europe/Berlin"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid TIMEZONE: %w", op, err)
	}

	return &Config{
		Server:    serverCfg,
		Storage:   storageCfg,
		Postgres:  postgresCfg,
		Redis:     redisCfg,
		Admin:     adminCfg,
		SMTP:      smtpCfg,
		RateLimit: RateLimitConfig{PerMinute: perMinute},
		LogLevel:  level,
		Location:  loc,
	}, nil
}

// postgresFromEnv uses POSTGRES_DSN when set and otherwise assembles a DSN
// from the individual POSTGRES_* variables. Without a user and database the
// PostgreSQL backend stays disabled.
func postgresFromEnv() (PostgresConfig, error) {
	port, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}

	maxConns, err := intEnv("POSTGRES_MAX_CONNS", 10)
	if err != nil {
		return PostgresConfig{}, err
	}

	cfg := PostgresConfig{
		DSN:      os.Getenv("POSTGRES_DSN"),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     os.Getenv("POSTGRES_DB"),
		Host:     stringEnv("POSTGRES_HOST", "localhost"),
		Port:     port,
		SSLMode:  stringEnv("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(maxConns),
	}

	if cfg.DSN == "" && cfg.User != "" && cfg.Name != "" {
		dsn := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Path:     "/" + cfg.Name,
			RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
		}
		cfg.DSN = dsn.String()
	}

	return cfg, nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return n, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return level, nil
}
