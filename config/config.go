package config

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/viper"
)

var DB *sqlx.DB

// Config is the typed view over the environment used by the server and CLI.
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	Version     string
	CORSOrigins []string

	DBDriver        string
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	RedisURL  string
	JWTSecret string

	ImportMaxFileSize int64
	ImportPreviewRows int
	ImportArchiveBkt  string

	UserCacheSize int
	UserCacheTTL  time.Duration

	RateLimitPerMinute int

	MailerProvider string
	EmailFrom      string
	ResendAPIKey   string
	AWSRegion      string

	ConsoleAPIURL string
	ConsoleToken  string
}

// InitConfig loads an optional .env file and wires viper to the environment.
func InitConfig() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("APP_VERSION", "dev")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	viper.SetDefault("DB_DRIVER", "mysql")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", time.Minute)
	viper.SetDefault("IMPORT_MAX_FILE_SIZE", 10<<20)
	viper.SetDefault("IMPORT_PREVIEW_ROWS", 10)
	viper.SetDefault("USER_CACHE_SIZE", 256)
	viper.SetDefault("USER_CACHE_TTL", 30*time.Second)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("MAILER_PROVIDER", "none")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("CONSOLE_API_URL", "http://localhost:8080")
}

// Load reads the current viper state into a Config.
func Load() *Config {
	return &Config{
		Port:        viper.GetString("PORT"),
		Environment: viper.GetString("APP_ENV"),
		LogLevel:    viper.GetString("LOG_LEVEL"),
		Version:     viper.GetString("APP_VERSION"),
		CORSOrigins: splitList(viper.GetString("CORS_ORIGINS")),

		DBDriver:        strings.ToLower(viper.GetString("DB_DRIVER")),
		DatabaseURL:     viper.GetString("DATABASE_URL"),
		MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
		ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),

		RedisURL:  viper.GetString("REDIS_URL"),
		JWTSecret: viper.GetString("JWT_SECRET"),

		ImportMaxFileSize: viper.GetInt64("IMPORT_MAX_FILE_SIZE"),
		ImportPreviewRows: viper.GetInt("IMPORT_PREVIEW_ROWS"),
		ImportArchiveBkt:  viper.GetString("IMPORT_ARCHIVE_BUCKET"),

		UserCacheSize: viper.GetInt("USER_CACHE_SIZE"),
		UserCacheTTL:  viper.GetDuration("USER_CACHE_TTL"),

		RateLimitPerMinute: viper.GetInt("RATE_LIMIT_PER_MINUTE"),

		MailerProvider: strings.ToLower(viper.GetString("MAILER_PROVIDER")),
		EmailFrom:      viper.GetString("EMAIL_FROM"),
		ResendAPIKey:   viper.GetString("RESEND_API_KEY"),
		AWSRegion:      viper.GetString("AWS_REGION"),

		ConsoleAPIURL: viper.GetString("CONSOLE_API_URL"),
		ConsoleToken:  viper.GetString("CONSOLE_TOKEN"),
	}
}

// InitDB opens the sqlx pool for the configured driver and stores it in DB.
func InitDB(cfg *Config) error {
	driver, dsn, err := driverDSN(cfg)
	if err != nil {
		return err
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return fmt.Errorf("connect %s: %w", driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	DB = db
	log.Printf("Database connected (driver=%s, max_open=%d, max_idle=%d, max_lifetime=%s)",
		driver, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime)
	return nil
}

func driverDSN(cfg *Config) (string, string, error) {
	if cfg.DatabaseURL == "" {
		return "", "", fmt.Errorf("DATABASE_URL is required")
	}
	switch cfg.DBDriver {
	case "postgres":
		return "postgres", cfg.DatabaseURL, nil
	case "mysql", "":
		return "mysql", mysqlDSN(cfg.DatabaseURL), nil
	default:
		return "", "", fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// mysqlDSN appends the connection parameters the repositories rely on.
// clientFoundRows makes RowsAffected count matched rows, not changed rows.
func mysqlDSN(dsn string) string {
	params := []string{"parseTime=true", "loc=UTC", "timeout=10s", "readTimeout=30s", "writeTimeout=30s", "clientFoundRows=true"}
	for _, p := range params {
		key := strings.SplitN(p, "=", 2)[0] + "="
		if strings.Contains(dsn, key) {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + p
		} else {
			dsn += "?" + p
		}
	}
	return dsn
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CloseDB closes the database connection gracefully
func CloseDB() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
