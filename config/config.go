package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Current holds the configuration loaded by the last call to Load.
var Current = &Config{}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Mail      MailConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
	Cron      CronConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins string
	TimeZone    string
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	CookieName   string
	CookieSecure bool
	AdminEmail   string
	AdminPass    string
	AdminName    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type NATSConfig struct {
	URL string
}

type MailConfig struct {
	Driver           string // smtp, ses, mailersend or log
	From             string
	FromName         string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPass         string
	AWSRegion        string
	MailerSendAPIKey string
}

type UploadConfig struct {
	Driver              string // cloudinary, s3 or none
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	S3Bucket            string
	S3Region            string
	S3PublicURL         string
}

type RateLimitConfig struct {
	RPS    float64
	Burst  int
	Window time.Duration
}

type CronConfig struct {
	Enabled        bool
	ReminderWindow time.Duration
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file. Using environment variables directly.")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8000"),
			CORSOrigins: getEnv("CORS_ORIGINS", "*"),
			TimeZone:    getEnv("TIMEZONE", "Asia/Seoul"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", "your-secret-key-change-this-in-production"),
			TokenTTL:     getDuration("TOKEN_TTL", 7*24*time.Hour),
			CookieName:   getEnv("COOKIE_NAME", "token"),
			CookieSecure: getBool("COOKIE_SECURE", false),
			AdminEmail:   os.Getenv("ADMIN_EMAIL"),
			AdminPass:    os.Getenv("ADMIN_PASSWORD"),
			AdminName:    getEnv("ADMIN_NAME", "Administrator"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL: os.Getenv("NATS_URL"),
		},
		Mail: MailConfig{
			Driver:           strings.ToLower(getEnv("MAIL_DRIVER", "log")),
			From:             getEnv("MAIL_FROM", os.Getenv("EMAIL_USER")),
			FromName:         getEnv("MAIL_FROM_NAME", "PT Buddy"),
			SMTPHost:         os.Getenv("SMTP_HOST"),
			SMTPPort:         getInt("SMTP_PORT", 587),
			SMTPUser:         os.Getenv("EMAIL_USER"),
			SMTPPass:         os.Getenv("EMAIL_PASS"),
			AWSRegion:        getEnv("AWS_REGION", "ap-northeast-2"),
			MailerSendAPIKey: os.Getenv("MAILERSEND_API_KEY"),
		},
		Upload: UploadConfig{
			Driver:              strings.ToLower(getEnv("UPLOAD_DRIVER", "none")),
			CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
			CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "pt-buddy"),
			S3Bucket:            os.Getenv("S3_BUCKET"),
			S3Region:            getEnv("S3_REGION", getEnv("AWS_REGION", "ap-northeast-2")),
			S3PublicURL:         os.Getenv("S3_PUBLIC_URL"),
		},
		RateLimit: RateLimitConfig{
			RPS:    getFloat("RATE_LIMIT_RPS", 0.2),
			Burst:  getInt("RATE_LIMIT_BURST", 5),
			Window: getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Cron: CronConfig{
			Enabled:        getBool("CRON_ENABLED", true),
			ReminderWindow: getDuration("REMINDER_WINDOW", 24*time.Hour),
		},
	}

	Current = cfg
	return cfg
}

// Location returns the configured business time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
