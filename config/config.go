package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	AppURL             string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	OAuthRedirectBase  string
	// Timezone is the server calendar used for "today", "week", "month" and "year" filters.
	Timezone string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Gin framework configuration
	GinMode string
	GinPath string
	// OAuth providers
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	// SMTP for email verification, contact form and abuse reports
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	SMTPFromName     string
	SMTPTLS          bool
	ContactRecipient string
	ContactCooldown  int
	// Redis for caching/verification. Empty host disables Redis.
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	FeedCacheTTL  int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// File storage
	StorageDriver    string
	StorageLocalRoot string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioBucket      string
	MinioUseSSL      bool
	MinioPublicURL   string
	UploadTTLMinutes int
	// Registration
	RegisterCaptchaEnabled bool
	// Admins are matched by email, case-insensitive.
	AdminEmails []string
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	// Precedence: .env -> config/config.json -> defaults -> environment variable overrides
	_ = godotenv.Load()

	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	return Load()
}

// Override replaces the cached configuration. Missing values get defaults.
func Override(c AppConfig) {
	applyDefaults(&c)
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// Location returns the configured server calendar location, falling back to time.Local.
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsAdminEmail reports whether email belongs to a configured administrator.
func (c AppConfig) IsAdminEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

// fileConfig mirrors the grouped sections of config/config.json.
type fileConfig struct {
	App struct {
		AppPort                string
		AppURL                 string
		JWTSecret              string
		Timezone               string
		RateLimitPerMinute     int
		AllowedOrigins         []string
		OAuthRedirectBase      string
		RegisterCaptchaEnabled bool
	} `json:"app"`
	Gin struct {
		Mode    string
		LogPath string
	} `json:"gin"`
	Database struct {
		Driver      string
		DatabaseURI string
		DBHost      string
		DBPort      string
		DBUser      string
		DBPassword  string
		DBName      string
	} `json:"database"`
	Redis struct {
		RedisHost           string
		RedisPort           int
		RedisDB             int
		RedisPassword       string
		FeedCacheTTLSeconds int
	} `json:"redis"`
	OAuth struct {
		GitHubClientID     string
		GitHubClientSecret string
		GoogleClientID     string
		GoogleClientSecret string
	} `json:"oauth"`
	SMTP struct {
		SMTPHost           string
		SMTPPort           int
		SMTPUsername       string
		SMTPPassword       string
		SMTPFrom           string
		SMTPFromName       string
		SMTPTLS            bool
		ContactRecipient   string
		ContactCooldownSec int
	} `json:"smtp"`
	Log struct {
		Level      string
		Path       string
		GinMode    string
		GinPath    string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	} `json:"log"`
	Storage struct {
		Driver           string
		LocalRoot        string
		MinioEndpoint    string
		MinioAccessKey   string
		MinioSecretKey   string
		MinioBucket      string
		MinioUseSSL      bool
		MinioPublicURL   string
		UploadTTLMinutes int
	} `json:"storage"`
	Admin struct {
		Emails []string
	} `json:"admin"`
}

// loadJSONConfig reads grouped JSON sections into out if the file is present.
// Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	var f fileConfig
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	out.AppPort = f.App.AppPort
	out.AppURL = f.App.AppURL
	out.JWTSecret = f.App.JWTSecret
	out.Timezone = f.App.Timezone
	out.RateLimitPerMinute = f.App.RateLimitPerMinute
	out.AllowedOrigins = f.App.AllowedOrigins
	out.OAuthRedirectBase = f.App.OAuthRedirectBase
	out.RegisterCaptchaEnabled = f.App.RegisterCaptchaEnabled

	out.GinMode = firstNonEmpty(f.Log.GinMode, f.Gin.Mode)
	out.GinPath = firstNonEmpty(f.Log.GinPath, f.Gin.LogPath)

	out.DBDriver = f.Database.Driver
	out.DatabaseURI = f.Database.DatabaseURI
	out.DBHost = f.Database.DBHost
	out.DBPort = f.Database.DBPort
	out.DBUser = f.Database.DBUser
	out.DBPassword = f.Database.DBPassword
	out.DBName = f.Database.DBName

	out.RedisHost = f.Redis.RedisHost
	out.RedisPort = f.Redis.RedisPort
	out.RedisDB = f.Redis.RedisDB
	out.RedisPassword = f.Redis.RedisPassword
	out.FeedCacheTTL = f.Redis.FeedCacheTTLSeconds

	out.GitHubClientID = f.OAuth.GitHubClientID
	out.GitHubClientSecret = f.OAuth.GitHubClientSecret
	out.GoogleClientID = f.OAuth.GoogleClientID
	out.GoogleClientSecret = f.OAuth.GoogleClientSecret

	out.SMTPHost = f.SMTP.SMTPHost
	out.SMTPPort = f.SMTP.SMTPPort
	out.SMTPUsername = f.SMTP.SMTPUsername
	out.SMTPPassword = f.SMTP.SMTPPassword
	out.SMTPFrom = f.SMTP.SMTPFrom
	out.SMTPFromName = f.SMTP.SMTPFromName
	out.SMTPTLS = f.SMTP.SMTPTLS
	out.ContactRecipient = f.SMTP.ContactRecipient
	out.ContactCooldown = f.SMTP.ContactCooldownSec

	out.LogLevel = f.Log.Level
	out.LogPath = f.Log.Path
	out.LogMaxSizeMB = f.Log.MaxSizeMB
	out.LogMaxBackups = f.Log.MaxBackups
	out.LogMaxAgeDays = f.Log.MaxAgeDays
	out.LogCompress = f.Log.Compress

	out.StorageDriver = f.Storage.Driver
	out.StorageLocalRoot = f.Storage.LocalRoot
	out.MinioEndpoint = f.Storage.MinioEndpoint
	out.MinioAccessKey = f.Storage.MinioAccessKey
	out.MinioSecretKey = f.Storage.MinioSecretKey
	out.MinioBucket = f.Storage.MinioBucket
	out.MinioUseSSL = f.Storage.MinioUseSSL
	out.MinioPublicURL = f.Storage.MinioPublicURL
	out.UploadTTLMinutes = f.Storage.UploadTTLMinutes

	out.AdminEmails = f.Admin.Emails
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8080"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		if c.DBDriver == "postgres" {
			c.DBPort = "5432"
		} else {
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "pedulirasa"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.ContactCooldown == 0 {
		c.ContactCooldown = 60
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.FeedCacheTTL == 0 {
		c.FeedCacheTTL = 60
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.StorageDriver == "" {
		c.StorageDriver = "local"
	}
	if c.StorageLocalRoot == "" {
		c.StorageLocalRoot = filepath.Join("storage", "app", "public")
	}
	if c.MinioBucket == "" {
		c.MinioBucket = "pedulirasa"
	}
	if c.UploadTTLMinutes == 0 {
		c.UploadTTLMinutes = 24 * 60
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	envString("APP_PORT", &c.AppPort)
	envString("APP_URL", &c.AppURL)
	envString("APP_TIMEZONE", &c.Timezone)
	envString("JWT_SECRET", &c.JWTSecret)
	envString("GIN_MODE", &c.GinMode)
	envString("GIN_PATH", &c.GinPath)
	envInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	envList("CORS_ALLOWED_ORIGINS", &c.AllowedOrigins)
	envString("OAUTH_REDIRECT_BASE_URL", &c.OAuthRedirectBase)
	envBool("REGISTER_CAPTCHA_ENABLED", &c.RegisterCaptchaEnabled)
	envList("ADMIN_EMAILS", &c.AdminEmails)

	envString("DB_DRIVER", &c.DBDriver)
	envString("DATABASE_URI", &c.DatabaseURI)
	envString("DB_HOST", &c.DBHost)
	envString("DB_PORT", &c.DBPort)
	envString("DB_USER", &c.DBUser)
	envString("DB_PASSWORD", &c.DBPassword)
	envString("DB_NAME", &c.DBName)

	envString("GITHUB_CLIENT_ID", &c.GitHubClientID)
	envString("GITHUB_CLIENT_SECRET", &c.GitHubClientSecret)
	envString("GOOGLE_CLIENT_ID", &c.GoogleClientID)
	envString("GOOGLE_CLIENT_SECRET", &c.GoogleClientSecret)

	envString("SMTP_HOST", &c.SMTPHost)
	envInt("SMTP_PORT", &c.SMTPPort)
	envString("SMTP_USERNAME", &c.SMTPUsername)
	envString("SMTP_PASSWORD", &c.SMTPPassword)
	envString("SMTP_FROM", &c.SMTPFrom)
	envString("SMTP_FROM_NAME", &c.SMTPFromName)
	envBool("SMTP_TLS", &c.SMTPTLS)
	envString("CONTACT_RECIPIENT", &c.ContactRecipient)
	envInt("CONTACT_COOLDOWN_SECONDS", &c.ContactCooldown)

	envString("REDIS_HOST", &c.RedisHost)
	envInt("REDIS_PORT", &c.RedisPort)
	envInt("REDIS_DB", &c.RedisDB)
	envString("REDIS_PASSWORD", &c.RedisPassword)
	envInt("FEED_CACHE_TTL_SECONDS", &c.FeedCacheTTL)

	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_PATH", &c.LogPath)
	envInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	envInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	envInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	envBool("LOG_COMPRESS", &c.LogCompress)

	envString("STORAGE_DRIVER", &c.StorageDriver)
	envString("STORAGE_LOCAL_ROOT", &c.StorageLocalRoot)
	envString("MINIO_ENDPOINT", &c.MinioEndpoint)
	envString("MINIO_ACCESS_KEY", &c.MinioAccessKey)
	envString("MINIO_SECRET_KEY", &c.MinioSecretKey)
	envString("MINIO_BUCKET", &c.MinioBucket)
	envBool("MINIO_USE_SSL", &c.MinioUseSSL)
	envString("MINIO_PUBLIC_URL", &c.MinioPublicURL)
	envInt("UPLOAD_TTL_MINUTES", &c.UploadTTLMinutes)
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid integer value for %s: %v", key, err)
	}
	*dst = i
}

func envBool(key string, dst *bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("invalid boolean value for %s: %v", key, err)
	}
	*dst = b
}

func envList(key string, dst *[]string) {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		*dst = splitAndTrim(v)
	}
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
