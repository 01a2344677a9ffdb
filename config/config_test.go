package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"AppPort": "9000", "JWTSecret": "s3cret", "Timezone": "Asia/Jakarta", "AllowedOrigins": ["https://pedulirasa.id"]},
		"gin": {"Mode": "debug", "LogPath": "logs/gin.log"},
		"database": {"Driver": "postgres", "DBName": "rasa"},
		"redis": {"RedisHost": "cache", "FeedCacheTTLSeconds": 30},
		"smtp": {"ContactRecipient": "ops@pedulirasa.id", "ContactCooldownSec": 120},
		"log": {"Level": "debug", "GinPath": "logs/access.log"},
		"storage": {"Driver": "minio", "MinioBucket": "uploads", "MinioUseSSL": true},
		"admin": {"Emails": ["admin@pedulirasa.id"]}
	}`), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, "Asia/Jakarta", c.Timezone)
	assert.Equal(t, []string{"https://pedulirasa.id"}, c.AllowedOrigins)
	assert.Equal(t, "debug", c.GinMode)
	assert.Equal(t, "logs/access.log", c.GinPath, "log section wins over gin section")
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, "cache", c.RedisHost)
	assert.Equal(t, 30, c.FeedCacheTTL)
	assert.Equal(t, 120, c.ContactCooldown)
	assert.Equal(t, "minio", c.StorageDriver)
	assert.True(t, c.MinioUseSSL)
	assert.Equal(t, []string{"admin@pedulirasa.id"}, c.AdminEmails)

	applyDefaults(&c)
	assert.Equal(t, "5432", c.DBPort)
	assert.Equal(t, 6379, c.RedisPort)
}

func TestLoadJSONConfigMissingAndInvalid(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	assert.Error(t, loadJSONConfig(path, &c))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "7070")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("SMTP_TLS", "true")
	t.Setenv("ADMIN_EMAILS", "root@pedulirasa.id")

	c := AppConfig{AppPort: "9000", RateLimitPerMinute: 60}
	applyEnvOverrides(&c)
	assert.Equal(t, "7070", c.AppPort)
	assert.Equal(t, 30, c.RateLimitPerMinute)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.True(t, c.SMTPTLS)
	assert.Equal(t, []string{"root@pedulirasa.id"}, c.AdminEmails)
}

func TestDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)
	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, "local", c.StorageDriver)
	assert.Equal(t, 24*60, c.UploadTTLMinutes)
}

func TestLocationAndAdmins(t *testing.T) {
	c := AppConfig{Timezone: "Asia/Jakarta", AdminEmails: []string{" Admin@PeduliRasa.id "}}
	loc := c.Location()
	_, offset := time.Date(2026, 10, 14, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 7*3600, offset)
	assert.Equal(t, time.Local, AppConfig{Timezone: "Nowhere/City"}.Location())

	assert.True(t, c.IsAdminEmail("admin@pedulirasa.id"))
	assert.False(t, c.IsAdminEmail(""))
	assert.False(t, c.IsAdminEmail("user@pedulirasa.id"))
}
