package utils

import (
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/pedulirasa/backend/config"
)

var (
	// Logger is the global structured logger. It is a no-op until InitLogger runs.
	Logger = zap.NewNop()
	// Sugar is a sugared logger for convenience
	Sugar = Logger.Sugar()
)

// InitLogger initializes a zap logger with console + rolling file outputs based on configuration.
func InitLogger(cfg config.AppConfig) error {
	level := parseLevel(cfg.LogLevel)
	encCfg := encoderConfig()

	var cores []zapcore.Core
	cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(os.Stdout), levelEnabler(level)))

	if cfg.LogPath != "" {
		ws, err := rollingWriter(cfg.LogPath, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, levelEnabler(level)))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.LogLevel == "debug" {
		opts = append(opts, zap.Development())
	}
	Logger = zap.New(zapcore.NewTee(cores...), opts...)
	Sugar = Logger.Sugar()
	return nil
}

// NewRollingFileLogger builds a file-only zap logger, used for the HTTP access log.
func NewRollingFileLogger(path, level string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) (*zap.Logger, error) {
	ws, err := rollingWriter(path, maxSizeMB, maxBackups, maxAgeDays, compress)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), ws, levelEnabler(parseLevel(level)))
	return zap.New(core), nil
}

// Ginzap logs each request after it has been handled.
func Ginzap(logger *zap.Logger, timeFormat string, utc bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		c.Next()

		end := time.Now()
		if utc {
			end = end.UTC()
		}
		fields := []zapcore.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.String("time", end.Format(timeFormat)),
			zap.Duration("latency", end.Sub(start)),
		}
		if len(c.Errors) > 0 {
			for _, e := range c.Errors.Errors() {
				logger.Error(e, fields...)
			}
			return
		}
		logger.Info(path, fields...)
	}
}

// RecoveryWithZap recovers from panics, logs them and answers 500.
func RecoveryWithZap(logger *zap.Logger, stack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// A broken connection is not worth a stack trace
				var brokenPipe bool
				if ne, ok := err.(*net.OpError); ok {
					if se, ok := ne.Err.(*os.SyscallError); ok {
						msg := strings.ToLower(se.Error())
						brokenPipe = strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
					}
				}

				httpRequest, _ := httputil.DumpRequest(c.Request, false)
				if brokenPipe {
					logger.Error(c.Request.URL.Path, zap.Any("error", err), zap.String("request", string(httpRequest)))
					c.Abort()
					return
				}

				fields := []zapcore.Field{
					zap.Time("time", time.Now()),
					zap.Any("error", err),
					zap.String("request", string(httpRequest)),
				}
				if stack {
					fields = append(fields, zap.String("stack", string(debug.Stack())))
				}
				logger.Error("[Recovery from panic]", fields...)
				Error(c, http.StatusInternalServerError, 50000, "internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}

func rollingWriter(path string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) (zapcore.WriteSyncer, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    nz(maxSizeMB, 100), // megabytes
		MaxBackups: nz(maxBackups, 3),
		MaxAge:     nz(maxAgeDays, 7), // days
		Compress:   compress,
	}
	return zapcore.AddSync(lj), nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func levelEnabler(level zapcore.Level) zapcore.LevelEnabler {
	return zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= level })
}

func nz(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
