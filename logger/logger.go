// Package logger holds the process-wide zap logger and the redaction helpers
// used before personal data or credentials reach a log line.
package logger

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
	once   sync.Once
)

// IsTest switches to a development config on stdout. Set it before the first
// GetLogger call.
var IsTest bool

func isProduction() bool {
	return os.Getenv("SERVER_ENVIRONMENT") == "production"
}

func buildConfig() zap.Config {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	if isProduction() && !IsTest {
		cfg = zap.NewProductionConfig()
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stdout"}
	return cfg
}

func setup() {
	zl, err := buildConfig().Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	logger = zl.Sugar()
}

// InitLogger builds the global logger. Later calls are no-ops.
func InitLogger() {
	once.Do(setup)
}

// GetLogger returns the global logger, building it on first use.
func GetLogger() *zap.SugaredLogger {
	once.Do(setup)
	return logger
}

// Close flushes buffered entries.
func Close() error {
	if logger == nil || IsTest {
		return nil
	}
	if err := logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "Error syncing logger: %v\n", err)
		return err
	}
	return nil
}

// maskMiddle keeps head and tail characters of s. Strings too short to
// hide anything are starred out entirely.
func maskMiddle(s string, head, tail int) string {
	if len(s) < head+tail+3 {
		return strings.Repeat("*", len(s))
	}
	return s[:head] + "..." + s[len(s)-tail:]
}

// MaskEmail hides most of the local part of an address. Contact form
// submissions are logged with it.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return maskMiddle(email, 2, 2)
	}
	return maskMiddle(local, 2, 1) + "@" + domain
}

// MaskConnectionString hides the password in a database URL or a libpq
// key=value string.
func MaskConnectionString(conn string) string {
	if strings.Contains(conn, "://") {
		if u, err := url.Parse(conn); err == nil {
			return u.Redacted()
		}
	}

	fields := strings.Fields(conn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=xxxxx"
		}
	}
	return strings.Join(fields, " ")
}
