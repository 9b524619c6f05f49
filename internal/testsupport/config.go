package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"rollcall/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = base
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.WorkspaceDir = filepath.Join(base, "workspaces")
	cfgVal.Store.Driver = config.DriverSQLite
	cfgVal.Store.SQLitePath = filepath.Join(base, "registrations.db")
	cfgVal.Store.BusyTimeoutMillis = 500
	cfgVal.Attendance.Timezone = "UTC"
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Logging.Format = "json"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithThresholds overrides the default approval thresholds.
func WithThresholds(minMinutes, minWindowPercent int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Attendance.MinMinutes = minMinutes
		b.cfg.Attendance.MinWindowPercent = minWindowPercent
	}
}

// WithExclusions sets the staff exclusion patterns.
func WithExclusions(patterns ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Attendance.Exclusions = append([]string(nil), patterns...)
	}
}

// WithBusyTimeout shortens or lengthens the SQLite busy retry window.
func WithBusyTimeout(d time.Duration) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.BusyTimeoutMillis = int(d.Milliseconds())
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.DataDir
}
