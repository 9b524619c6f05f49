package config

const (
	defaultConfigPath        = "~/.config/rollcall/config.toml"
	defaultDataDir           = "~/.local/share/rollcall"
	defaultLogDir            = "~/.local/share/rollcall/logs"
	defaultWorkspaceDir      = "~/.local/share/rollcall/workspaces"
	defaultSQLiteFile        = "registrations.db"
	defaultSQLitePath        = defaultDataDir + "/" + defaultSQLiteFile
	defaultStoreDriver       = DriverSQLite
	defaultPostgresMaxConns  = 4
	defaultBusyTimeoutMillis = 5000
	defaultMinMinutes        = 60
	defaultMinWindowPercent  = 90
	defaultTimezone          = "Local"
	defaultAPIBind           = "127.0.0.1:7490"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"

	postgresDSNEnv = "ROLLCALL_POSTGRES_DSN"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			LogDir:       defaultLogDir,
			WorkspaceDir: defaultWorkspaceDir,
		},
		Store: Store{
			Driver:            defaultStoreDriver,
			SQLitePath:        defaultSQLitePath,
			PostgresMaxConns:  defaultPostgresMaxConns,
			BusyTimeoutMillis: defaultBusyTimeoutMillis,
		},
		Attendance: Attendance{
			MinMinutes:       defaultMinMinutes,
			MinWindowPercent: defaultMinWindowPercent,
			Timezone:         defaultTimezone,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
