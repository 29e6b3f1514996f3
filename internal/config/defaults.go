package config

const (
	defaultAPIBaseURL          = "http://localhost:8000"
	defaultUserAgent           = "crazypanel/0.1.0"
	defaultAccount             = "Account_001"
	defaultPanelBind           = "127.0.0.1:5173"
	defaultStateDir            = "~/.local/share/crazypanel"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultNotifyTimeout       = 10
	defaultUploadsHint         = "shared-resources/uploads"
	defaultLogsHint            = "logs"
	envAPIBaseURL              = "CRAZY_POSTER_API_URL"
	envNtfyTopic               = "CRAZYPANEL_NTFY_TOPIC"
	defaultConfigPathTemplate  = "~/.config/crazypanel/config.toml"
	defaultProjectConfigSuffix = "crazypanel.toml"
)

// Default returns a Config populated with repository defaults.
//
// The API base URL is left empty so normalize can apply the
// CRAZY_POSTER_API_URL environment fallback before the local default.
func Default() Config {
	return Config{
		API: API{
			UserAgent: defaultUserAgent,
		},
		Accounts: Accounts{
			Default: defaultAccount,
		},
		Panel: Panel{
			Bind:        defaultPanelBind,
			StateDir:    defaultStateDir,
			UploadsHint: defaultUploadsHint,
			LogsHint:    defaultLogsHint,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RunQueued:      true,
			Scheduled:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
