package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4280,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Backend: "badger",
			Badger: BadgerConfig{
				Path: "./data/portal",
			},
			Mongo: MongoConfig{
				Database: "advisor_portal",
			},
		},
		Auth: AuthConfig{
			SessionTTL:        "24h",
			MaxFailedAttempts: 5,
			LockoutWindow:     "15m",
		},
		Notifications: NotificationsConfig{
			Retention:    "168h",
			MaxRecords:   50,
			DismissAfter: "5s",
		},
		Web: WebConfig{
			StaticDir: "./web/dist",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			Outputs: []string{"console"},
		},
	}
}
