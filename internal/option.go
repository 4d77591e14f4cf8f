package internal

import "log/slog"

// Option is a functional option for configuring the application.
type Option func(*application)

// Reloader re-reads the configuration on SIGHUP.
type Reloader func() (*Config, error)

type application struct {
	config *Config
	logger *slog.Logger
	reload Reloader
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the JSON stdout logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithReloader enables settings reload on SIGHUP.
func WithReloader(r Reloader) Option {
	return func(a *application) {
		a.reload = r
	}
}
