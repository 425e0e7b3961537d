package cmd

import (
	"github.com/templui/goaltrack/internal/app"
	"github.com/templui/goaltrack/internal/config"
	"github.com/templui/goaltrack/internal/logger"
)

// loadConfig reads the environment and sets up logging the way the server
// does, so command output lands in the same sinks.
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.Init(logger.Options{
		AppName:     cfg.AppName + "-ctl",
		Environment: cfg.AppEnv,
		Development: cfg.IsDevelopment(),
		SentryDSN:   cfg.SentryDSN,
	})
	return cfg
}

func withApp(fn func(a *app.App) error) error {
	a, err := app.New(loadConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}
