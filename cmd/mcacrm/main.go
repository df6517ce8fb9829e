package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"mcacrm/internal/config"
	"mcacrm/internal/http/server"
	applog "mcacrm/internal/log"
	"mcacrm/internal/repos"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("[config] invalid configuration")
	}

	// Optional file logging
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.LogFile).Msg("could not open log file")
		} else {
			defer f.Close()
			out = io.MultiWriter(os.Stdout, f)
		}
	}
	applog.Setup(out, cfg.LogLevel)
	logger := applog.Logger()

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN, cfg.AutoMigrate)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	app, err := server.NewApp(cfg, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("build app")
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", cfg.Addr()).Str("db_driver", cfg.DBDriver).Msg("listening")
	if err := app.Listen(cfg.Addr()); err != nil {
		logger.Error().Err(err).Msg("listen")
	}
}
