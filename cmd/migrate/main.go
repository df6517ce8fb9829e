// Command migrate applies or inspects the schema outside the server.
//
//	migrate up | down | steps N | version | force V
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"mcacrm/internal/config"
	applog "mcacrm/internal/log"
	"mcacrm/internal/migrations"
	"mcacrm/internal/repos"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate up | down | steps N | version | force V")
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("[config] invalid configuration")
	}
	applog.Setup(os.Stdout, cfg.LogLevel)
	logger := applog.Logger()

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN, false)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	mg, err := migrations.New(cfg.DBDriver, db.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("init migrations")
	}
	defer mg.Close()

	arg := func() int {
		if len(args) < 2 {
			usage()
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			logger.Fatal().Str("arg", args[1]).Msg("expected an integer")
		}
		return n
	}

	switch args[0] {
	case "up":
		err = mg.Up()
	case "down":
		err = mg.Down()
	case "steps":
		err = mg.Steps(arg())
	case "force":
		err = mg.Force(arg())
	case "version":
	default:
		usage()
	}
	if err != nil {
		logger.Fatal().Err(err).Str("cmd", args[0]).Msg("migration failed")
	}

	v, dirty, ok, err := mg.Version()
	if err != nil {
		logger.Fatal().Err(err).Msg("read version")
	}
	if !ok {
		logger.Info().Str("cmd", args[0]).Msg("no migrations applied")
		return
	}
	logger.Info().Str("cmd", args[0]).Uint("version", v).Bool("dirty", dirty).Msg("done")
}
