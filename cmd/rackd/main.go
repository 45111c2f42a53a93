package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/logtrace"
	"github.com/rackhaus/rackd/internal/inventory/config"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/server"
)

func init() {
	logtrace.InitLogger()
}

type cmdoptions struct {
	configFile *string
}

func main() {
	slog := log.With().Str("state", "init").Logger()
	opt := parseFlags()

	slog.Info().Str("config_file", *opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(*opt.configFile); err != nil {
		slog.Error().Str("config_file", *opt.configFile).Err(err).Msg("unable to load config file")
		os.Exit(1)
	}
	if config.Config().ServerPort == "" {
		slog.Error().Msg("server port not defined")
		os.Exit(1)
	}
	if err := db.Init(); err != nil {
		slog.Error().Err(err).Msg("unable to initialize database pool")
		os.Exit(1)
	}
	s, err := server.CreateNewServer()
	if err != nil {
		slog.Error().Err(err).Msg("unable to create server")
		os.Exit(1)
	}
	s.MountHandlers()
	slog.Info().Str("port", config.Config().ServerPort).Msg("inventory server listening")
	if err := http.ListenAndServe(":"+config.Config().ServerPort, s.Router); err != nil {
		slog.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func parseFlags() cmdoptions {
	var opt cmdoptions
	opt.configFile = flag.String("config", "", "Path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
