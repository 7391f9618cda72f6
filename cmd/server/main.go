package main

import (
	"context"
	"flag"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/Tyrowin/fanout/internal/logging"
	"github.com/Tyrowin/fanout/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		l := logging.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(cfg.Log)
	logger := logging.L()
	logger.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("starting fan-out chat server")

	srv := server.New(*cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("server stopped unexpectedly")
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"chat-server": func(ctx context.Context) error {
				logger.Info().Msg("graceful shutdown initiated")
				return srv.Shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info().Int("exit_code", exitCode).Msg("server exited")
	os.Exit(exitCode)
}
