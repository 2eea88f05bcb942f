package main

import (
	"log"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edhedges/receive-kit/internal/config"
	"github.com/edhedges/receive-kit/internal/infra/chain"
	httpinfra "github.com/edhedges/receive-kit/internal/infra/http"
	"github.com/edhedges/receive-kit/internal/infra/integrity"
)

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	decoder, err := chain.NewEventDecoder()
	if err != nil {
		log.Fatalf("failed to build event decoder: %v", err)
	}
	fetcher := chain.NewClient(cfg.Web3Provider, decoder, cfg.RPCTimeout(), logger)

	srv := httpinfra.NewServer(cfg, fetcher, integrity.New(), logger)
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
