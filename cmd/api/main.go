// Package main is the entry point for the hyperauth API server, which issues,
// verifies, rotates and revokes bearer tokens and manages the user accounts
// behind them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/config"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/handlers"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/server"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// Build information, set through linker flags:
//
//	go build -ldflags "-X main.version=1.4.0 -X main.commit=$(git rev-parse --short HEAD)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// init loads environment variables from a .env file if present.
func init() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found or couldn't be loaded")
	}
}

func main() {
	var (
		configPath  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "./configs/config.yaml", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("hyperauth\nVersion: %s\nCommit: %s\nBuild Time: %s\n", version, commit, buildTime)
		os.Exit(0)
	}

	// Bootstrap logger until the configured one is in place
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.App.Version = version
	}

	utils.InitLogger(cfg)
	utils.InitValidator()

	log.Info().
		Str("version", cfg.App.Version).
		Str("commit", commit).
		Str("environment", cfg.App.Environment).
		Msg("Starting hyperauth")

	srv, err := server.NewServer(cfg, handlers.BuildInfo{
		Version:     cfg.App.Version,
		Commit:      commit,
		BuildTime:   buildTime,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	if err := srv.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("Server exited")
}
