package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"

	"checkinDesk/cmd/buildCFG"
	"checkinDesk/internal/repo"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "checkin",
	Short:        "Event check-in admin console",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "Config file path")
}

func main() {
	zlog.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		zlog.Logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loadConfig reads configuration and applies the configured log level.
func loadConfig() (*config.Config, *zerolog.Logger, error) {
	log := zlog.Logger
	v, err := buildCFG.Load(cfgFile, &log)
	if err != nil {
		return nil, nil, err
	}
	if lvl, err := zerolog.ParseLevel(v.GetString("log.level")); err == nil && lvl != zerolog.NoLevel {
		log = log.Level(lvl)
	}
	return v, &log, nil
}

func openRepository(v *config.Config, log *zerolog.Logger) (repo.Repository, func(), error) {
	dbCfg, err := buildCFG.BuildDBConfig(v, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build DB config: %w", err)
	}
	db, err := repo.Open(dbCfg.Driver, dbCfg.DSN, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	repository, err := repo.NewRepository(db, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	log.Info().Str("driver", dbCfg.Driver).Msg("Database connected successfully")
	return repository, closeDB, nil
}
