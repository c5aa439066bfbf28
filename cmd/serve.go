package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"checkinDesk/cmd/buildCFG"
	"checkinDesk/internal/api/api"
	"checkinDesk/internal/auth"
	"checkinDesk/internal/cache"
	rabbitReader "checkinDesk/internal/consumerWorker"
	"checkinDesk/internal/importer"
	"checkinDesk/internal/mailer"
	"checkinDesk/internal/notify"
	"checkinDesk/internal/rabbit"
	"checkinDesk/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	v, log, err := loadConfig()
	if err != nil {
		return err
	}

	serverCfg := buildCFG.BuildServerConfig(v, log)
	jwtCfg, err := buildCFG.BuildJWTConfig(v, log)
	if err != nil {
		return err
	}
	rabbitCfg, err := buildCFG.BuildRabbitConfig(v, log)
	if err != nil {
		return fmt.Errorf("failed to load RabbitMQ config: %w", err)
	}
	eventCfg, err := buildCFG.BuildEventConfig(v, log)
	if err != nil {
		return err
	}
	redisCfg := buildCFG.BuildRedisConfig(v, log)
	mail := mailer.New(buildCFG.BuildMailerConfig(v, log), log)

	repository, closeDB, err := openRepository(v, log)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := repository.MigrateUp(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	var sink notify.Sink = notify.StoreSink{Store: repository}
	var reader *rabbitReader.Reader
	if rabbitCfg.Enabled {
		rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer rmq.Close()

		sink = notify.QueueSink{Publisher: rmq}
		reader = rabbitReader.NewReader(rmq, repository, mail)
		reader.Start(ctx)
		log.Info().Str("queue", rabbitCfg.Queue).Msg("Notifications routed through RabbitMQ")
	}
	notifier := notify.New(sink, log)

	var stats cache.StatsCache = cache.Noop{}
	if redisCfg.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", redisCfg.Addr).Msg("Redis unreachable, stats will be recomputed on misses")
		}
		stats = cache.NewRedis(client, redisCfg.TTL, log)
	}

	imp := importer.New(repository, buildCFG.BuildImportConfig(v, log), log,
		importer.WithNotifier(notifier),
		importer.WithStatsInvalidator(stats),
	)
	tokens := auth.NewTokens(jwtCfg.Secret, jwtCfg.TTL)

	serviceInstance := service.NewService(repository, imp, tokens, notifier, stats, log, service.Options{
		EventStart:     eventCfg.Start,
		EventEnd:       eventCfg.End,
		ProfileDir:     serverCfg.ProfileDir,
		ProfileURL:     serverCfg.ProfileURL,
		MaxUploadBytes: serverCfg.MaxUploadBytes,
	})
	app := api.NewRouters(&api.Routers{
		Service:    serviceInstance,
		Tokens:     tokens,
		ProfileDir: serverCfg.ProfileDir,
		ProfileURL: serverCfg.ProfileURL,
	})

	srv := &http.Server{Addr: ":" + serverCfg.Port, Handler: app}
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErrChan:
		log.Error().Err(err).Msg("Server error")
	}

	if reader != nil {
		reader.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down server")
	}
	log.Info().Msg("Shutdown complete")
	return nil
}
