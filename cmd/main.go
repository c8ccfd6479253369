package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"uconnect/cmd/buildCFG"
	"uconnect/internal/api/api"
	"uconnect/internal/campus"
	rabbitReader "uconnect/internal/consumerWorker"
	"uconnect/internal/mailer"
	"uconnect/internal/rabbit"
	"uconnect/internal/repo"
	"uconnect/internal/service"
	"uconnect/internal/session"
)

func main() {
	zlog.Init()
	log := zlog.Logger
	log.Info().Msg("starting uconnect")

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", ""); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)
	appCfg, err := buildCFG.BuildAppConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build app config")
	}

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		log.Fatal().Msgf("failed to connect to DB: %v", err)
	}
	if err := db.Master.Ping(); err != nil {
		log.Fatal().Msgf("DB ping failed: %v", err)
	}
	log.Info().Msg("Database connected successfully")

	repository, err := repo.NewRepository(db, &log)
	if err != nil {
		log.Fatal().Msgf("failed to initialize repository: %v", err)
	}
	migrationPath := appCfg.MigrationsDir
	if !filepath.IsAbs(migrationPath) {
		cwd, err := os.Getwd()
		if err != nil {
			log.Fatal().Err(err).Msg("cannot get working directory")
		}
		migrationPath = filepath.Join(cwd, migrationPath)
	}
	if err := repository.MigrateUp(migrationPath); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("Migrations applied successfully")

	sessions, err := session.NewManager(buildCFG.BuildSessionConfig(cfg, &log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure sessions")
	}

	campusOpts := []campus.Option{campus.WithLocation(appCfg.Timezone)}

	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var reader *rabbitReader.Reader
	if rabbitCfg.Enabled {
		rmq, err := rabbit.NewRabbit(rabbitCfg.Config, &log)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rmq.Close()

		mail := mailer.New(buildCFG.BuildMailConfig(cfg, &log), &log)
		reader = rabbitReader.NewReader(rmq, repository, mail, &log)
		reader.Start(workerCtx)

		campusOpts = append(campusOpts, campus.WithReminders(rmq, rabbitCfg.ReminderLead))
	}

	campusService := campus.New(repository, &log, campusOpts...)
	serviceInstance := service.NewService(campusService, sessions, &log)
	app := api.NewRouters(&api.Routers{
		Service:        serviceInstance,
		Sessions:       sessions,
		Log:            &log,
		RequestTimeout: serverCfg.RequestTimeout,
		AllowOrigins:   serverCfg.AllowOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	cancelWorkers()
	if reader != nil {
		reader.Stop()
	}

	if appCfg.RollbackOnShutdown {
		log.Info().Msg("Rolling back migrations...")
		if err := repository.MigrateDown(migrationPath); err != nil {
			log.Error().Msgf("failed to rollback migrations: %v", err)
		} else {
			log.Info().Msg("Migrations rolled back successfully")
		}
	}

	if err := db.Master.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close database")
	}
	log.Info().Msg("Shutdown complete")
}
