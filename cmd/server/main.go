// @title        Anonymous Inbox API
// @version      1.0
// @description  Receive anonymous messages through a public link, gated by email verification and an owner-controlled toggle.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/truefeedback/inbox-api/internal/api"
	"github.com/truefeedback/inbox-api/internal/core/ports"
	mongodb "github.com/truefeedback/inbox-api/internal/infrastructure/db/mongo"
	redisstore "github.com/truefeedback/inbox-api/internal/infrastructure/db/redis"
	"github.com/truefeedback/inbox-api/internal/infrastructure/email"
	"github.com/truefeedback/inbox-api/internal/infrastructure/suggest"
	"github.com/truefeedback/inbox-api/internal/pkg/config"
	"github.com/truefeedback/inbox-api/pkg/logger"
)

const (
	serviceName     = "inbox-api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		AppName:     serviceName,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo: connect")
	}
	if err := mongodb.NewAccountRepository(db).EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo: ensure indexes")
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis: connect")
	}

	var sender ports.CodeSender
	if cfg.SMTP.Host == "" {
		log.Warn().Msg("SMTP_HOST not set, verification codes will be written to the log")
		sender = email.NewLogSender(log)
	} else {
		sender = email.NewSMTPSender(email.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			SenderName: cfg.SMTP.SenderName,
			AppURL:     cfg.SMTP.AppURL,
			Timeout:    cfg.SMTP.Timeout,
		}, log)
	}

	var suggester ports.Suggester
	if cfg.Suggest.Endpoint != "" {
		suggester = suggest.NewClient(suggest.Config{
			Endpoint: cfg.Suggest.Endpoint,
			APIKey:   cfg.Suggest.APIKey,
			Model:    cfg.Suggest.Model,
			Timeout:  cfg.Suggest.Timeout,
		})
	}

	e := api.NewRouter(api.Dependencies{
		DB:        db,
		Redis:     rdb,
		Config:    cfg,
		Sender:    sender,
		Suggester: suggester,
		Log:       log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
	if err := mongodb.Disconnect(shutdownCtx, client); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
}
