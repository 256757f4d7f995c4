package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/addr-verify-api/internal/application/notify"
	"github.com/addr-verify-api/internal/config"
	"github.com/addr-verify-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/addr-verify-api/internal/infrastructure/jwt"
	s3infra "github.com/addr-verify-api/internal/infrastructure/s3"
	"github.com/addr-verify-api/internal/infrastructure/smtp"
	"github.com/addr-verify-api/internal/infrastructure/sns"
	transporthttp "github.com/addr-verify-api/internal/transport/http"
	"github.com/addr-verify-api/internal/transport/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 archive for raw import files.
	s3Client := s3infra.NewClient(cfg)
	archive := s3infra.NewArchive(s3Client, cfg.S3BucketName)

	// SMTP mailer + templated notifier.
	mailer := smtp.NewMailer(cfg)
	notifier := notify.New(cfg, mailer)

	// SNS ops alerts (optional — graceful fallback).
	var alerts sns.AlertPublisher
	if pub, err := sns.NewPublisher(cfg); err == nil {
		alerts = pub
	} else {
		log.Printf("WARN: SNS publisher not available: %v", err)
	}

	hub := ws.NewHub()

	deps := &transporthttp.Deps{
		ClientRepo:  dynamo.NewClientRepo(dynamoClient, cfg.DynamoTables.Clients),
		AdminRepo:   dynamo.NewAdminRepo(dynamoClient, cfg.DynamoTables.Admins),
		AuditRepo:   dynamo.NewAuditRepo(dynamoClient, cfg.DynamoTables.AuditLog),
		Archive:     archive,
		Notifier:    notifier,
		Alerts:      alerts,
		JWTProvider: jwtProvider,
		Hub:         hub,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	hub.Close()
	log.Println("Server stopped")
}
