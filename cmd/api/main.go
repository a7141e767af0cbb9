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

	"github.com/fintrack-api/internal/config"
	"github.com/fintrack-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/fintrack-api/internal/infrastructure/jwt"
	s3infra "github.com/fintrack-api/internal/infrastructure/s3"
	"github.com/fintrack-api/internal/infrastructure/smtp"
	"github.com/fintrack-api/internal/infrastructure/sns"
	"github.com/fintrack-api/internal/pkg/ratelimit"
	transporthttp "github.com/fintrack-api/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	var mailer smtp.Mailer
	switch cfg.MailDriver {
	case "sns":
		m, err := sns.NewTopicMailer(cfg)
		if err != nil {
			log.Fatalf("sns mailer: %v", err)
		}
		mailer = m
	default:
		mailer = smtp.NewMailer(cfg)
	}

	var limiter transporthttp.OTPLimiter
	switch cfg.OTPLimiter {
	case "dynamo":
		limiter = dynamo.NewOTPLimitRepo(dynamoClient, cfg.DynamoTables.OTPLimits, cfg.OTPMaxAttempts, cfg.OTPWindow)
	default:
		w := ratelimit.NewWindow(cfg.OTPMaxAttempts, cfg.OTPWindow)
		go w.RunJanitor(ctx, cfg.OTPWindow)
		limiter = w
	}

	deps := &transporthttp.Deps{
		UserRepo:        dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		TransactionRepo: dynamo.NewTransactionRepo(dynamoClient, cfg.DynamoTables.Transactions),
		CategoryRepo:    dynamo.NewCategoryRepo(dynamoClient, cfg.DynamoTables.Categories),
		OTPLimiter:      limiter,
		ReportStore:     s3infra.NewReportStore(s3infra.NewClient(cfg), cfg.S3BucketName),
		Mailer:          mailer,
		JWTProvider:     jwtProvider,
	}

	router, ipLimiter := transporthttp.NewRouter(cfg, deps)
	go ipLimiter.Cleanup(ctx, 5*time.Minute, 10*time.Minute)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, mail=%s, otp_limiter=%s)", cfg.AppPort, cfg.AppEnv, cfg.MailDriver, cfg.OTPLimiter)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
