package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/aws"
	"github.com/payflow-labs/payflow/internal/config"
	"github.com/payflow-labs/payflow/internal/consumer"
	"github.com/payflow-labs/payflow/internal/handlers"
	"github.com/payflow-labs/payflow/internal/notifications"
)

// notifier consumes payment-result events and sends user notifications.
// In local mode it also serves the ad-hoc notification API.
func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadNotification()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	notifier := notifications.New(logger)

	if os.Getenv("RUN_LOCAL") == "true" {
		clients, err := aws.NewAWSClients(context.Background())
		if err != nil {
			logger.Fatal("failed to init aws clients", zap.Error(err))
		}

		r := gin.New()
		r.Use(gin.Recovery())
		handlers.RegisterNotificationsRoutes(r, notifier)
		go func() {
			addr := ":" + cfg.Port
			logger.Info("running local server", zap.String("addr", addr))
			if err := r.Run(addr); err != nil {
				logger.Fatal("server exited", zap.Error(err))
			}
		}()

		poller := consumer.NewPoller(clients.SQS, cfg.PaymentEventsQueue, notifier, logger,
			cfg.PollInterval, cfg.VisibilityTimeoutSec)
		logger.Info("polling payment events", zap.String("queue", cfg.PaymentEventsQueue))
		poller.Run(context.Background())
		return
	}

	lambda.Start(consumer.SQSLambdaHandler(notifier, logger))
}
