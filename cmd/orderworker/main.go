package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/aws"
	"github.com/payflow-labs/payflow/internal/config"
	"github.com/payflow-labs/payflow/internal/consumer"
	"github.com/payflow-labs/payflow/internal/orders"
)

// orderworker consumes payment-result events and projects them onto the
// orders table.
func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadOrder()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	store := orders.NewStore(clients.DynamoDB, cfg.OrdersTable)
	projector := orders.NewProjector(store, logger)

	if os.Getenv("RUN_LOCAL") == "true" {
		poller := consumer.NewPoller(clients.SQS, cfg.PaymentEventsQueue, projector, logger,
			cfg.PollInterval, cfg.VisibilityTimeoutSec)
		logger.Info("polling payment events", zap.String("queue", cfg.PaymentEventsQueue))
		poller.Run(context.Background())
		return
	}

	lambda.Start(consumer.SQSLambdaHandler(projector, logger))
}
