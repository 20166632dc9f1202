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
	"github.com/payflow-labs/payflow/internal/gateway"
	"github.com/payflow-labs/payflow/internal/payments"
)

// paymentworker consumes OrderCreated events and provisions payment rows.
func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadPayment()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	publisher := aws.NewPublisher(clients.SNS, cfg.PaymentEventsTopicARN, logger)
	publisher.Metrics = aws.NewMetrics(clients.CloudWatch, "payment-worker", logger)

	store := payments.NewStore(clients.DynamoDB, cfg.PaymentsTable, cfg.GatewayOrderIndex, cfg.PaymentIDIndex)
	rzp := gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)
	service := payments.NewService(store, rzp, publisher, logger)
	handler := payments.NewConsumer(service, logger)

	if os.Getenv("RUN_LOCAL") == "true" {
		poller := consumer.NewPoller(clients.SQS, cfg.OrderEventsQueue, handler, logger,
			cfg.PollInterval, cfg.VisibilityTimeoutSec)
		logger.Info("polling order events", zap.String("queue", cfg.OrderEventsQueue))
		poller.Run(context.Background())
		return
	}

	lambda.Start(consumer.SQSLambdaHandler(handler, logger))
}
