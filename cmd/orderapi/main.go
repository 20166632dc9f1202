package main

import (
	"context"
	"log"
	"os"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/aws"
	"github.com/payflow-labs/payflow/internal/config"
	"github.com/payflow-labs/payflow/internal/handlers"
	"github.com/payflow-labs/payflow/internal/orders"
)

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

	publisher := aws.NewPublisher(clients.SNS, cfg.OrderEventsTopicARN, logger)
	publisher.Metrics = aws.NewMetrics(clients.CloudWatch, "order-api", logger)

	r := gin.New()
	r.Use(gin.Recovery())
	handlers.RegisterOrdersRoutes(r, handlers.OrdersHandlerConfig{
		Store:     orders.NewStore(clients.DynamoDB, cfg.OrdersTable),
		Publisher: publisher,
		Logger:    logger,
	})

	// RUN_LOCAL=true runs a plain HTTP server for development; otherwise
	// the binary is an API Gateway Lambda.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":" + cfg.Port
		logger.Info("running local server", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			logger.Fatal("server exited", zap.Error(err))
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req lambdaevents.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
