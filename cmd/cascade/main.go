package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/bigwednesday/customer-api/docstore"
	"github.com/bigwednesday/customer-api/internal/logger"
	"github.com/bigwednesday/customer-api/store"
	"github.com/bigwednesday/customer-api/stream"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("APP_ENV", "production"),
		ServiceName: "customer-api-cascade",
	})
	if err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal("failed to load AWS config", zap.Error(err))
	}

	db := docstore.NewDynamo(dynamodb.NewFromConfig(awsCfg), docstore.Config{Table: os.Getenv("DYNAMODB_TABLE")})
	registry := store.DefaultRegistry()
	log.Info("cascade handler ready",
		zap.String("table", db.Table()),
		zap.Strings("cascading_kinds", registry.DescendantKinds(store.CustomerKind)),
	)
	handler := stream.NewHandler(db, registry, log)

	lambda.Start(handler.HandleCascadeDelete)
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
