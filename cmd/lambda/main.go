// Package main is the Lambda entry point for the localization pipeline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/anshull-saxena/Cloud-Localization/internal/config"
	"github.com/anshull-saxena/Cloud-Localization/internal/pipeline"
)

var (
	log *zap.Logger
	p   *pipeline.Pipeline
)

func main() {
	var err error
	log, err = zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	// The pipeline is built once per container and reused across invocations.
	p, err = pipeline.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("failed to build pipeline", zap.Error(err))
	}

	lambda.Start(handleRequest)
}

// loadConfig reads the file named by LOCALIZATION_CONFIG, or falls back
// to the documented defaults with environment overrides.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("LOCALIZATION_CONFIG"); path != "" {
		return config.Load(path)
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func handleRequest(ctx context.Context, event json.RawMessage) (interface{}, error) {
	// Warmup detection runs before any request parsing.
	if warmup, ok := IsWarmupEvent(event); ok {
		return HandleWarmup(ctx, warmup)
	}

	var req pipeline.Request
	if err := json.Unmarshal(event, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}

	return p.Run(ctx, req)
}
