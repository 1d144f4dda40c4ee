// Package main is the entry point for the translation proxy Lambda function.
package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/pricofy/translation-proxy/internal/app"
	"github.com/pricofy/translation-proxy/internal/config"
	"github.com/pricofy/translation-proxy/internal/handler"
	"github.com/pricofy/translation-proxy/internal/logging"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	lambda.Start(newHandler(a.Handler, newSelfInvoker()))
}

func newHandler(h *handler.Handler, invoker selfInvoker) func(context.Context, json.RawMessage) (any, error) {
	return func(ctx context.Context, event json.RawMessage) (any, error) {
		// Warmup detection runs before any request decoding.
		if warmup, ok := IsWarmupEvent(event); ok {
			return HandleWarmup(ctx, warmup, invoker)
		}

		var req events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return nil, err
		}
		return h.HandleAPIGateway(ctx, req)
	}
}
