package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

const (
	// WarmupSource identifies scheduled warmup events.
	WarmupSource = "warmup"

	// WarmupDelay keeps this instance busy long enough for the fan-out
	// invocations to land on other instances.
	WarmupDelay = 75 * time.Millisecond
)

// WarmupEvent is the scheduled warmup payload.
type WarmupEvent struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

// WarmupResponse reports how many instances were touched.
type WarmupResponse struct {
	Status          string `json:"status"`
	InstancesWarmed int    `json:"instancesWarmed"`
}

// selfInvoker fans out asynchronous invocations of this function.
type selfInvoker func(ctx context.Context, payload []byte, count int) error

// IsWarmupEvent reports whether event is a warmup ping.
func IsWarmupEvent(event json.RawMessage) (*WarmupEvent, bool) {
	var probe struct {
		Source      *string  `json:"source"`
		Concurrency *float64 `json:"concurrency"`
	}
	if err := json.Unmarshal(event, &probe); err != nil {
		return nil, false
	}
	if probe.Source == nil || *probe.Source != WarmupSource {
		return nil, false
	}

	warmup := &WarmupEvent{Source: WarmupSource}
	if probe.Concurrency != nil && *probe.Concurrency > 0 {
		warmup.Concurrency = int(*probe.Concurrency)
	}
	return warmup, true
}

// HandleWarmup answers a warmup ping and, when asked for concurrency,
// invokes this function that many more times.
func HandleWarmup(ctx context.Context, warmup *WarmupEvent, invoke selfInvoker) (map[string]any, error) {
	instancesWarmed := 1

	if warmup.Concurrency > 0 && invoke != nil {
		// Children get concurrency 0 so they do not fan out again.
		payload, err := json.Marshal(WarmupEvent{Source: WarmupSource})
		if err == nil && invoke(ctx, payload, warmup.Concurrency) == nil {
			instancesWarmed += warmup.Concurrency
		}
	}

	time.Sleep(WarmupDelay)

	return map[string]any{
		"statusCode": 200,
		"body": WarmupResponse{
			Status:          "warm",
			InstancesWarmed: instancesWarmed,
		},
	}, nil
}

// newSelfInvoker returns an invoker that fires asynchronous invocations of
// the running function. The Lambda client is built on first use.
func newSelfInvoker() selfInvoker {
	var (
		once    sync.Once
		client  *lambdasdk.Client
		loadErr error
	)
	functionName := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")

	return func(ctx context.Context, payload []byte, count int) error {
		once.Do(func() {
			cfg, err := config.LoadDefaultConfig(ctx)
			if err != nil {
				loadErr = err
				return
			}
			client = lambdasdk.NewFromConfig(cfg)
		})
		if loadErr != nil {
			return loadErr
		}

		errs := make([]error, count)
		var wg sync.WaitGroup
		for i := range count {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = client.Invoke(ctx, &lambdasdk.InvokeInput{
					FunctionName:   aws.String(functionName),
					InvocationType: types.InvocationTypeEvent,
					Payload:        payload,
				})
			}()
		}
		wg.Wait()

		return errors.Join(errs...)
	}
}
