// Package main also handles warmup events. CloudWatch Events invoke the
// pipeline periodically so that neither this function nor the per-pair
// translator functions cold start during a localization run.
package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"go.uber.org/zap"

	"github.com/anshull-saxena/Cloud-Localization/internal/router"
)

const (
	// WarmupSource identifies warmup events from CloudWatch.
	WarmupSource = "warmup"

	// WarmupDelay keeps instances alive long enough to overlap, so the
	// self-invocations land on fresh containers instead of this one.
	WarmupDelay = 75 * time.Millisecond
)

// LanguagePair names one deployed translator function to pre-warm.
type LanguagePair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// WarmupEvent is the CloudWatch Event payload for warmup. Concurrency
// controls how many additional pipeline instances to warm; Pairs lists
// translator functions to ping alongside.
type WarmupEvent struct {
	Source      string         `json:"source"`
	Concurrency int            `json:"concurrency"`
	Pairs       []LanguagePair `json:"pairs,omitempty"`
}

// WarmupResponse reports what the warmup touched.
type WarmupResponse struct {
	Status            string `json:"status"`
	InstancesWarmed   int    `json:"instancesWarmed"`
	TranslatorsWarmed int    `json:"translatorsWarmed"`
}

// IsWarmupEvent reports whether the raw event is a warmup event.
func IsWarmupEvent(event json.RawMessage) (*WarmupEvent, bool) {
	var probe struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(event, &probe); err != nil || probe.Source != WarmupSource {
		return nil, false
	}

	warmup := &WarmupEvent{}
	if err := json.Unmarshal(event, warmup); err != nil {
		return nil, false
	}
	return warmup, true
}

// HandleWarmup warms additional pipeline instances via async
// self-invocation and pings the translator functions for the requested
// language pairs.
func HandleWarmup(ctx context.Context, warmup *WarmupEvent) (interface{}, error) {
	instancesWarmed := 1 // this instance
	translatorsWarmed := 0

	if warmup.Concurrency > 0 || len(warmup.Pairs) > 0 {
		client, err := warmupClient(ctx)
		if err != nil {
			log.Error("failed to create lambda client for warmup", zap.Error(err))
		} else {
			if warmup.Concurrency > 0 {
				if err := selfInvoke(ctx, client, warmup.Concurrency); err != nil {
					log.Warn("self warmup failed", zap.Error(err))
				} else {
					instancesWarmed += warmup.Concurrency
				}
			}
			translatorsWarmed = warmTranslators(ctx, client, warmup.Pairs)
		}
	}

	// Hold this instance briefly so the warm set overlaps.
	time.Sleep(WarmupDelay)

	return map[string]interface{}{
		"statusCode": 200,
		"body": WarmupResponse{
			Status:            "warm",
			InstancesWarmed:   instancesWarmed,
			TranslatorsWarmed: translatorsWarmed,
		},
	}, nil
}

func warmupClient(ctx context.Context) (*lambdasdk.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return lambdasdk.NewFromConfig(cfg), nil
}

// selfInvoke asynchronously invokes this function count times. Child
// invocations carry concurrency 0 so warmup never recurses.
func selfInvoke(ctx context.Context, client *lambdasdk.Client, count int) error {
	functionName := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")

	payload, err := json.Marshal(WarmupEvent{Source: WarmupSource})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var invokeErr error
	var errMu sync.Mutex

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := client.Invoke(ctx, &lambdasdk.InvokeInput{
				FunctionName:   aws.String(functionName),
				InvocationType: types.InvocationTypeEvent,
				Payload:        payload,
			})
			if err != nil {
				errMu.Lock()
				if invokeErr == nil {
					invokeErr = err
				}
				errMu.Unlock()
			}
		}()
	}

	wg.Wait()
	return invokeErr
}

// warmTranslators pings the translator function for each language pair
// and returns how many responded to the invocation call.
func warmTranslators(ctx context.Context, client *lambdasdk.Client, pairs []LanguagePair) int {
	payload, err := json.Marshal(WarmupEvent{Source: WarmupSource})
	if err != nil {
		return 0
	}

	warmed := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, pair := range pairs {
		wg.Add(1)
		go func(pair LanguagePair) {
			defer wg.Done()

			name := router.TranslatorFunctionName(pair.Source, pair.Target)
			_, err := client.Invoke(ctx, &lambdasdk.InvokeInput{
				FunctionName:   aws.String(name),
				InvocationType: types.InvocationTypeEvent,
				Payload:        payload,
			})
			if err != nil {
				log.Warn("translator warmup failed",
					zap.String("function", name), zap.Error(err))
				return
			}
			mu.Lock()
			warmed++
			mu.Unlock()
		}(pair)
	}

	wg.Wait()
	return warmed
}
