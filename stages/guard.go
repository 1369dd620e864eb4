package stages

import (
	"context"
	"errors"
	"time"

	"cityguardian/llm"
	"cityguardian/metrics"
	"cityguardian/parser"

	"github.com/apex/log"
)

// Stage names used in logs and metrics.
const (
	StageClassification = "classification"
	StageRouting        = "routing"
	StageVerification   = "verification"
	StageDrafting       = "drafting"
)

var ErrEmptyCompletion = errors.New("empty completion")

// guard is a single completion call whose output is untrusted: the reply is decoded
// and validated, and any failure along the way is reported as one error.
type guard[T any] struct {
	stage   string
	client  llm.Client
	timeout time.Duration
	decode  func(raw string) (T, error)
}

// call performs the completion under the stage timeout.
func (g guard[T]) call(ctx context.Context, prompt string) (T, error) {
	var zero T

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := g.client.Complete(ctx, prompt)
	metrics.StageDurationSeconds.WithLabelValues(g.stage).Observe(time.Since(start).Seconds())
	if err != nil {
		return zero, err
	}

	out, err := g.decode(raw)
	if err != nil {
		return zero, err
	}
	return out, nil
}

// run is call with a fixed fallback: failures are logged and replaced by fallback.
func (g guard[T]) run(ctx context.Context, prompt string, fallback T) T {
	out, err := g.call(ctx, prompt)
	if err != nil {
		log.WithFields(log.Fields{
			"stage":  g.stage,
			"source": g.client.SourceName(),
		}).WithError(err).Warn("Stage failed, fallback applied")
		metrics.StageOutcomeTotal.WithLabelValues(g.stage, metrics.OutcomeFallback).Inc()
		return fallback
	}
	metrics.StageOutcomeTotal.WithLabelValues(g.stage, metrics.OutcomeOK).Inc()
	return out
}

// jsonDecoder decodes a JSON object reply and applies validate to it.
func jsonDecoder[T any](validate func(*T) error) func(string) (T, error) {
	return func(raw string) (T, error) {
		var out T
		if err := parser.Decode(raw, &out); err != nil {
			var zero T
			return zero, err
		}
		if validate != nil {
			if err := validate(&out); err != nil {
				var zero T
				return zero, err
			}
		}
		return out, nil
	}
}
