// Package samples implements the single-call examples: chat, completions,
// images, audio, files, batches and multipart uploads. Each example builds
// one request, dispatches it and hands the response to the renderer.
package samples

import (
	"context"
	"time"

	"github.com/comigor/azoai-go/internal/config"
	"github.com/comigor/azoai-go/internal/llm"
	"github.com/comigor/azoai-go/internal/logger"
	"github.com/comigor/azoai-go/internal/poll"
	"github.com/comigor/azoai-go/internal/render"
	"github.com/comigor/azoai-go/internal/retry"
)

var log = logger.Component("samples")

// Deployments names the deployment (model) used by each surface.
type Deployments struct {
	Chat       string
	Completion string
	Image      string
	Whisper    string
	TTS        string
}

// DeploymentsFrom reads the deployments out of the service configuration.
func DeploymentsFrom(cfg config.OpenAIConfig) Deployments {
	return Deployments{
		Chat:       cfg.Deployment,
		Completion: cfg.Deployments.Completion,
		Image:      cfg.Deployments.Image,
		Whisper:    cfg.Deployments.Whisper,
		TTS:        cfg.Deployments.TTS,
	}
}

// Runner holds the collaborators shared by the examples. Only the clients a
// given example uses need to be set.
type Runner struct {
	Chats       llm.ChatClient
	Completions llm.CompletionClient
	Images      llm.ImageClient
	Audio       llm.AudioClient
	Files       llm.FileClient
	Batches     llm.BatchClient
	Uploads     UploadService

	Deployments Deployments
	Render      *render.Renderer
	Retry       retry.Policy
	Poll        poll.Options
}

// PollFrom converts the poll configuration.
func PollFrom(cfg config.PollConfig) poll.Options {
	return poll.Options{Interval: cfg.Interval, MaxInterval: cfg.MaxInterval, Timeout: cfg.Timeout}
}

// RetryFrom converts the retry configuration.
func RetryFrom(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{MaxRetries: cfg.MaxRetries, InitialInterval: cfg.InitialInterval, MaxInterval: cfg.MaxInterval}
}

func call[T any](ctx context.Context, r *Runner, name string, op func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := retry.Do(ctx, r.Retry, op)
	log.Debug("service call", "op", name, "duration", time.Since(start), "error", err)
	return v, err
}
