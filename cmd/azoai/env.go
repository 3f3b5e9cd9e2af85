package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/comigor/azoai-go/internal/auth"
	"github.com/comigor/azoai-go/internal/config"
	"github.com/comigor/azoai-go/internal/history"
	"github.com/comigor/azoai-go/internal/llm"
	"github.com/comigor/azoai-go/internal/logger"
	"github.com/comigor/azoai-go/internal/render"
	"github.com/comigor/azoai-go/internal/samples"
)

// env is what every service command gets: configuration, credential, HTTP
// plumbing, the go-openai client and a renderer whose output is also
// captured for the history journal.
type env struct {
	cfg    *config.Config
	cred   auth.Credential
	http   *http.Client
	client *openai.Client
	render *render.Renderer
}

func (e *env) runner() *samples.Runner {
	return &samples.Runner{
		Chats:       e.client,
		Completions: e.client,
		Images:      e.client,
		Audio:       e.client,
		Files:       e.client,
		Batches:     e.client,
		Deployments: samples.DeploymentsFrom(e.cfg.OpenAI),
		Render:      e.render,
		Retry:       samples.RetryFrom(e.cfg.Retry),
		Poll:        samples.PollFrom(e.cfg.Poll),
	}
}

// baseSettings are needed by every service command.
var baseSettings = []config.Setting{config.Endpoint, config.APIKey}

// serviceRun wraps a service command: it loads the configuration (failing
// before any client exists when a required setting is missing), builds the
// clients, runs fn and journals the rendered output.
func serviceRun(required []config.Setting, fn func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(append(append([]config.Setting{}, baseSettings...), required...)...)
		if err != nil {
			return err
		}
		if logLevel == "" {
			logger.SetLevel(cfg.LogLevel)
		}

		cred, err := auth.Select(cfg.OpenAI)
		if err != nil {
			return err
		}
		httpClient, err := auth.NewHTTPClient(cfg.Proxy)
		if err != nil {
			return err
		}
		client, err := llm.NewClient(cfg.OpenAI, cred, httpClient)
		if err != nil {
			return err
		}
		logger.L.Debug("client ready", "provider", cfg.OpenAI.Provider, "auth", auth.Describe(cred), "endpoint", cfg.OpenAI.Endpoint)

		var transcript bytes.Buffer
		out := io.MultiWriter(cmd.OutOrStdout(), &transcript)
		e := &env{
			cfg:    cfg,
			cred:   cred,
			http:   httpClient,
			client: client,
			render: render.New(out, "", client),
		}

		ctx := cmd.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		runErr := fn(ctx, e, args)
		journal(ctx, cfg, cmd.CommandPath(), transcript.String(), runErr)
		return runErr
	}
}

func journal(ctx context.Context, cfg *config.Config, command, content string, runErr error) {
	if noHistory {
		return
	}
	store := history.Open(context.WithoutCancel(ctx), cfg.History.DBPath)
	defer store.Close()

	entry := history.Entry{
		SessionID: history.NewSessionID(),
		Command:   command,
		Status:    history.StatusOK,
		Content:   content,
	}
	if runErr != nil {
		entry.Status = history.StatusError
		entry.Content = fmt.Sprintf("%s\nerror: %v", content, runErr)
	}
	store.Save(context.WithoutCancel(ctx), entry)
}
