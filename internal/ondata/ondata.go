// Package ondata asks chat questions grounded on an Azure AI Search index
// ("on your data") and extracts the intent and citations the service
// attaches to the answer.
package ondata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/comigor/azoai-go/internal/auth"
	"github.com/comigor/azoai-go/internal/config"
	"github.com/comigor/azoai-go/internal/llm"
	"github.com/comigor/azoai-go/internal/logger"
	"github.com/comigor/azoai-go/internal/retry"
)

// DefaultQuestion is asked when none is given.
const DefaultQuestion = "What health plans are available?"

// Completer creates chat completions. It is satisfied by the Completions
// service of an openai-go client.
type Completer interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Citation is one source document the answer was grounded on.
type Citation struct {
	Content  string `json:"content"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	FilePath string `json:"filepath"`
	ChunkID  string `json:"chunk_id"`
}

// Result is a grounded answer.
type Result struct {
	Answer    string
	Intent    string
	Citations []Citation
}

// DataSource is the search index the answer is grounded on. An empty APIKey
// makes the service use its system assigned managed identity.
type DataSource struct {
	Endpoint string
	Index    string
	APIKey   string
}

// FromConfig returns the data source described by cfg.
func FromConfig(cfg config.SearchConfig) DataSource {
	return DataSource{Endpoint: cfg.Endpoint, Index: cfg.Index, APIKey: cfg.APIKey}
}

func (d DataSource) body() []map[string]any {
	authn := map[string]any{"type": "system_assigned_managed_identity"}
	if d.APIKey != "" {
		authn = map[string]any{"type": "api_key", "key": d.APIKey}
	}
	return []map[string]any{{
		"type": "azure_search",
		"parameters": map[string]any{
			"endpoint":       d.Endpoint,
			"index_name":     d.Index,
			"authentication": authn,
		},
	}}
}

// ErrUnsupportedProvider is returned for providers without data sources.
var ErrUnsupportedProvider = errors.New("ondata: data sources require the azure provider")

// NewClient builds the openai-go client for data source requests, which
// only the Azure service accepts.
func NewClient(cfg config.OpenAIConfig, cred auth.Credential, httpClient *http.Client) (openai.Client, error) {
	if cfg.Provider == config.ProviderOpenAI {
		return openai.Client{}, ErrUnsupportedProvider
	}
	return llm.NewRequestClient(cfg, cred, httpClient)
}

// Service asks grounded questions against one deployment and data source.
type Service struct {
	Completions Completer
	Deployment  string
	Source      DataSource
	Retry       retry.Policy
}

// Ask sends question with the data source attached and parses the answer.
func (s *Service) Ask(ctx context.Context, question string) (Result, error) {
	if question == "" {
		question = DefaultQuestion
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.Deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(question),
		},
	}

	logger.L.Debug("asking on your data", "deployment", s.Deployment, "index", s.Source.Index)
	resp, err := retry.Do(ctx, s.Retry, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return s.Completions.New(ctx, params, option.WithJSONSet("data_sources", s.Source.body()))
	})
	if err != nil {
		return Result{}, fmt.Errorf("ondata: chat completion: %w", err)
	}
	return Parse(resp)
}

type messageContext struct {
	Content string `json:"content"`
	Context struct {
		Intent    string     `json:"intent"`
		Citations []Citation `json:"citations"`
	} `json:"context"`
}

// Parse extracts the answer, intent and citations of the first choice.
// Citations keep the order the service returned them in.
func Parse(resp *openai.ChatCompletion) (Result, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("ondata: response has no choices")
	}
	msg := resp.Choices[0].Message

	res := Result{Answer: msg.Content}
	raw := msg.RawJSON()
	if raw == "" {
		return res, nil
	}
	var mc messageContext
	if err := json.Unmarshal([]byte(raw), &mc); err != nil {
		return Result{}, fmt.Errorf("ondata: decode message context: %w", err)
	}
	res.Intent = mc.Context.Intent
	res.Citations = mc.Context.Citations
	return res, nil
}
