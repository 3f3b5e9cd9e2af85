package llm

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/azoai-go/internal/auth"
	"github.com/comigor/azoai-go/internal/config"
)

// NewClient creates the OpenAI client for the configured provider and
// credential. It performs no network I/O.
func NewClient(cfg config.OpenAIConfig, cred auth.Credential, httpClient *http.Client) (*openai.Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if cfg.Provider == config.ProviderOpenAI {
		key, ok := cred.(auth.APIKey)
		if !ok || key == "" {
			return nil, fmt.Errorf("llm: the openai provider needs an API key")
		}
		clientCfg := openai.DefaultConfig(string(key))
		if cfg.Endpoint != "" {
			clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
		}
		clientCfg.HTTPClient = httpClient
		return openai.NewClientWithConfig(clientCfg), nil
	}

	if err := validateEndpoint(cfg.Endpoint); err != nil {
		return nil, err
	}

	var clientCfg openai.ClientConfig
	switch c := cred.(type) {
	case auth.APIKey:
		if c == "" {
			return nil, auth.ErrEmptyKey
		}
		clientCfg = openai.DefaultAzureConfig(string(c), cfg.Endpoint)
		clientCfg.HTTPClient = httpClient
	case auth.AmbientIdentity:
		clientCfg = openai.DefaultAzureConfig("", cfg.Endpoint)
		clientCfg.APIType = openai.APITypeAzureAD
		clientCfg.HTTPClient = &auth.BearerDoer{Token: c.Token, Next: httpClient}
	default:
		return nil, fmt.Errorf("llm: unsupported credential %T", cred)
	}
	if cfg.APIVersion != "" {
		clientCfg.APIVersion = cfg.APIVersion
	}
	// Deployment names are passed as the model; use them verbatim.
	clientCfg.AzureModelMapperFunc = func(model string) string { return model }

	return openai.NewClientWithConfig(clientCfg), nil
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("llm: empty endpoint")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("llm: endpoint: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" || u.Host == "" {
		return fmt.Errorf("llm: endpoint %q is not an absolute http(s) URL", endpoint)
	}
	return nil
}
