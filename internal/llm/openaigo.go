package llm

import (
	"fmt"
	"net/http"
	"strings"

	openaigo "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/comigor/azoai-go/internal/auth"
	"github.com/comigor/azoai-go/internal/config"
)

// NewRequestClient creates an openai-go client, used where requests need
// fields go-openai does not model (data sources) or surfaces it lacks
// (multipart uploads). SDK retries are disabled; callers retry through the
// retry package.
func NewRequestClient(cfg config.OpenAIConfig, cred auth.Credential, httpClient *http.Client) (openaigo.Client, error) {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	if cfg.Provider == config.ProviderOpenAI {
		key, ok := cred.(auth.APIKey)
		if !ok || key == "" {
			return openaigo.Client{}, fmt.Errorf("llm: the openai provider needs an API key")
		}
		opts = append(opts, option.WithAPIKey(string(key)))
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.Endpoint, "/")+"/"))
		}
		return openaigo.NewClient(opts...), nil
	}

	if err := validateEndpoint(cfg.Endpoint); err != nil {
		return openaigo.Client{}, err
	}
	opts = append(opts, azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion))
	switch c := cred.(type) {
	case auth.APIKey:
		if c == "" {
			return openaigo.Client{}, auth.ErrEmptyKey
		}
		opts = append(opts, azure.WithAPIKey(string(c)))
	case auth.AmbientIdentity:
		opts = append(opts, azure.WithTokenCredential(c.Token))
	default:
		return openaigo.Client{}, fmt.Errorf("llm: unsupported credential %T", cred)
	}
	return openaigo.NewClient(opts...), nil
}
