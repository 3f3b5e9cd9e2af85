// Package auth selects the credential strategy used to reach the model
// service and builds the HTTP plumbing that carries it.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/comigor/azoai-go/internal/config"
)

// CognitiveServicesScope is the Entra ID scope for Azure OpenAI.
const CognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

// Credential is either an APIKey or AmbientIdentity.
type Credential interface {
	credential()
}

// APIKey authenticates with a static key.
type APIKey string

// AmbientIdentity authenticates with whatever identity the environment
// provides (managed identity, workload identity, Azure CLI login, ...).
type AmbientIdentity struct {
	Token azcore.TokenCredential
}

func (APIKey) credential()          {}
func (AmbientIdentity) credential() {}

// ErrEmptyKey is returned when key auth is selected without a key.
var ErrEmptyKey = errors.New("auth: empty API key")

// Select picks the credential strategy once, from configuration.
// Building the identity credential does not perform network I/O.
func Select(cfg config.OpenAIConfig) (Credential, error) {
	switch strings.ToLower(cfg.Auth) {
	case "", config.AuthKey:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, ErrEmptyKey
		}
		return APIKey(cfg.APIKey), nil
	case config.AuthIdentity:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("auth: default azure credential: %w", err)
		}
		return AmbientIdentity{Token: cred}, nil
	default:
		return nil, fmt.Errorf("auth: unknown auth mode %q (want %q or %q)", cfg.Auth, config.AuthKey, config.AuthIdentity)
	}
}

// Describe names the credential kind without revealing secrets.
func Describe(c Credential) string {
	switch c.(type) {
	case APIKey:
		return "api-key"
	case AmbientIdentity:
		return "ambient-identity"
	default:
		return "unknown"
	}
}
