package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/comigor/azoai-go/internal/config"
)

// HTTPDoer matches the doer interface both SDK clients accept.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns the client used for every service call, routed
// through the configured proxy when there is one.
func NewHTTPClient(cfg config.ProxyConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.URL != "" {
		proxyURL, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("auth: proxy url: %w", err)
		}
		if proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, fmt.Errorf("auth: proxy url %q needs a scheme and host", cfg.URL)
		}
		if cfg.Username != "" {
			proxyURL.User = url.UserPassword(cfg.Username, cfg.Password)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Transport: transport, Timeout: 5 * time.Minute}, nil
}

// BearerDoer stamps an Entra ID token on every request.
type BearerDoer struct {
	Token azcore.TokenCredential
	Next  HTTPDoer
}

// Do implements HTTPDoer.
func (d *BearerDoer) Do(req *http.Request) (*http.Response, error) {
	if d.Token != nil {
		tok, err := d.Token.GetToken(req.Context(), policy.TokenRequestOptions{Scopes: []string{CognitiveServicesScope}})
		if err != nil {
			return nil, fmt.Errorf("auth: acquire token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	}
	return d.Next.Do(req)
}
