// Package retry re-issues service calls that failed for transient reasons.
package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openaigo "github.com/openai/openai-go"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/azoai-go/internal/logger"
)

// Policy bounds the retries of one call.
type Policy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// None never retries.
var None = Policy{}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Do runs op, retrying transient failures under p. Any other error, and the
// last transient one once retries run out, is returned unmodified.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var out T
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		v, err := op(ctx)
		if err == nil {
			out = v
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		logger.L.Warn("transient service error; retrying", "attempt", attempt, "wait", wait, "error", err)
	})
	return out, err
}

// IsTransient reports whether err is worth retrying: throttling, server-side
// failures, request timeouts, and network timeouts. Auth and validation
// failures are not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return transientStatus(reqErr.HTTPStatusCode)
	}
	var goErr *openaigo.Error
	if errors.As(err, &goErr) {
		return transientStatus(goErr.StatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
