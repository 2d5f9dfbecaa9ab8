package routing

import (
	"fmt"
	"io"
	"net/http"
)

// HTTPDoer sends provider requests. *resilience.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Send performs req and returns the status code and full body. Transport
// failures, including an open circuit breaker, are reported as a retryable
// REQUEST_FAILED error.
func Send(client HTTPDoer, provider string, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &Error{
			Provider: provider,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %v", ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading %s response: %w", provider, err)
	}
	return resp.StatusCode, body, nil
}
