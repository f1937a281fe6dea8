package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/quillhub/backend/internal/telemetry"
	"github.com/spf13/viper"
)

const defaultTimeout = 30 * time.Second

var errNoToken = errors.New("no auth token: pass --token or set QUILL_TOKEN")

// apiError is the server's error body
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// newClient builds a resty client on the traced HTTP client
func newClient(baseURL, token string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := resty.NewWithClient(telemetry.NewInstrumentedHTTPClient(timeout)).
		SetBaseURL(baseURL).
		SetHeader("User-Agent", "quill-cli/1.0").
		SetHeader("Accept", "application/json").
		SetError(&apiError{})
	if token != "" {
		c.SetAuthToken(token)
	}
	return c
}

func clientFromConfig(requireAuth bool) (*resty.Client, error) {
	token := viper.GetString("token")
	if requireAuth && token == "" {
		return nil, errNoToken
	}
	return newClient(viper.GetString("api"), token, viper.GetDuration("timeout")), nil
}

// check turns a failed response into an error
func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Code != "" {
		return apiErr
	}
	return fmt.Errorf("unexpected status %s", resp.Status())
}
