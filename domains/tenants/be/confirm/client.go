// Package confirm talks to the backend's schema confirmation RPC. The call is
// an enhancement on top of the local allow-list, so callers classify its
// failures (capability missing, network down) rather than treating every error
// as a rejection.
package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// undefinedFunctionCode is the backend's reserved error code for "the
// confirmation capability does not exist" (SQLSTATE undefined_function).
const undefinedFunctionCode = "42883"

// ErrNetworkUnavailable wraps transport-level failures reaching the RPC endpoint.
var ErrNetworkUnavailable = errors.New("network unavailable")

// Result is the RPC's explicit verdict on a schema name.
type Result struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message"`
}

// CallError is a machine-readable rejection returned by the RPC endpoint.
type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CallError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("schema confirmation failed (code %s)", e.Code)
}

// IsUndefinedFunction reports whether the error means the backend has no
// confirmation endpoint at all.
func IsUndefinedFunction(err error) bool {
	var callErr *CallError
	return errors.As(err, &callErr) && callErr.Code == undefinedFunctionCode
}

// IsNetworkUnavailable reports whether the error is a connectivity failure.
func IsNetworkUnavailable(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable)
}

// ClientConfig wires the confirmation client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Logger  *zap.Logger
	Timeout time.Duration
}

// Client issues the validate_schema RPC.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("rpc base url is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetHeader("apikey", cfg.APIKey)
	}

	return &Client{http: httpClient, logger: cfg.Logger}, nil
}

// ConfirmSchema asks the backend whether the normalized code names a usable
// schema. Exactly one request per call; no retries.
func (c *Client) ConfirmSchema(ctx context.Context, code string) (Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"schema_name": code}).
		Post("/rpc/validate_schema")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}

	if resp.IsError() {
		callErr := &CallError{}
		if decodeErr := json.Unmarshal(resp.Body(), callErr); decodeErr != nil || callErr.Code == "" {
			callErr.Code = fmt.Sprintf("http_%d", resp.StatusCode())
		}
		c.logger.Debug("schema confirmation rejected",
			zap.String("schema", code),
			zap.String("code", callErr.Code),
		)
		return Result{}, callErr
	}

	var result Result
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return Result{}, fmt.Errorf("decode confirmation response: %w", err)
	}
	return result, nil
}
