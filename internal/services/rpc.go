package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"onboarding_flow/src/model"

	"github.com/bytedance/sonic"
)

// ErrRemoteCall marks every failed remote procedure call
var ErrRemoteCall = errors.New("remote call failed")

// RPCError describes a failed remote procedure call
type RPCError struct {
	Procedure  string
	StatusCode int
	Message    string
	Err        error
}

func (e *RPCError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rpc %s: status %d: %s", e.Procedure, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("rpc %s: %v", e.Procedure, e.Err)
}

func (e *RPCError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRemoteCall}
	}
	return []error{ErrRemoteCall, e.Err}
}

// Caller invokes a remote stored procedure and returns its rows
type Caller interface {
	Call(ctx context.Context, procedure string, args map[string]any) ([]map[string]any, error)
}

// RPCClient calls stored procedures over HTTP: POST {base}/rest/v1/rpc/{procedure}
// with a JSON argument object, answered by a JSON array of rows.
type RPCClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewRPCClient creates a client from config
func NewRPCClient(config model.RPCConfig) (*RPCClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("rpc base URL is required")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Call posts args to the procedure endpoint and decodes the returned rows
func (c *RPCClient) Call(ctx context.Context, procedure string, args map[string]any) ([]map[string]any, error) {
	if args == nil {
		args = map[string]any{}
	}
	body, err := sonic.Marshal(args)
	if err != nil {
		return nil, &RPCError{Procedure: procedure, Err: fmt.Errorf("failed to marshal args: %w", err)}
	}

	url := c.baseURL + "/rest/v1/rpc/" + procedure
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &RPCError{Procedure: procedure, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RPCError{Procedure: procedure, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RPCError{Procedure: procedure, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= 300 {
		return nil, &RPCError{Procedure: procedure, StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	var rows []map[string]any
	if err := sonic.Unmarshal(data, &rows); err != nil {
		// single-row procedures may answer with a bare object
		var row map[string]any
		if err2 := sonic.Unmarshal(data, &row); err2 != nil || row == nil {
			return nil, &RPCError{Procedure: procedure, Err: fmt.Errorf("failed to unmarshal rows: %w", err)}
		}
		rows = []map[string]any{row}
	}
	return rows, nil
}

// errorMessage extracts {"message"} or {"error"} from an error body
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := sonic.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(data))
}
