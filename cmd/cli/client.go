package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/iho/tillclose/internal/adapter/http/dto"
)

type app struct {
	v          *viper.Viper
	httpClient *http.Client
}

// apiError is a non-2xx answer of the API.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%d)", e.Code, e.Status)
}

// do sends a JSON request and decodes a JSON response into out. The raw
// body is returned for --json output.
func (a *app) do(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	return a.send(ctx, method, path, "", in, out)
}

func (a *app) send(ctx context.Context, method, path, idempotencyKey string, in, out any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.v.GetDuration(keyTimeout))
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(a.v.GetString(keyURL), "/")+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if token := a.v.GetString(keyToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e dto.ErrorResponse
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return raw, &apiError{Status: resp.StatusCode, Code: e.Error, Message: e.Message}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("decode response: %w", err)
		}
	}

	return raw, nil
}

func settlementPath(sessionID string, parts ...string) string {
	p := "/api/v1/settlements/" + url.PathEscape(sessionID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}
