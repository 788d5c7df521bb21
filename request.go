package mosyle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// envelope is the top-level JSON wrapper every Mosyle response carries.
// The payload lives under "response" for most endpoints, under "devices"
// for a few older ones.
type envelope struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
	Devices  json.RawMessage `json:"devices"`
}

// payload returns the first payload field the envelope carries, or an
// empty object when neither is present.
func (e *envelope) payload() json.RawMessage {
	if len(e.Response) > 0 {
		return e.Response
	}
	if len(e.Devices) > 0 {
		return e.Devices
	}
	return json.RawMessage(`{}`)
}

// Execute sends one request to the API and returns the raw payload from
// the response envelope. It authenticates first when no valid credential
// is held, injects the access token into non-GET bodies, and validates
// the envelope status.
//
// The caller's body map is never modified; the access token is injected
// into a copy.
func (c *Client) Execute(ctx context.Context, method, path string, body map[string]any) (json.RawMessage, error) {
	bearer, err := c.ensureCredential(ctx)
	if err != nil {
		return nil, err
	}

	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodPut:
	default:
		return nil, &UnsupportedMethodError{Method: method}
	}

	var payload map[string]any
	if method != http.MethodGet {
		payload = make(map[string]any, len(body)+1)
		for k, v := range body {
			payload[k] = v
		}
		payload["accessToken"] = c.accessToken
	}

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	url := c.baseURL + "/" + path
	requestID := uuid.NewString()
	c.logger.Debug("Request",
		zap.String("method", method),
		zap.String("url", url),
		zap.String("requestID", requestID))

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", bearer)
	req.Header.Set("X-Request-Id", requestID)
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Web request failed",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("requestID", requestID))
		c.logger.Debug("Response body", zap.ByteString("body", raw))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: raw}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Error("Web request could not decode as JSON",
			zap.String("requestID", requestID), zap.Error(err))
		c.logger.Debug("Response body", zap.ByteString("body", raw))
		return nil, &DecodeError{Err: err, Body: raw}
	}

	if env.Status != "OK" {
		c.logger.Error("Web request decoded as JSON, but did not return success",
			zap.String("status", env.Status),
			zap.String("requestID", requestID))
		return nil, &APIError{Status: env.Status}
	}

	return env.payload(), nil
}

// ensureCredential returns a usable bearer value, authenticating first
// when none is held or the held one has aged out. Exactly one
// authentication attempt is made; if it fails the operation is canceled
// before any request is issued.
func (c *Client) ensureCredential(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.credentialValid() {
		if err := c.authenticate(ctx); err != nil {
			c.logger.Error("Canceling API operation, unable to get a bearer token", zap.Error(err))
			return "", err
		}
	}
	return c.bearer, nil
}
