package mosyle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// loginRequest is the payload sent to the login endpoint.
type loginRequest struct {
	AccessToken string `json:"accessToken"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// Authenticate obtains a fresh bearer token from the login endpoint and
// stores it as the current credential. On any failure the credential is
// reset, so the next request will have to authenticate again.
//
// Execute calls this automatically when the credential is absent or older
// than 24 hours; calling it directly is only needed to validate
// configuration up front.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticate(ctx)
}

// authenticate implements the login exchange. The caller must hold c.mu.
func (c *Client) authenticate(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{
		AccessToken: c.accessToken,
		Email:       c.email,
		Password:    c.password,
	})
	if err != nil {
		c.resetCredential()
		return &AuthError{Reason: fmt.Sprintf("encoding login request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		c.resetCredential()
		return &AuthError{Reason: fmt.Sprintf("building login request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("Trying to obtain a bearer token", zap.String("email", c.email))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.resetCredential()
		c.logger.Error("An attempt to obtain a bearer token failed", zap.Error(err))
		return &AuthError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		c.resetCredential()
		c.logger.Error("An attempt to obtain a bearer token failed",
			zap.Int("statusCode", resp.StatusCode))
		c.logger.Debug("Login response body", zap.ByteString("body", raw))
		return &AuthError{StatusCode: resp.StatusCode, Reason: "login rejected"}
	}

	bearer := resp.Header.Get("Authorization")
	if bearer == "" {
		raw, _ := io.ReadAll(resp.Body)
		c.resetCredential()
		c.logger.Error("Received 200 from login, but no Authorization header")
		c.logger.Debug("Login response body", zap.ByteString("body", raw))
		return &AuthError{StatusCode: resp.StatusCode, Reason: "no Authorization header in login response"}
	}

	c.bearer = bearer
	c.issuedAt = c.clock.Now()

	fields := []zap.Field{zap.String("email", c.email)}
	if exp, ok := bearerExpiry(bearer); ok {
		fields = append(fields, zap.Time("serverExpiry", exp))
	}
	c.logger.Info("Obtained a new bearer token successfully", fields...)
	return nil
}

// resetCredential discards the current credential. The caller must hold c.mu.
func (c *Client) resetCredential() {
	c.bearer = ""
	c.issuedAt = time.Time{}
}

// credentialValid reports whether the stored credential can still be used
// under the 24-hour rule. The caller must hold c.mu.
func (c *Client) credentialValid() bool {
	return c.bearer != "" && c.clock.Now().Sub(c.issuedAt) <= credentialTTL
}

// TokenExpiry returns the expiry claim of the current bearer token, when
// one is held and it decodes as a JWT. This is observability only; the
// client refreshes on its own 24-hour clock regardless of the claim.
func (c *Client) TokenExpiry() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bearer == "" {
		return time.Time{}, false
	}
	return bearerExpiry(c.bearer)
}

// bearerExpiry extracts the exp claim from a bearer value without
// verifying the signature. Mosyle issues JWTs, but the value is treated
// as opaque everywhere else in the client.
func bearerExpiry(bearer string) (time.Time, bool) {
	raw := strings.TrimSpace(strings.TrimPrefix(bearer, "Bearer"))
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
