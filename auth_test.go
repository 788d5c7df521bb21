package mosyle

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func TestAuthenticateStoresCredential(t *testing.T) {
	e := echo.New()
	loginCalls := 0
	grantLogin(e, &loginCalls)

	client := newTestClient(t, e)

	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}

	if loginCalls != 1 {
		t.Errorf("Expected 1 login call, got %d", loginCalls)
	}
	if client.bearer != "Bearer test-bearer" {
		t.Errorf("Expected stored bearer 'Bearer test-bearer', got '%s'", client.bearer)
	}
	if client.issuedAt.IsZero() {
		t.Error("Expected issuedAt to be set")
	}
}

func TestAuthenticateRejectionResetsCredential(t *testing.T) {
	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		return c.JSON(http.StatusUnauthorized, map[string]string{"status": "DENIED"})
	})

	client := newTestClient(t, e)

	// Seed a stale credential to prove the failure path discards it.
	client.bearer = "Bearer stale"
	client.issuedAt = client.clock.Now()

	err := client.Authenticate(context.Background())
	if err == nil {
		t.Fatal("Expected error from rejected login")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected *AuthError, got %T", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status code 401, got %d", authErr.StatusCode)
	}
	if client.bearer != "" || !client.issuedAt.IsZero() {
		t.Error("Expected credential to be reset after rejected login")
	}
}

func TestAuthenticateMissingHeaderResetsCredential(t *testing.T) {
	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		// 200 without an Authorization header is still a failure.
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})

	client := newTestClient(t, e)
	client.bearer = "Bearer stale"
	client.issuedAt = client.clock.Now()

	err := client.Authenticate(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected *AuthError, got %v", err)
	}
	if client.bearer != "" {
		t.Error("Expected credential to be reset when Authorization header is missing")
	}
}

func TestTokenExpiry(t *testing.T) {
	expiry := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": expiry.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Signing test token: %v", err)
	}

	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		c.Response().Header().Set("Authorization", "Bearer "+signed)
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})

	client := newTestClient(t, e)

	if _, ok := client.TokenExpiry(); ok {
		t.Error("Expected no expiry before authentication")
	}

	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}

	got, ok := client.TokenExpiry()
	if !ok {
		t.Fatal("Expected expiry from a JWT bearer")
	}
	if !got.Equal(expiry) {
		t.Errorf("Expected expiry %v, got %v", expiry, got)
	}
}

func TestTokenExpiryOpaqueBearer(t *testing.T) {
	e := echo.New()
	loginCalls := 0
	grantLogin(e, &loginCalls)

	client := newTestClient(t, e)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}

	// "test-bearer" is not a JWT; the credential still works, expiry is
	// just unavailable.
	if _, ok := client.TokenExpiry(); ok {
		t.Error("Expected no expiry for a non-JWT bearer")
	}
}
