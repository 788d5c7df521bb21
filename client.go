package mosyle

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://managerapi.mosyle.com/v2"
	userAgent      = "go-mosyle"

	// Mosyle bearer tokens are only valid for 24 hours.
	credentialTTL = 86400 * time.Second
)

// Config holds configuration for the Mosyle API client.
// Required fields:
// - AccessToken: Access token provided by the Mosyle integration
// - Email: Email address of a Mosyle admin account with API permission
// - Password: Password of the Mosyle admin account
// Optional fields:
// - BaseURL: Base URL of the Mosyle API (default: "https://managerapi.mosyle.com/v2")
// - HTTPClient: HTTP client used for all requests (default: a plain http.Client)
type Config struct {
	AccessToken string
	Email       string
	Password    string
	BaseURL     string
	HTTPClient  *http.Client
}

// ValidateConfig validates the Config.
func ValidateConfig(config Config) error {
	if config.AccessToken == "" {
		return fmt.Errorf("mosyle access token is required")
	}
	if config.Email == "" {
		return fmt.Errorf("mosyle account email is required")
	}
	if config.Password == "" {
		return fmt.Errorf("mosyle account password is required")
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables.
// This is a helper to simplify wiring the client in programs that keep
// their credentials in the environment; the client itself never reads
// the environment.
func ConfigFromEnv() Config {
	return Config{
		AccessToken: os.Getenv("MOSYLE_ACCESS_TOKEN"),
		Email:       os.Getenv("MOSYLE_EMAIL"),
		Password:    os.Getenv("MOSYLE_PASSWORD"),
		BaseURL:     os.Getenv("MOSYLE_BASE_URL"),
	}
}

// Client is a client for the Mosyle Manager API v2. It lazily obtains a
// bearer token on the first request and refreshes it once the 24-hour
// validity window has passed.
//
// The credential check-and-refresh sequence is guarded by a mutex, so a
// Client is safe for concurrent use.
type Client struct {
	baseURL     string
	accessToken string
	email       string
	password    string

	httpClient *http.Client
	clock      clock.Clock
	logger     *zap.Logger

	mu       sync.Mutex
	bearer   string
	issuedAt time.Time
}

// New creates a new Mosyle API client.
func New(config Config, logger *zap.Logger) (*Client, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
		logger.Info("Using default base URL", zap.String("baseURL", baseURL))
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:     baseURL,
		accessToken: config.AccessToken,
		email:       config.Email,
		password:    config.Password,
		httpClient:  httpClient,
		clock:       clock.New(),
		logger:      logger,
	}, nil
}
