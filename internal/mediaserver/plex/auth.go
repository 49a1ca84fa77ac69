package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

// ErrPINExpired indicates the authentication PIN has expired
var ErrPINExpired = errors.New("authentication PIN has expired")

const (
	// PlexTVURL hosts the PIN endpoints
	PlexTVURL   = "https://plex.tv"
	pinEndpoint = "/api/v2/pins"

	pinTimeout     = 5 * time.Minute
	pinMaxInterval = 5 * time.Second
)

// AuthClient handles Plex PIN authentication against plex.tv
type AuthClient struct {
	baseURL   string
	clientID  string
	transport *shared.Transport
	logger    *slog.Logger

	// interval is the first poll delay, doubled up to pinMaxInterval
	interval time.Duration
}

// NewAuthClient creates a new authentication client
func NewAuthClient(baseURL, clientID string, transport *shared.Transport, logger *slog.Logger) *AuthClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthClient{
		baseURL:   baseURL,
		clientID:  clientID,
		transport: transport,
		logger:    logger,
		interval:  time.Second,
	}
}

func (a *AuthClient) headers() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("X-Plex-Client-Identifier", a.clientID)
	h.Set("X-Plex-Product", product)
	h.Set("X-Plex-Version", productVersion)
	h.Set("User-Agent", userAgent)
	return h
}

// GetPIN generates a new authentication PIN
func (a *AuthClient) GetPIN(ctx context.Context) (pin string, id int, err error) {
	query := url.Values{
		"strong":                   {"false"},
		"X-Plex-Product":           {product},
		"X-Plex-Client-Identifier": {a.clientID},
	}
	reqURL := a.baseURL + pinEndpoint + "?" + query.Encode()

	body, err := a.transport.Do(ctx, shared.Request{Method: http.MethodPost, URL: reqURL, Header: a.headers()})
	if err != nil {
		a.logger.Error("PIN request failed", "error", err)
		return "", 0, err
	}

	var pinResp PINResponse
	if err := json.Unmarshal(body, &pinResp); err != nil {
		return "", 0, fmt.Errorf("failed to parse PIN response: %w", err)
	}

	a.logger.Info("PIN generated", "pin", pinResp.Code, "id", pinResp.ID)
	return pinResp.Code, pinResp.ID, nil
}

// CheckPIN reports whether the PIN was claimed and returns the auth token
func (a *AuthClient) CheckPIN(ctx context.Context, pinID int) (token string, claimed bool, err error) {
	reqURL := a.baseURL + pinEndpoint + "/" + strconv.Itoa(pinID)

	body, err := a.transport.Do(ctx, shared.Request{Method: http.MethodGet, URL: reqURL, Header: a.headers()})
	if errors.Is(err, domain.ErrItemNotFound) {
		return "", false, ErrPINExpired
	}
	if err != nil {
		return "", false, err
	}

	var pinResp PINCheckResponse
	if err := json.Unmarshal(body, &pinResp); err != nil {
		return "", false, fmt.Errorf("failed to parse PIN response: %w", err)
	}
	if pinResp.AuthToken == "" {
		return "", false, nil
	}

	a.logger.Info("PIN claimed successfully")
	return pinResp.AuthToken, true, nil
}

// WaitForPIN polls for the PIN claim with exponential backoff
func (a *AuthClient) WaitForPIN(ctx context.Context, pinID int, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	interval := a.interval

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
			token, claimed, err := a.CheckPIN(ctx, pinID)
			if err != nil {
				if errors.Is(err, ErrPINExpired) {
					return "", err
				}
				a.logger.Warn("PIN check error, retrying", "error", err)
				continue
			}
			if claimed {
				return token, nil
			}
			interval = min(interval*2, pinMaxInterval)
		}
	}

	return "", ErrPINExpired
}

// AuthFlow handles Plex PIN-based authentication
type AuthFlow struct {
	client *AuthClient
}

// NewAuthFlow creates a new Plex authentication flow
func NewAuthFlow(clientID string, opts shared.TransportOptions, logger *slog.Logger) *AuthFlow {
	return &AuthFlow{
		client: NewAuthClient(PlexTVURL, clientID, shared.NewTransport(opts, logger), logger),
	}
}

// Run asks the user to enter a PIN at plex.tv/link and waits for the claim.
// serverURL is unused: the token is issued by plex.tv, not the server.
func (f *AuthFlow) Run(ctx context.Context, _ string, p shared.Prompter) (*shared.AuthResult, error) {
	p.Println("Generating authentication PIN...")

	pin, pinID, err := f.client.GetPIN(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PIN: %w", err)
	}

	p.Println("Go to: https://plex.tv/link")
	p.Println("Enter PIN:", pin)
	p.Println("Waiting for authentication...")

	token, err := f.client.WaitForPIN(ctx, pinID, pinTimeout)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	p.Println("Authentication successful!")
	return &shared.AuthResult{Token: token}, nil
}
