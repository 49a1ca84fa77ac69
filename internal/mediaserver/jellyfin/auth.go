package jellyfin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

// AuthFlow signs in with a username and password
type AuthFlow struct {
	clientID string
	opts     shared.TransportOptions
	logger   *slog.Logger
}

// NewAuthFlow creates a new Jellyfin authentication flow
func NewAuthFlow(clientID string, opts shared.TransportOptions, logger *slog.Logger) *AuthFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthFlow{clientID: clientID, opts: opts, logger: logger}
}

// Run prompts for credentials and authenticates against serverURL
func (f *AuthFlow) Run(ctx context.Context, serverURL string, p shared.Prompter) (*shared.AuthResult, error) {
	p.Println("Jellyfin Authentication")

	username, err := p.Prompt("Username: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read username: %w", err)
	}
	password, err := p.PromptSecret("Password: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	p.Println("Authenticating...")
	client := NewClient(serverURL, "", f.clientID, shared.NewTransport(f.opts, f.logger), f.logger)
	resp, err := client.AuthenticateByName(ctx, username, password)
	if err != nil {
		f.logger.Error("jellyfin sign-in failed", "user", username, "error", err)
		return nil, err
	}

	p.Println("Authentication successful!")
	return &shared.AuthResult{
		Token:    resp.AccessToken,
		UserID:   resp.User.ID,
		Username: resp.User.Name,
	}, nil
}
