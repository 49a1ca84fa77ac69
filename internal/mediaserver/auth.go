package mediaserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/mediaserver/jellyfin"
	"github.com/mmcdole/mediarr/internal/mediaserver/plex"
	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

// AuthFlow is an interactive sign-in that produces credentials.
// Plex uses the plex.tv PIN flow, Jellyfin a username and password.
type AuthFlow interface {
	Run(ctx context.Context, serverURL string, p shared.Prompter) (*shared.AuthResult, error)
}

// NewAuthFlow creates the sign-in flow of a backend
func NewAuthFlow(serverType domain.ServerType, clientID string, opts shared.TransportOptions, logger *slog.Logger) (AuthFlow, error) {
	switch serverType {
	case domain.ServerTypePlex:
		return plex.NewAuthFlow(clientID, opts, logger), nil
	case domain.ServerTypeJellyfin:
		return jellyfin.NewAuthFlow(clientID, opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown server type: %s", serverType)
	}
}
