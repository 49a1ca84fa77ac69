package mediaserver

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/mediaserver/jellyfin"
	"github.com/mmcdole/mediarr/internal/mediaserver/plex"
	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

// NewAdapter creates the uninitialized adapter of a backend. Call Initialize
// before use; until then reads are neutral and make no network calls.
func NewAdapter(serverType domain.ServerType, settings domain.SettingsProvider, store *cache.Store, opts shared.TransportOptions, logger *slog.Logger) (domain.MediaServer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch serverType {
	case domain.ServerTypePlex:
		return plex.NewAdapter(settings, store, opts, logger), nil
	case domain.ServerTypeJellyfin:
		return jellyfin.NewAdapter(settings, store, opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown server type: %s", serverType)
	}
}
