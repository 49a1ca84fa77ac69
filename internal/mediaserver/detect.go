package mediaserver

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

const detectTimeout = 10 * time.Second

// jellyfinSystemInfo represents the Jellyfin /System/Info/Public response
type jellyfinSystemInfo struct {
	ProductName string `json:"ProductName"`
	ServerName  string `json:"ServerName"`
	Version     string `json:"Version"`
	ID          string `json:"Id"`
}

// plexIdentity represents the Plex /identity response
type plexIdentity struct {
	XMLName           xml.Name `xml:"MediaContainer"`
	MachineIdentifier string   `xml:"machineIdentifier,attr"`
	Version           string   `xml:"version,attr"`
}

// DetectServerType probes the unauthenticated endpoints of both backends
func DetectServerType(ctx context.Context, serverURL string, logger *slog.Logger) (domain.ServerType, error) {
	if logger == nil {
		logger = slog.Default()
	}
	serverURL = strings.TrimRight(serverURL, "/")
	transport := shared.NewTransport(shared.TransportOptions{Timeout: detectTimeout}, logger)

	jellyfinErr := tryJellyfin(ctx, transport, serverURL)
	if jellyfinErr == nil {
		return domain.ServerTypeJellyfin, nil
	}

	plexErr := tryPlex(ctx, transport, serverURL)
	if plexErr == nil {
		return domain.ServerTypePlex, nil
	}

	return "", fmt.Errorf("could not detect server type: tried Jellyfin (%v), Plex (%v)", jellyfinErr, plexErr)
}

func tryJellyfin(ctx context.Context, transport *shared.Transport, serverURL string) error {
	header := http.Header{"Accept": {"application/json"}}
	body, err := transport.Do(ctx, shared.Request{Method: http.MethodGet, URL: serverURL + "/System/Info/Public", Header: header})
	if err != nil {
		return err
	}

	var info jellyfinSystemInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !strings.Contains(strings.ToLower(info.ProductName), "jellyfin") {
		return fmt.Errorf("not a Jellyfin server (ProductName: %s)", info.ProductName)
	}
	return nil
}

func tryPlex(ctx context.Context, transport *shared.Transport, serverURL string) error {
	body, err := transport.Do(ctx, shared.Request{Method: http.MethodGet, URL: serverURL + "/identity"})
	if err != nil {
		return err
	}

	// XML unless the server honours Accept: application/json
	var identity plexIdentity
	if err := xml.Unmarshal(body, &identity); err == nil && identity.MachineIdentifier != "" {
		return nil
	}

	var jsonIdentity struct {
		MediaContainer struct {
			MachineIdentifier string `json:"machineIdentifier"`
		} `json:"MediaContainer"`
	}
	if err := json.Unmarshal(body, &jsonIdentity); err == nil && jsonIdentity.MediaContainer.MachineIdentifier != "" {
		return nil
	}

	return fmt.Errorf("not a Plex server")
}
