package shared

import (
	"context"
	"log/slog"
	"strings"
)

// IsMigrationArtifact reports whether a library id failing to resolve is most likely
// a leftover from the other backend: Plex section ids are small integers, Jellyfin
// ids are GUIDs, so a numeric id sent to Jellyfin (or a blank one) is expected noise.
func IsMigrationArtifact(libraryID string) bool {
	id := strings.TrimSpace(libraryID)
	if id == "" {
		return true
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// LogLibraryFailure logs a failed library lookup at warn when artifact is true, else at error
func LogLibraryFailure(ctx context.Context, logger *slog.Logger, op, libraryID string, artifact bool, err error) {
	level := slog.LevelError
	msg := "library request failed"
	if artifact {
		level = slog.LevelWarn
		msg = "library request failed, id looks like it belongs to another server"
	}
	logger.Log(ctx, level, msg, "op", op, "library", libraryID, "error", err)
}
