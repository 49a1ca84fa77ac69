package plex

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

// watchedIndex maps rating key to the accounts that played it
type watchedIndex map[string][]string

// history returns every play event of an item. Plex keeps one server-wide log,
// so a single request covers all accounts.
func (a *Adapter) history(ctx context.Context, c *Client, itemID string) ([]domain.WatchRecord, bool) {
	if records, ok := cache.Get[[]domain.WatchRecord](a.cache, cache.KindWatchHistory, itemID); ok {
		return records, true
	}

	entries, err := c.History(ctx, url.Values{"metadataItemID": {itemID}})
	if err != nil {
		a.logger.Warn("failed to read plex history", "item", itemID, "error", err)
		return []domain.WatchRecord{}, false
	}
	records := MapHistory(entries, itemID)
	cache.Set(a.cache, cache.KindWatchHistory, itemID, records)
	return records, true
}

func (a *Adapter) GetWatchHistory(ctx context.Context, itemID string) []domain.WatchRecord {
	c, ok := a.client("GetWatchHistory")
	if !ok {
		return []domain.WatchRecord{}
	}
	records, _ := a.history(ctx, c, itemID)
	return records
}

// GetTotalPlayCount counts history events, so re-watches count again
func (a *Adapter) GetTotalPlayCount(ctx context.Context, itemID string) int {
	c, ok := a.client("GetTotalPlayCount")
	if !ok {
		return 0
	}
	records, _ := a.history(ctx, c, itemID)
	return len(records)
}

// GetItemSeenBy answers from a warmed library index when the item's library is
// known and warm, else from the item's history
func (a *Adapter) GetItemSeenBy(ctx context.Context, itemID string) []string {
	c, ok := a.client("GetItemSeenBy")
	if !ok {
		return []string{}
	}

	if lib, ok := cache.Get[domain.LibraryRef](a.cache, cache.KindItemLibrary, itemID); ok {
		if index, ok := cache.Get[watchedIndex](a.cache, cache.KindWatchedLibrary, lib.ID); ok {
			if seen := index[itemID]; seen != nil {
				return seen
			}
			return []string{}
		}
	}

	records, _ := a.history(ctx, c, itemID)
	seen := make([]string, 0, len(records))
	for _, r := range records {
		if !slices.Contains(seen, r.UserID) {
			seen = append(seen, r.UserID)
		}
	}
	slices.Sort(seen)
	return seen
}

// WarmWatchedLibrary builds the watched index of a library from its history in
// one request. Episode plays also mark their season and show as seen.
func (a *Adapter) WarmWatchedLibrary(ctx context.Context, libraryID string) error {
	c, ok := a.client("WarmWatchedLibrary")
	if !ok {
		return domain.ErrNotInitialized
	}

	entries, err := c.History(ctx, url.Values{"librarySectionID": {libraryID}})
	if err != nil {
		shared.LogLibraryFailure(ctx, a.logger, "WarmWatchedLibrary", libraryID, shared.IsMigrationArtifact(libraryID), err)
		return fmt.Errorf("history of library %s: %w", libraryID, err)
	}

	index := watchedIndex{}
	add := func(key, account string) {
		if key != "" && !slices.Contains(index[key], account) {
			index[key] = append(index[key], account)
		}
	}
	for _, e := range entries {
		account := strconv.Itoa(e.AccountID)
		add(e.RatingKey, account)
		add(e.ParentRatingKey, account)
		add(e.GrandparentRatingKey, account)
	}
	for key := range index {
		slices.Sort(index[key])
	}

	cache.Set(a.cache, cache.KindWatchedLibrary, libraryID, index)
	a.logger.Debug("watched library index warmed", "library", libraryID, "items", len(index), "events", len(entries))
	return nil
}
