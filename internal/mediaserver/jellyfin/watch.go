package jellyfin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

// watchState is the per-item aggregate of every user's UserData
type watchState struct {
	Records    []domain.WatchRecord `json:"records"`
	TotalPlays int                  `json:"totalPlays"`
}

// watchedIndex maps item id to the users that have it marked played
type watchedIndex map[string][]string

// watchState aggregates the item's UserData across users. Jellyfin keeps no play
// log, only per-user played flags and counts.
func (a *Adapter) watchState(ctx context.Context, c *Client, itemID string) watchState {
	if ws, ok := cache.Get[watchState](a.cache, cache.KindWatchHistory, itemID); ok {
		return ws
	}

	users := a.GetUsers(ctx)

	var (
		mu     sync.Mutex
		ws     = watchState{Records: []domain.WatchRecord{}}
		failed bool
	)
	shared.ForEachBatch(users, shared.WatchBatchSize, func(u domain.MediaUser) {
		item, err := c.Item(ctx, u.ID, itemID)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			// an item hidden from a user by library access comes back 404
			if !errors.Is(err, domain.ErrItemNotFound) {
				failed = true
				a.logger.Warn("failed to read user data", "item", itemID, "user", u.ID, "error", err)
			}
			return
		}
		if item.UserData == nil {
			return
		}
		ws.TotalPlays += item.UserData.PlayCount
		if rec, ok := MapWatchRecord(u.ID, itemID, item.UserData); ok {
			ws.Records = append(ws.Records, rec)
		}
	})

	slices.SortFunc(ws.Records, func(x, y domain.WatchRecord) int {
		return strings.Compare(x.UserID, y.UserID)
	})

	if !failed {
		cache.Set(a.cache, cache.KindWatchHistory, itemID, ws)
	}
	return ws
}

func (a *Adapter) GetWatchHistory(ctx context.Context, itemID string) []domain.WatchRecord {
	c, ok := a.client("GetWatchHistory")
	if !ok {
		return []domain.WatchRecord{}
	}
	return a.watchState(ctx, c, itemID).Records
}

func (a *Adapter) GetTotalPlayCount(ctx context.Context, itemID string) int {
	c, ok := a.client("GetTotalPlayCount")
	if !ok {
		return 0
	}
	return a.watchState(ctx, c, itemID).TotalPlays
}

// GetItemSeenBy answers from a warmed library index when one covers the item
func (a *Adapter) GetItemSeenBy(ctx context.Context, itemID string) []string {
	c, ok := a.client("GetItemSeenBy")
	if !ok {
		return []string{}
	}

	if index, ok := a.warmedIndexFor(ctx, c, itemID); ok {
		seen := index[itemID]
		if seen == nil {
			return []string{}
		}
		return seen
	}

	records := a.watchState(ctx, c, itemID).Records
	seen := make([]string, 0, len(records))
	for _, r := range records {
		seen = append(seen, r.UserID)
	}
	return seen
}

// warmedIndexFor returns the warmed index of the item's library. The item's
// library is only looked up once some library has been warmed.
func (a *Adapter) warmedIndexFor(ctx context.Context, c *Client, itemID string) (watchedIndex, bool) {
	warmed := false
	for _, lib := range a.GetLibraries(ctx) {
		if _, ok := cache.Get[watchedIndex](a.cache, cache.KindWatchedLibrary, lib.ID); ok {
			warmed = true
			break
		}
	}
	if !warmed {
		return nil, false
	}

	lib := a.itemLibrary(ctx, c, itemID)
	if lib.ID == "" {
		return nil, false
	}
	return cache.Get[watchedIndex](a.cache, cache.KindWatchedLibrary, lib.ID)
}

// WarmWatchedLibrary loads every played item of a library for every user in one
// query per user. Users are walked sequentially; a failing user is logged and
// skipped, and the index is only dropped when every user failed.
func (a *Adapter) WarmWatchedLibrary(ctx context.Context, libraryID string) error {
	c, ok := a.client("WarmWatchedLibrary")
	if !ok {
		return domain.ErrNotInitialized
	}

	users := a.GetUsers(ctx)
	index := watchedIndex{}
	var lastErr error
	failures := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		query := url.Values{
			"ParentId":         {libraryID},
			"Recursive":        {"true"},
			"IsPlayed":         {"true"},
			"IncludeItemTypes": {"Movie,Series,Season,Episode"},
			"Fields":           {"ParentId"},
		}
		resp, err := c.Items(ctx, u.ID, query)
		if err != nil {
			failures++
			lastErr = err
			shared.LogLibraryFailure(ctx, a.logger, "WarmWatchedLibrary", libraryID, shared.IsMigrationArtifact(libraryID), err)
			continue
		}
		for _, item := range resp.Items {
			index[item.ID] = append(index[item.ID], u.ID)
		}
	}

	if len(users) > 0 && failures == len(users) {
		return fmt.Errorf("watched items of library %s: %w", libraryID, lastErr)
	}

	cache.Set(a.cache, cache.KindWatchedLibrary, libraryID, index)
	a.logger.Debug("watched library index warmed", "library", libraryID, "items", len(index), "failedUsers", failures)
	return nil
}
