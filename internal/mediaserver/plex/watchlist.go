package plex

import (
	"context"
	"fmt"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/domain"
)

// ownerAccountID is the server-local account of the token owner
const ownerAccountID = "1"

// watchlist returns the provider ids of every item on the owner's watchlist
func (a *Adapter) watchlist(ctx context.Context, c *Client) ([]domain.ProviderIDs, error) {
	if ids, ok := cache.Get[[]domain.ProviderIDs](a.cache, cache.KindWatchlist, "owner"); ok {
		return ids, nil
	}

	metadata, err := c.Watchlist(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.ProviderIDs, 0, len(metadata))
	for _, m := range metadata {
		if p := mapProviderIDs(m.Guids); !p.Empty() {
			ids = append(ids, p)
		}
	}
	cache.Set(a.cache, cache.KindWatchlist, "owner", ids)
	return ids, nil
}

// WatchlistedBy matches the item against the owner's watchlist by provider id.
// The discover service only exposes the watchlist of the token's account.
func (a *Adapter) WatchlistedBy(ctx context.Context, item domain.MediaItem) ([]string, error) {
	c, ok := a.client("WatchlistedBy")
	if !ok {
		return nil, domain.ErrNotInitialized
	}
	if item.ProviderIDs.Empty() {
		return []string{}, nil
	}

	ids, err := a.watchlist(ctx, c)
	if err != nil {
		a.logger.Warn("failed to read plex watchlist", "error", err)
		return nil, fmt.Errorf("plex watchlist: %w", err)
	}
	for _, p := range ids {
		if p.Matches(item.ProviderIDs) {
			return []string{a.ownerName(ctx)}, nil
		}
	}
	return []string{}, nil
}

func (a *Adapter) ownerName(ctx context.Context) string {
	users := a.GetUsers(ctx)
	for _, u := range users {
		if u.ID == ownerAccountID {
			return u.Name
		}
	}
	if len(users) > 0 {
		return users[0].Name
	}
	return ""
}
