package jellyfin

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mmcdole/mediarr/internal/domain"
)

func (a *Adapter) GetCollections(ctx context.Context, libraryID string) []domain.MediaCollection {
	c, ok := a.client("GetCollections")
	if !ok {
		return []domain.MediaCollection{}
	}

	// BoxSets live in their own virtual folder, not under the library
	query := url.Values{
		"IncludeItemTypes": {itemTypeBoxSet},
		"Recursive":        {"true"},
		"SortBy":           {"SortName"},
	}
	resp, err := c.Items(ctx, c.userID, query)
	if err != nil {
		a.logger.Warn("failed to list jellyfin collections", "library", libraryID, "error", err)
		return []domain.MediaCollection{}
	}

	collections := make([]domain.MediaCollection, 0, len(resp.Items))
	for _, item := range resp.Items {
		col := MapCollection(item)
		col.LibraryID = libraryID
		collections = append(collections, col)
	}
	return collections
}

func (a *Adapter) GetCollection(ctx context.Context, id string) (*domain.MediaCollection, error) {
	c, ok := a.client("GetCollection")
	if !ok {
		return nil, nil
	}

	item, err := c.Item(ctx, c.userID, id)
	if err != nil {
		a.logger.Warn("failed to get jellyfin collection", "collection", id, "error", err)
		return nil, fmt.Errorf("jellyfin collection %s: %w", id, err)
	}
	if item.Type != itemTypeBoxSet {
		return nil, fmt.Errorf("item %s is a %s: %w", id, item.Type, domain.ErrItemNotFound)
	}
	col := MapCollection(*item)
	return &col, nil
}

// CreateCollection creates a locked BoxSet so the server's automatic grouping
// leaves it alone, then applies summary and sort title.
func (a *Adapter) CreateCollection(ctx context.Context, params domain.CreateCollectionParams) (*domain.MediaCollection, error) {
	c, ok := a.client("CreateCollection")
	if !ok {
		return nil, domain.ErrNotInitialized
	}

	id, err := c.CreateCollection(ctx, params.Title, params.ItemIDs)
	if err != nil {
		a.logger.Error("failed to create jellyfin collection", "title", params.Title, "error", err)
		return nil, fmt.Errorf("create collection %q: %w", params.Title, err)
	}
	a.logger.Info("jellyfin collection created", "id", id, "title", params.Title, "items", len(params.ItemIDs))

	if params.Summary != "" || params.SortTitle != "" {
		return a.UpdateCollection(ctx, domain.UpdateCollectionParams{
			ID:        id,
			LibraryID: params.LibraryID,
			Summary:   params.Summary,
			SortTitle: params.SortTitle,
		})
	}

	return &domain.MediaCollection{
		ID:         id,
		Title:      params.Title,
		ChildCount: len(params.ItemIDs),
		LibraryID:  params.LibraryID,
	}, nil
}

func (a *Adapter) DeleteCollection(ctx context.Context, id string) error {
	c, ok := a.client("DeleteCollection")
	if !ok {
		return nil
	}
	if err := c.DeleteItem(ctx, id); err != nil {
		a.logger.Error("failed to delete jellyfin collection", "collection", id, "error", err)
		return fmt.Errorf("delete collection %s: %w", id, err)
	}
	return nil
}

func (a *Adapter) GetCollectionChildren(ctx context.Context, id string) ([]domain.MediaItem, error) {
	c, ok := a.client("GetCollectionChildren")
	if !ok {
		return []domain.MediaItem{}, nil
	}

	resp, err := c.Items(ctx, c.userID, url.Values{"ParentId": {id}})
	if err != nil {
		a.logger.Warn("failed to list jellyfin collection items", "collection", id, "error", err)
		return nil, fmt.Errorf("jellyfin collection items %s: %w", id, err)
	}
	return MapItems(resp.Items, domain.LibraryRef{}), nil
}

func (a *Adapter) AddToCollection(ctx context.Context, id string, itemIDs []string) error {
	c, ok := a.client("AddToCollection")
	if !ok || len(itemIDs) == 0 {
		return nil
	}
	if err := c.AddToCollection(ctx, id, itemIDs); err != nil {
		a.logger.Error("failed to add to jellyfin collection", "collection", id, "items", len(itemIDs), "error", err)
		return fmt.Errorf("add to collection %s: %w", id, err)
	}
	return nil
}

func (a *Adapter) RemoveFromCollection(ctx context.Context, id string, itemIDs []string) error {
	c, ok := a.client("RemoveFromCollection")
	if !ok || len(itemIDs) == 0 {
		return nil
	}
	if err := c.RemoveFromCollection(ctx, id, itemIDs); err != nil {
		a.logger.Error("failed to remove from jellyfin collection", "collection", id, "items", len(itemIDs), "error", err)
		return fmt.Errorf("remove from collection %s: %w", id, err)
	}
	return nil
}

// UpdateCollection rewrites the item with the fields it was fetched with. The
// update endpoint replaces the whole item, so list fields the server omitted are
// sent as empty arrays instead of null.
func (a *Adapter) UpdateCollection(ctx context.Context, params domain.UpdateCollectionParams) (*domain.MediaCollection, error) {
	c, ok := a.client("UpdateCollection")
	if !ok {
		return nil, domain.ErrNotInitialized
	}

	raw, err := c.ItemRaw(ctx, c.userID, params.ID)
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", params.ID, err)
	}

	if params.Title != "" {
		raw["Name"] = params.Title
	}
	if params.Summary != "" {
		raw["Overview"] = params.Summary
	}
	if params.SortTitle != "" {
		raw["ForcedSortName"] = params.SortTitle
	}
	for _, field := range []string{"Tags", "Genres", "Studios", "People", "LockedFields"} {
		if raw[field] == nil {
			raw[field] = []any{}
		}
	}
	if raw["ProviderIds"] == nil {
		raw["ProviderIds"] = map[string]any{}
	}

	if err := c.UpdateItem(ctx, params.ID, raw); err != nil {
		a.logger.Error("failed to update jellyfin collection", "collection", params.ID, "error", err)
		return nil, fmt.Errorf("update collection %s: %w", params.ID, err)
	}

	col, err := a.GetCollection(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	col.LibraryID = params.LibraryID
	return col, nil
}

// UpdateCollectionVisibility has no Jellyfin equivalent
func (a *Adapter) UpdateCollectionVisibility(_ context.Context, v domain.CollectionVisibility) error {
	a.logger.Warn("collection visibility is not supported by jellyfin", "collection", v.ID)
	return nil
}

func (a *Adapter) GetPlaylists(ctx context.Context, libraryID string) []domain.MediaPlaylist {
	c, ok := a.client("GetPlaylists")
	if !ok {
		return []domain.MediaPlaylist{}
	}

	query := url.Values{
		"IncludeItemTypes": {itemTypePlaylist},
		"Recursive":        {"true"},
		"SortBy":           {"SortName"},
	}
	resp, err := c.Items(ctx, c.userID, query)
	if err != nil {
		a.logger.Warn("failed to list jellyfin playlists", "error", err)
		return []domain.MediaPlaylist{}
	}

	playlists := make([]domain.MediaPlaylist, 0, len(resp.Items))
	for _, item := range resp.Items {
		p := MapPlaylist(item)
		p.LibraryID = libraryID
		playlists = append(playlists, p)
	}
	return playlists
}

func (a *Adapter) GetPlaylistItems(ctx context.Context, id string) ([]domain.MediaItem, error) {
	c, ok := a.client("GetPlaylistItems")
	if !ok {
		return []domain.MediaItem{}, nil
	}

	resp, err := c.PlaylistItems(ctx, c.userID, id)
	if err != nil {
		a.logger.Warn("failed to list jellyfin playlist items", "playlist", id, "error", err)
		return nil, fmt.Errorf("jellyfin playlist items %s: %w", id, err)
	}
	return MapItems(resp.Items, domain.LibraryRef{}), nil
}
