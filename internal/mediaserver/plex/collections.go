package plex

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmcdole/mediarr/internal/domain"
)

// GetCollections lists the collections of a library, or of every library when
// libraryID is empty
func (a *Adapter) GetCollections(ctx context.Context, libraryID string) []domain.MediaCollection {
	c, ok := a.client("GetCollections")
	if !ok {
		return []domain.MediaCollection{}
	}

	libIDs := []string{libraryID}
	if libraryID == "" {
		libIDs = libIDs[:0]
		for _, lib := range a.GetLibraries(ctx) {
			libIDs = append(libIDs, lib.ID)
		}
	}

	collections := []domain.MediaCollection{}
	for _, libID := range libIDs {
		metadata, err := c.Collections(ctx, libID)
		if err != nil {
			a.logger.Warn("failed to list plex collections", "library", libID, "error", err)
			continue
		}
		for _, m := range metadata {
			collections = append(collections, MapCollection(m, libID))
		}
	}
	return collections
}

func (a *Adapter) GetCollection(ctx context.Context, id string) (*domain.MediaCollection, error) {
	c, ok := a.client("GetCollection")
	if !ok {
		return nil, nil
	}

	m, err := c.Metadata(ctx, id)
	if err != nil {
		a.logger.Warn("failed to get plex collection", "collection", id, "error", err)
		return nil, fmt.Errorf("plex collection %s: %w", id, err)
	}
	if m.Type != "collection" {
		return nil, fmt.Errorf("item %s is a %s: %w", id, m.Type, domain.ErrItemNotFound)
	}
	col := MapCollection(*m, "")
	return &col, nil
}

// CreateCollection creates a collection and locks its title so agent refreshes
// do not rename it. Summary and sort title go in the same edit.
func (a *Adapter) CreateCollection(ctx context.Context, params domain.CreateCollectionParams) (*domain.MediaCollection, error) {
	c, ok := a.client("CreateCollection")
	if !ok {
		return nil, domain.ErrNotInitialized
	}

	itemType := typeNumber(params.Type)
	if itemType == 0 {
		itemType = typeMovie
	}
	m, err := c.CreateCollection(ctx, params.LibraryID, itemType, params.Title, params.ItemIDs)
	if err != nil {
		a.logger.Error("failed to create plex collection", "title", params.Title, "library", params.LibraryID, "error", err)
		return nil, fmt.Errorf("create collection %q: %w", params.Title, err)
	}
	a.logger.Info("plex collection created", "id", m.RatingKey, "title", params.Title, "items", len(params.ItemIDs))

	fields := map[string]string{
		"title":     params.Title,
		"summary":   params.Summary,
		"titleSort": params.SortTitle,
	}
	if err := c.EditCollection(ctx, params.LibraryID, m.RatingKey, fields); err != nil {
		a.logger.Error("failed to lock plex collection", "collection", m.RatingKey, "error", err)
		return nil, fmt.Errorf("lock collection %s: %w", m.RatingKey, err)
	}

	col := MapCollection(*m, params.LibraryID)
	col.Summary = params.Summary
	if col.ChildCount == 0 {
		col.ChildCount = len(params.ItemIDs)
	}
	return &col, nil
}

func (a *Adapter) DeleteCollection(ctx context.Context, id string) error {
	c, ok := a.client("DeleteCollection")
	if !ok {
		return nil
	}
	if err := c.DeleteCollection(ctx, id); err != nil {
		a.logger.Error("failed to delete plex collection", "collection", id, "error", err)
		return fmt.Errorf("delete collection %s: %w", id, err)
	}
	return nil
}

func (a *Adapter) GetCollectionChildren(ctx context.Context, id string) ([]domain.MediaItem, error) {
	c, ok := a.client("GetCollectionChildren")
	if !ok {
		return []domain.MediaItem{}, nil
	}

	mc, err := c.CollectionChildren(ctx, id)
	if err != nil {
		a.logger.Warn("failed to list plex collection items", "collection", id, "error", err)
		return nil, fmt.Errorf("plex collection items %s: %w", id, err)
	}
	lib := domain.LibraryRef{ID: string(mc.LibrarySectionID), Title: mc.LibrarySectionTitle}
	return MapItems(mc.Metadata, lib), nil
}

func (a *Adapter) AddToCollection(ctx context.Context, id string, itemIDs []string) error {
	c, ok := a.client("AddToCollection")
	if !ok || len(itemIDs) == 0 {
		return nil
	}
	if err := c.AddToCollection(ctx, id, itemIDs); err != nil {
		a.logger.Error("failed to add to plex collection", "collection", id, "items", len(itemIDs), "error", err)
		return fmt.Errorf("add to collection %s: %w", id, err)
	}
	return nil
}

// RemoveFromCollection removes items one request at a time. Every item is
// attempted; the failures are joined.
func (a *Adapter) RemoveFromCollection(ctx context.Context, id string, itemIDs []string) error {
	c, ok := a.client("RemoveFromCollection")
	if !ok || len(itemIDs) == 0 {
		return nil
	}

	var errs []error
	for _, itemID := range itemIDs {
		if err := c.RemoveFromCollection(ctx, id, itemID); err != nil {
			a.logger.Error("failed to remove from plex collection", "collection", id, "item", itemID, "error", err)
			errs = append(errs, fmt.Errorf("remove %s from collection %s: %w", itemID, id, err))
		}
	}
	return errors.Join(errs...)
}

func (a *Adapter) UpdateCollection(ctx context.Context, params domain.UpdateCollectionParams) (*domain.MediaCollection, error) {
	c, ok := a.client("UpdateCollection")
	if !ok {
		return nil, domain.ErrNotInitialized
	}

	libID := params.LibraryID
	if libID == "" {
		current, err := a.GetCollection(ctx, params.ID)
		if err != nil {
			return nil, err
		}
		libID = current.LibraryID
	}

	fields := map[string]string{
		"title":     params.Title,
		"summary":   params.Summary,
		"titleSort": params.SortTitle,
	}
	if err := c.EditCollection(ctx, libID, params.ID, fields); err != nil {
		a.logger.Error("failed to update plex collection", "collection", params.ID, "error", err)
		return nil, fmt.Errorf("update collection %s: %w", params.ID, err)
	}
	return a.GetCollection(ctx, params.ID)
}

func (a *Adapter) UpdateCollectionVisibility(ctx context.Context, v domain.CollectionVisibility) error {
	c, ok := a.client("UpdateCollectionVisibility")
	if !ok {
		return nil
	}
	if err := c.ManageHub(ctx, v.LibraryID, v.ID, v.Recommended, v.OwnHome, v.SharedHome); err != nil {
		a.logger.Error("failed to update plex collection visibility", "collection", v.ID, "error", err)
		return fmt.Errorf("collection visibility %s: %w", v.ID, err)
	}
	return nil
}

// GetPlaylists lists video playlists. Plex playlists span libraries, so every
// one is offered for the given library.
func (a *Adapter) GetPlaylists(ctx context.Context, libraryID string) []domain.MediaPlaylist {
	c, ok := a.client("GetPlaylists")
	if !ok {
		return []domain.MediaPlaylist{}
	}

	metadata, err := c.Playlists(ctx)
	if err != nil {
		a.logger.Warn("failed to list plex playlists", "error", err)
		return []domain.MediaPlaylist{}
	}

	playlists := make([]domain.MediaPlaylist, 0, len(metadata))
	for _, m := range metadata {
		p := MapPlaylist(m)
		if p.LibraryID == "" {
			p.LibraryID = libraryID
		}
		playlists = append(playlists, p)
	}
	return playlists
}

func (a *Adapter) GetPlaylistItems(ctx context.Context, id string) ([]domain.MediaItem, error) {
	c, ok := a.client("GetPlaylistItems")
	if !ok {
		return []domain.MediaItem{}, nil
	}

	mc, err := c.PlaylistItems(ctx, id)
	if err != nil {
		a.logger.Warn("failed to list plex playlist items", "playlist", id, "error", err)
		return nil, fmt.Errorf("plex playlist items %s: %w", id, err)
	}
	return MapItems(mc.Metadata, domain.LibraryRef{}), nil
}
