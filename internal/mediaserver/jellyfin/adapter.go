package jellyfin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

// Namespace is the cache namespace owned by the Jellyfin adapter
const Namespace = "jellyfin"

// Adapter implements domain.MediaServer for Jellyfin
type Adapter struct {
	settings domain.SettingsProvider
	conn     shared.Connection[*Client]
	cache    *cache.Namespace
	opts     shared.TransportOptions
	logger   *slog.Logger

	idOnce      sync.Once
	generatedID string
}

var (
	_ domain.MediaServer          = (*Adapter)(nil)
	_ domain.WatchedLibraryWarmer = (*Adapter)(nil)
)

// NewAdapter creates an uninitialized adapter
func NewAdapter(settings domain.SettingsProvider, store *cache.Store, opts shared.TransportOptions, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		settings: settings,
		cache:    store.Namespace(Namespace),
		opts:     opts,
		logger:   logger.With("server", Namespace),
	}
}

func (a *Adapter) ServerType() domain.ServerType {
	return domain.ServerTypeJellyfin
}

func (a *Adapter) IsSetup() bool {
	return a.conn.State() == shared.StateReady
}

// clientID returns the configured client id or one generated for the life of the adapter
func (a *Adapter) clientID(s domain.Settings) string {
	if s.ClientID != "" {
		return s.ClientID
	}
	a.idOnce.Do(func() { a.generatedID = uuid.NewString() })
	return a.generatedID
}

func (a *Adapter) newClient(serverURL, apiKey, clientID string) *Client {
	return NewClient(serverURL, apiKey, clientID, shared.NewTransport(a.opts, a.logger), a.logger)
}

// Initialize connects using the current settings. Without a configured user id the
// first administrator is used for library reads.
func (a *Adapter) Initialize(ctx context.Context) error {
	s, ok := a.settings.GetSettings()
	if !ok {
		return domain.ErrSettingsAbsent
	}
	if s.URL == "" || s.APIKey == "" {
		return domain.ErrMissingCredentials
	}

	client := a.newClient(s.URL, s.APIKey, a.clientID(s))
	info, err := verifyConnection(ctx, client)
	if err != nil {
		a.logger.Error("jellyfin connection check failed", "url", s.URL, "error", err)
		return err
	}

	userID := s.UserID
	if userID == "" {
		userID, err = discoverAdmin(ctx, client)
		if err != nil {
			a.logger.Error("no jellyfin admin user found", "error", err)
			return err
		}
	}
	client.userID = userID

	a.conn.Open(client)
	a.logger.Info("jellyfin adapter ready", "server", info.ServerName, "version", info.Version, "user", userID)
	return nil
}

// Uninitialize drops the connection and flushes every cached entry of the namespace
func (a *Adapter) Uninitialize() {
	a.conn.Close()
	a.cache.Flush()
	a.logger.Info("jellyfin adapter uninitialized")
}

// verifyConnection checks reachability first, then credentials
func verifyConnection(ctx context.Context, client *Client) (*SystemInfo, error) {
	if _, err := client.PublicInfo(ctx); err != nil {
		return nil, shared.Classify(err, domain.ErrConnectionFailed)
	}
	info, err := client.SystemInfo(ctx)
	if err != nil {
		return nil, shared.Classify(err, domain.ErrAuthFailed)
	}
	return info, nil
}

func discoverAdmin(ctx context.Context, client *Client) (string, error) {
	users, err := client.Users(ctx)
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		if u.Policy != nil && u.Policy.IsAdministrator && !u.Policy.IsDisabled {
			return u.ID, nil
		}
	}
	return "", errors.New("no administrator account on server")
}

// TestConnection verifies url and key on a throwaway client
func (a *Adapter) TestConnection(ctx context.Context, serverURL, apiKey string) domain.ConnectionResult {
	s, _ := a.settings.GetSettings()
	client := a.newClient(serverURL, apiKey, a.clientID(s))

	info, err := verifyConnection(ctx, client)
	if err != nil {
		return domain.ConnectionResult{Success: false, Error: err.Error()}
	}
	return domain.ConnectionResult{Success: true, ServerName: info.ServerName, Version: info.Version}
}

// client returns the live client, logging when the adapter is not ready
func (a *Adapter) client(op string) (*Client, bool) {
	c, ok := a.conn.Client()
	if !ok {
		a.logger.Warn("jellyfin adapter not initialized", "op", op)
	}
	return c, ok
}

func (a *Adapter) GetStatus(ctx context.Context) *domain.MediaServerStatus {
	c, ok := a.client("GetStatus")
	if !ok {
		return nil
	}
	if status, ok := cache.Get[domain.MediaServerStatus](a.cache, cache.KindStatus, "info"); ok {
		return &status
	}

	info, err := c.SystemInfo(ctx)
	if err != nil {
		a.logger.Warn("failed to get jellyfin status", "error", err)
		return nil
	}
	status := MapStatus(*info, c.baseURL)
	cache.Set(a.cache, cache.KindStatus, "info", status)
	return &status
}

func (a *Adapter) GetUsers(ctx context.Context) []domain.MediaUser {
	c, ok := a.client("GetUsers")
	if !ok {
		return []domain.MediaUser{}
	}
	if users, ok := cache.Get[[]domain.MediaUser](a.cache, cache.KindUsers, "all"); ok {
		return users
	}

	raw, err := c.Users(ctx)
	if err != nil {
		a.logger.Warn("failed to list jellyfin users", "error", err)
		return []domain.MediaUser{}
	}
	users := MapUsers(raw)
	cache.Set(a.cache, cache.KindUsers, "all", users)
	return users
}

func (a *Adapter) GetLibraries(ctx context.Context) []domain.MediaLibrary {
	c, ok := a.client("GetLibraries")
	if !ok {
		return []domain.MediaLibrary{}
	}
	if libs, ok := cache.Get[[]domain.MediaLibrary](a.cache, cache.KindLibraries, "all"); ok {
		return libs
	}

	views, err := c.Views(ctx, c.userID)
	if err != nil {
		a.logger.Warn("failed to list jellyfin libraries", "error", err)
		return []domain.MediaLibrary{}
	}
	libs := MapLibraries(views)
	cache.Set(a.cache, cache.KindLibraries, "all", libs)
	return libs
}

// libraryRef names a library from the cached library list
func (a *Adapter) libraryRef(ctx context.Context, libraryID string) domain.LibraryRef {
	for _, lib := range a.GetLibraries(ctx) {
		if lib.ID == libraryID {
			return domain.LibraryRef{ID: lib.ID, Title: lib.Title}
		}
	}
	return domain.LibraryRef{ID: libraryID}
}

func libraryQuery(libraryID string, itemType domain.MediaItemType) url.Values {
	return url.Values{
		"ParentId":         {libraryID},
		"Recursive":        {"true"},
		"IncludeItemTypes": {includeItemTypes(itemType)},
		"SortBy":           {"SortName"},
		"SortOrder":        {"Ascending"},
	}
}

func (a *Adapter) GetLibraryContents(ctx context.Context, libraryID string, q domain.LibraryQuery) domain.LibraryContents {
	empty := domain.LibraryContents{Items: []domain.MediaItem{}}
	c, ok := a.client("GetLibraryContents")
	if !ok {
		return empty
	}

	query := libraryQuery(libraryID, q.Type)
	if q.Offset > 0 {
		query.Set("StartIndex", strconv.Itoa(q.Offset))
	}
	if q.Limit > 0 {
		query.Set("Limit", strconv.Itoa(q.Limit))
	}

	resp, err := c.Items(ctx, c.userID, query)
	if err != nil {
		shared.LogLibraryFailure(ctx, a.logger, "GetLibraryContents", libraryID, shared.IsMigrationArtifact(libraryID), err)
		return empty
	}

	lib := a.libraryRef(ctx, libraryID)
	return domain.LibraryContents{Items: MapItems(resp.Items, lib), TotalSize: resp.TotalRecordCount}
}

func (a *Adapter) GetLibraryContentCount(ctx context.Context, libraryID string, itemType domain.MediaItemType) int {
	c, ok := a.client("GetLibraryContentCount")
	if !ok {
		return 0
	}

	query := libraryQuery(libraryID, itemType)
	query.Set("Limit", "0")
	query.Set("Fields", "ParentId")

	resp, err := c.Items(ctx, c.userID, query)
	if err != nil {
		shared.LogLibraryFailure(ctx, a.logger, "GetLibraryContentCount", libraryID, shared.IsMigrationArtifact(libraryID), err)
		return 0
	}
	return resp.TotalRecordCount
}

func (a *Adapter) SearchLibraryContents(ctx context.Context, libraryID, query string, itemType domain.MediaItemType) []domain.MediaItem {
	c, ok := a.client("SearchLibraryContents")
	if !ok {
		return []domain.MediaItem{}
	}

	q := libraryQuery(libraryID, itemType)
	q.Set("SearchTerm", query)

	resp, err := c.Items(ctx, c.userID, q)
	if err != nil {
		shared.LogLibraryFailure(ctx, a.logger, "SearchLibraryContents", libraryID, shared.IsMigrationArtifact(libraryID), err)
		return []domain.MediaItem{}
	}
	return MapItems(resp.Items, a.libraryRef(ctx, libraryID))
}

func (a *Adapter) GetMetadata(ctx context.Context, itemID string) (*domain.MediaItem, error) {
	c, ok := a.client("GetMetadata")
	if !ok {
		return nil, nil
	}

	item, err := c.Item(ctx, c.userID, itemID)
	if err != nil {
		a.logger.Warn("failed to get jellyfin metadata", "item", itemID, "error", err)
		return nil, fmt.Errorf("jellyfin metadata %s: %w", itemID, err)
	}

	mi, ok := MapItem(*item, a.itemLibrary(ctx, c, itemID))
	if !ok {
		return nil, fmt.Errorf("item %s has type %q: %w", itemID, item.Type, domain.ErrItemNotFound)
	}
	if mi.ParentID == "" {
		a.logger.Warn("jellyfin item has no resolvable parent", "item", itemID, "type", item.Type, "raw_parent", item.ParentID)
	}
	return &mi, nil
}

// itemLibrary finds the library folder above an item. Failures leave the reference empty.
func (a *Adapter) itemLibrary(ctx context.Context, c *Client, itemID string) domain.LibraryRef {
	if lib, ok := cache.Get[domain.LibraryRef](a.cache, cache.KindItemLibrary, itemID); ok {
		return lib
	}

	ancestors, err := c.Ancestors(ctx, c.userID, itemID)
	if err != nil {
		a.logger.Debug("failed to resolve item library", "item", itemID, "error", err)
		return domain.LibraryRef{}
	}
	for _, anc := range ancestors {
		if anc.Type == itemTypeFolder {
			lib := domain.LibraryRef{ID: anc.ID, Title: anc.Name}
			cache.Set(a.cache, cache.KindItemLibrary, itemID, lib)
			return lib
		}
	}
	return domain.LibraryRef{}
}

func (a *Adapter) GetChildrenMetadata(ctx context.Context, parentID string, childType domain.MediaItemType) ([]domain.MediaItem, error) {
	c, ok := a.client("GetChildrenMetadata")
	if !ok {
		return []domain.MediaItem{}, nil
	}

	query := url.Values{
		"ParentId": {parentID},
		"SortBy":   {"ParentIndexNumber,IndexNumber,SortName"},
	}
	if childType != "" {
		query.Set("IncludeItemTypes", includeItemTypes(childType))
	}

	resp, err := c.Items(ctx, c.userID, query)
	if err != nil {
		a.logger.Warn("failed to list jellyfin children", "parent", parentID, "error", err)
		return nil, fmt.Errorf("jellyfin children of %s: %w", parentID, err)
	}

	// children live in the parent's library; only a cached lookup is used here
	lib, known := cache.Get[domain.LibraryRef](a.cache, cache.KindItemLibrary, parentID)
	children := MapItems(resp.Items, lib)
	if known {
		for _, child := range children {
			cache.Set(a.cache, cache.KindItemLibrary, child.ID, lib)
		}
	}
	return children, nil
}

func (a *Adapter) GetRecentlyAdded(ctx context.Context, libraryID string, limit int) []domain.MediaItem {
	c, ok := a.client("GetRecentlyAdded")
	if !ok {
		return []domain.MediaItem{}
	}
	if limit <= 0 {
		limit = 50
	}

	query := url.Values{
		"ParentId":   {libraryID},
		"Limit":      {strconv.Itoa(limit)},
		"GroupItems": {"false"},
	}
	items, err := c.Latest(ctx, c.userID, query)
	if err != nil {
		shared.LogLibraryFailure(ctx, a.logger, "GetRecentlyAdded", libraryID, shared.IsMigrationArtifact(libraryID), err)
		return []domain.MediaItem{}
	}
	return MapItems(items, a.libraryRef(ctx, libraryID))
}

func (a *Adapter) SearchContent(ctx context.Context, query string) []domain.MediaItem {
	c, ok := a.client("SearchContent")
	if !ok {
		return []domain.MediaItem{}
	}

	q := url.Values{
		"SearchTerm":       {query},
		"Recursive":        {"true"},
		"IncludeItemTypes": {"Movie,Series,Season,Episode"},
		"Limit":            {"100"},
	}
	resp, err := c.Items(ctx, c.userID, q)
	if err != nil {
		a.logger.Warn("jellyfin search failed", "query", query, "error", err)
		return []domain.MediaItem{}
	}
	return MapItems(resp.Items, domain.LibraryRef{})
}

func (a *Adapter) DeleteFromDisk(ctx context.Context, itemID string) error {
	c, ok := a.client("DeleteFromDisk")
	if !ok {
		return nil
	}
	if err := c.DeleteItem(ctx, itemID); err != nil {
		a.logger.Error("failed to delete jellyfin item", "item", itemID, "error", err)
		return fmt.Errorf("delete item %s: %w", itemID, err)
	}
	a.cache.DeleteMatching(itemID)
	return nil
}

// ResetMetadataCache flushes the namespace, or only the entries mentioning itemID
func (a *Adapter) ResetMetadataCache(_ context.Context, itemID string) {
	if itemID == "" {
		a.cache.Flush()
		return
	}
	a.cache.DeleteMatching(itemID)
}

func (a *Adapter) GetAllIdsForContextAction(ctx context.Context, collectionType *domain.MediaItemType, selection domain.ContextSelection, mediaID string) ([]string, error) {
	if _, ok := a.client("GetAllIdsForContextAction"); !ok {
		return []string{}, nil
	}
	return shared.ExpandContext(ctx, a, collectionType, selection, mediaID, a.logger)
}
