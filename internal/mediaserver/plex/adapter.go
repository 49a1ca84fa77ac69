package plex

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

// Namespace is the cache namespace owned by the Plex adapter
const Namespace = "plex"

// Adapter implements domain.MediaServer for Plex Media Server
type Adapter struct {
	settings domain.SettingsProvider
	conn     shared.Connection[*Client]
	cache    *cache.Namespace
	opts     shared.TransportOptions
	logger   *slog.Logger

	// discoverURL overrides the watchlist service, for tests
	discoverURL string

	idOnce      sync.Once
	generatedID string
}

var (
	_ domain.MediaServer          = (*Adapter)(nil)
	_ domain.WatchedLibraryWarmer = (*Adapter)(nil)
	_ domain.WatchlistProvider    = (*Adapter)(nil)
)

// NewAdapter creates an uninitialized adapter
func NewAdapter(settings domain.SettingsProvider, store *cache.Store, opts shared.TransportOptions, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		settings:    settings,
		cache:       store.Namespace(Namespace),
		opts:        opts,
		logger:      logger.With("server", Namespace),
		discoverURL: DiscoverURL,
	}
}

func (a *Adapter) ServerType() domain.ServerType {
	return domain.ServerTypePlex
}

func (a *Adapter) IsSetup() bool {
	return a.conn.State() == shared.StateReady
}

func (a *Adapter) clientID(s domain.Settings) string {
	if s.ClientID != "" {
		return s.ClientID
	}
	a.idOnce.Do(func() { a.generatedID = uuid.NewString() })
	return a.generatedID
}

func (a *Adapter) newClient(serverURL, token, clientID string) *Client {
	c := NewClient(serverURL, token, clientID, shared.NewTransport(a.opts, a.logger), a.logger)
	c.discoverURL = a.discoverURL
	return c
}

// Initialize connects using the current settings
func (a *Adapter) Initialize(ctx context.Context) error {
	s, ok := a.settings.GetSettings()
	if !ok {
		return domain.ErrSettingsAbsent
	}
	if s.URL == "" || s.APIKey == "" {
		return domain.ErrMissingCredentials
	}

	client := a.newClient(s.URL, s.APIKey, a.clientID(s))
	root, err := verifyConnection(ctx, client)
	if err != nil {
		a.logger.Error("plex connection check failed", "url", s.URL, "error", err)
		return err
	}

	a.conn.Open(client)
	a.logger.Info("plex adapter ready", "server", root.FriendlyName, "version", root.Version, "machine", root.MachineIdentifier)
	return nil
}

// Uninitialize drops the connection and flushes every cached entry of the namespace
func (a *Adapter) Uninitialize() {
	a.conn.Close()
	a.cache.Flush()
	a.logger.Info("plex adapter uninitialized")
}

// verifyConnection checks reachability through /identity, then the token through /
func verifyConnection(ctx context.Context, client *Client) (*MediaContainer, error) {
	if _, err := client.Identity(ctx); err != nil {
		return nil, shared.Classify(err, domain.ErrConnectionFailed)
	}
	root, err := client.Root(ctx)
	if err != nil {
		return nil, shared.Classify(err, domain.ErrAuthFailed)
	}
	return root, nil
}

// TestConnection verifies url and token on a throwaway client
func (a *Adapter) TestConnection(ctx context.Context, serverURL, token string) domain.ConnectionResult {
	s, _ := a.settings.GetSettings()
	root, err := verifyConnection(ctx, a.newClient(serverURL, token, a.clientID(s)))
	if err != nil {
		return domain.ConnectionResult{Success: false, Error: err.Error()}
	}
	return domain.ConnectionResult{Success: true, ServerName: root.FriendlyName, Version: root.Version}
}

func (a *Adapter) client(op string) (*Client, bool) {
	c, ok := a.conn.Client()
	if !ok {
		a.logger.Warn("plex adapter not initialized", "op", op)
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

	root, err := c.Root(ctx)
	if err != nil {
		a.logger.Warn("failed to get plex status", "error", err)
		return nil
	}
	status := MapStatus(*root, c.baseURL)
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

	accounts, err := c.Accounts(ctx)
	if err != nil {
		a.logger.Warn("failed to list plex accounts", "error", err)
		return []domain.MediaUser{}
	}
	users := MapUsers(accounts)
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

	sections, err := c.Sections(ctx)
	if err != nil {
		a.logger.Warn("failed to list plex libraries", "error", err)
		return []domain.MediaLibrary{}
	}
	libs := MapLibraries(sections)
	cache.Set(a.cache, cache.KindLibraries, "all", libs)
	return libs
}

func (a *Adapter) libraryRef(ctx context.Context, libraryID string) domain.LibraryRef {
	for _, lib := range a.GetLibraries(ctx) {
		if lib.ID == libraryID {
			return domain.LibraryRef{ID: lib.ID, Title: lib.Title}
		}
	}
	return domain.LibraryRef{ID: libraryID}
}

func (a *Adapter) GetLibraryContents(ctx context.Context, libraryID string, q domain.LibraryQuery) domain.LibraryContents {
	empty := domain.LibraryContents{Items: []domain.MediaItem{}}
	c, ok := a.client("GetLibraryContents")
	if !ok {
		return empty
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	mc, err := c.SectionAll(ctx, libraryID, typeNumber(q.Type), q.Offset, limit, nil)
	if err != nil {
		shared.LogLibraryFailure(ctx, a.logger, "GetLibraryContents", libraryID, shared.IsMigrationArtifact(libraryID), err)
		return empty
	}

	total := mc.TotalSize
	if total == 0 {
		total = mc.Size
	}
	return domain.LibraryContents{Items: MapItems(mc.Metadata, a.libraryRef(ctx, libraryID)), TotalSize: total}
}

func (a *Adapter) GetLibraryContentCount(ctx context.Context, libraryID string, itemType domain.MediaItemType) int {
	c, ok := a.client("GetLibraryContentCount")
	if !ok {
		return 0
	}
	mc, err := c.SectionAll(ctx, libraryID, typeNumber(itemType), 0, 0, nil)
	if err != nil {
		shared.LogLibraryFailure(ctx, a.logger, "GetLibraryContentCount", libraryID, shared.IsMigrationArtifact(libraryID), err)
		return 0
	}
	return mc.TotalSize
}

func (a *Adapter) SearchLibraryContents(ctx context.Context, libraryID, query string, itemType domain.MediaItemType) []domain.MediaItem {
	c, ok := a.client("SearchLibraryContents")
	if !ok {
		return []domain.MediaItem{}
	}
	mc, err := c.SectionAll(ctx, libraryID, typeNumber(itemType), 0, -1, url.Values{"title": {query}})
	if err != nil {
		shared.LogLibraryFailure(ctx, a.logger, "SearchLibraryContents", libraryID, shared.IsMigrationArtifact(libraryID), err)
		return []domain.MediaItem{}
	}
	return MapItems(mc.Metadata, a.libraryRef(ctx, libraryID))
}

func (a *Adapter) GetMetadata(ctx context.Context, itemID string) (*domain.MediaItem, error) {
	c, ok := a.client("GetMetadata")
	if !ok {
		return nil, nil
	}

	m, err := c.Metadata(ctx, itemID)
	if err != nil {
		a.logger.Warn("failed to get plex metadata", "item", itemID, "error", err)
		return nil, fmt.Errorf("plex metadata %s: %w", itemID, err)
	}
	item, ok := MapItem(*m, domain.LibraryRef{})
	if !ok {
		return nil, fmt.Errorf("item %s has type %q: %w", itemID, m.Type, domain.ErrItemNotFound)
	}
	if item.Library.ID != "" {
		cache.Set(a.cache, cache.KindItemLibrary, itemID, item.Library)
	}
	return &item, nil
}

func (a *Adapter) GetChildrenMetadata(ctx context.Context, parentID string, childType domain.MediaItemType) ([]domain.MediaItem, error) {
	c, ok := a.client("GetChildrenMetadata")
	if !ok {
		return []domain.MediaItem{}, nil
	}

	mc, err := c.Children(ctx, parentID)
	if err != nil {
		a.logger.Warn("failed to list plex children", "parent", parentID, "error", err)
		return nil, fmt.Errorf("plex children of %s: %w", parentID, err)
	}

	lib := domain.LibraryRef{ID: string(mc.LibrarySectionID), Title: mc.LibrarySectionTitle}
	children := make([]domain.MediaItem, 0, len(mc.Metadata))
	for _, item := range MapItems(mc.Metadata, lib) {
		if childType != "" && item.Type != childType {
			continue
		}
		children = append(children, item)
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
	mc, err := c.RecentlyAdded(ctx, libraryID, limit)
	if err != nil {
		shared.LogLibraryFailure(ctx, a.logger, "GetRecentlyAdded", libraryID, shared.IsMigrationArtifact(libraryID), err)
		return []domain.MediaItem{}
	}
	return MapItems(mc.Metadata, a.libraryRef(ctx, libraryID))
}

func (a *Adapter) SearchContent(ctx context.Context, query string) []domain.MediaItem {
	c, ok := a.client("SearchContent")
	if !ok {
		return []domain.MediaItem{}
	}
	mc, err := c.Search(ctx, query)
	if err != nil {
		a.logger.Warn("plex search failed", "query", query, "error", err)
		return []domain.MediaItem{}
	}
	return MapItems(mc.Metadata, domain.LibraryRef{})
}

func (a *Adapter) DeleteFromDisk(ctx context.Context, itemID string) error {
	c, ok := a.client("DeleteFromDisk")
	if !ok {
		return nil
	}
	if err := c.DeleteItem(ctx, itemID); err != nil {
		a.logger.Error("failed to delete plex item", "item", itemID, "error", err)
		return fmt.Errorf("delete item %s: %w", itemID, err)
	}
	a.cache.DeleteMatching(itemID)
	return nil
}

// ResetMetadataCache flushes the namespace, or drops the entries of one item
// and asks the server to refresh it
func (a *Adapter) ResetMetadataCache(ctx context.Context, itemID string) {
	if itemID == "" {
		a.cache.Flush()
		return
	}
	a.cache.DeleteMatching(itemID)

	c, ok := a.client("ResetMetadataCache")
	if !ok {
		return
	}
	if err := c.Refresh(ctx, itemID); err != nil {
		a.logger.Warn("failed to refresh plex item", "item", itemID, "error", err)
	}
}

func (a *Adapter) GetAllIdsForContextAction(ctx context.Context, collectionType *domain.MediaItemType, selection domain.ContextSelection, mediaID string) ([]string, error) {
	if _, ok := a.client("GetAllIdsForContextAction"); !ok {
		return []string{}, nil
	}
	return shared.ExpandContext(ctx, a, collectionType, selection, mediaID, a.logger)
}
