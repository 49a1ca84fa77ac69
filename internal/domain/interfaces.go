package domain

import "context"

// MediaServer is the contract every backend adapter satisfies.
//
// Reads degrade to the empty value of their type and log instead of failing.
// The item-level getters (GetMetadata, GetChildrenMetadata, GetCollection,
// GetCollectionChildren, GetPlaylistItems) return the error of their single
// network call so callers can tell "absent" from "failed". Mutations always
// return errors. While the adapter is not initialized no network call is made.
type MediaServer interface {
	// Initialize reads settings, verifies the connection and moves the adapter to ready
	Initialize(ctx context.Context) error

	// Uninitialize drops the connection and flushes the adapter's cache namespace
	Uninitialize()

	// IsSetup reports whether the adapter is ready
	IsSetup() bool

	// ServerType identifies the backend
	ServerType() ServerType

	// TestConnection verifies url and key with a throwaway client, leaving adapter state untouched
	TestConnection(ctx context.Context, url, apiKey string) ConnectionResult

	// GetStatus returns server identity, or nil when unavailable
	GetStatus(ctx context.Context) *MediaServerStatus

	// GetUsers returns all accounts that can hold watch state
	GetUsers(ctx context.Context) []MediaUser

	// GetLibraries returns the movie and show libraries
	GetLibraries(ctx context.Context) []MediaLibrary

	// GetLibraryContents returns one page of a library
	GetLibraryContents(ctx context.Context, libraryID string, query LibraryQuery) LibraryContents

	// GetLibraryContentCount returns the number of items of a type in a library
	GetLibraryContentCount(ctx context.Context, libraryID string, itemType MediaItemType) int

	// SearchLibraryContents searches by title within one library
	SearchLibraryContents(ctx context.Context, libraryID, query string, itemType MediaItemType) []MediaItem

	// GetMetadata returns the full record for an item
	GetMetadata(ctx context.Context, itemID string) (*MediaItem, error)

	// GetChildrenMetadata returns seasons of a show or episodes of a season.
	// An empty childType returns every direct child.
	GetChildrenMetadata(ctx context.Context, parentID string, childType MediaItemType) ([]MediaItem, error)

	// GetRecentlyAdded returns the newest items of a library
	GetRecentlyAdded(ctx context.Context, libraryID string, limit int) []MediaItem

	// SearchContent searches all libraries
	SearchContent(ctx context.Context, query string) []MediaItem

	// GetWatchHistory returns who has the item marked played
	GetWatchHistory(ctx context.Context, itemID string) []WatchRecord

	// GetItemSeenBy returns the ids of users who watched the item
	GetItemSeenBy(ctx context.Context, itemID string) []string

	// GetTotalPlayCount sums plays of the item across all users
	GetTotalPlayCount(ctx context.Context, itemID string) int

	// GetCollections lists collections of a library
	GetCollections(ctx context.Context, libraryID string) []MediaCollection

	// GetCollection returns one collection
	GetCollection(ctx context.Context, collectionID string) (*MediaCollection, error)

	// CreateCollection creates a locked collection
	CreateCollection(ctx context.Context, params CreateCollectionParams) (*MediaCollection, error)

	// DeleteCollection removes a collection, leaving its items in place
	DeleteCollection(ctx context.Context, collectionID string) error

	// GetCollectionChildren lists the items in a collection
	GetCollectionChildren(ctx context.Context, collectionID string) ([]MediaItem, error)

	// AddToCollection adds items to a collection
	AddToCollection(ctx context.Context, collectionID string, itemIDs []string) error

	// RemoveFromCollection removes items from a collection
	RemoveFromCollection(ctx context.Context, collectionID string, itemIDs []string) error

	// UpdateCollection changes title, summary and sort title
	UpdateCollection(ctx context.Context, params UpdateCollectionParams) (*MediaCollection, error)

	// UpdateCollectionVisibility promotes a collection to home or recommended hubs
	UpdateCollectionVisibility(ctx context.Context, visibility CollectionVisibility) error

	// GetPlaylists lists playlists that can contain items of the library
	GetPlaylists(ctx context.Context, libraryID string) []MediaPlaylist

	// GetPlaylistItems lists the items in a playlist
	GetPlaylistItems(ctx context.Context, playlistID string) ([]MediaItem, error)

	// GetAllIdsForContextAction expands a hierarchy selection into concrete item ids
	GetAllIdsForContextAction(ctx context.Context, collectionType *MediaItemType, selection ContextSelection, mediaID string) ([]string, error)

	// DeleteFromDisk deletes the item and its files on the server
	DeleteFromDisk(ctx context.Context, itemID string) error

	// ResetMetadataCache drops cached data for one item, or everything when itemID is empty
	ResetMetadataCache(ctx context.Context, itemID string)
}

// WatchedLibraryWarmer is implemented by adapters that can pre-build a
// library-wide watched index for bulk rule evaluation.
type WatchedLibraryWarmer interface {
	WarmWatchedLibrary(ctx context.Context, libraryID string) error
}

// WatchlistProvider is implemented by adapters that can read account watchlists.
// WatchlistedBy returns the names of the users whose watchlist holds item.
type WatchlistProvider interface {
	WatchlistedBy(ctx context.Context, item MediaItem) ([]string, error)
}

// Settings are the persisted media server connection parameters
type Settings struct {
	Type     ServerType
	URL      string
	APIKey   string
	UserID   string
	ClientID string
}

// SettingsProvider returns the current settings. ok is false when none are saved.
// Adapters query it on every Initialize rather than holding a copy.
type SettingsProvider interface {
	GetSettings() (settings Settings, ok bool)
}

// SettingsFunc adapts a function to SettingsProvider
type SettingsFunc func() (Settings, bool)

// GetSettings calls f
func (f SettingsFunc) GetSettings() (Settings, bool) {
	return f()
}
