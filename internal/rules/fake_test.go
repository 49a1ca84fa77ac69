package rules

import (
	"context"
	"sync"

	"github.com/mmcdole/mediarr/internal/domain"
)

// fakeServer is an in-memory MediaServer that counts calls per method
type fakeServer struct {
	mu    sync.Mutex
	calls map[string]int

	serverType  domain.ServerType
	ready       bool
	items       map[string]domain.MediaItem
	children    map[string][]string
	users       []domain.MediaUser
	seenBy      map[string][]string
	history     map[string][]domain.WatchRecord
	collections []domain.MediaCollection
	members     map[string][]string
	playlists   []domain.MediaPlaylist
	playlisted  map[string][]string

	metadataErr map[string]error
	childrenErr map[string]error
	panicOn     string
}

var _ domain.MediaServer = (*fakeServer)(nil)

func newFakeServer(serverType domain.ServerType) *fakeServer {
	return &fakeServer{
		calls:       map[string]int{},
		serverType:  serverType,
		ready:       true,
		items:       map[string]domain.MediaItem{},
		children:    map[string][]string{},
		seenBy:      map[string][]string{},
		history:     map[string][]domain.WatchRecord{},
		members:     map[string][]string{},
		playlisted:  map[string][]string{},
		metadataErr: map[string]error{},
		childrenErr: map[string]error{},
	}
}

func (f *fakeServer) hit(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	if f.panicOn == method {
		panic("boom in " + method)
	}
}

func (f *fakeServer) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeServer) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeServer) add(items ...domain.MediaItem) {
	for _, it := range items {
		f.items[it.ID] = it
		if it.Type == domain.MediaItemTypeSeason || it.Type == domain.MediaItemTypeEpisode {
			f.children[it.ParentID] = append(f.children[it.ParentID], it.ID)
		}
	}
}

func (f *fakeServer) Initialize(context.Context) error { f.ready = true; return nil }
func (f *fakeServer) Uninitialize()                    { f.ready = false }
func (f *fakeServer) IsSetup() bool                    { return f.ready }
func (f *fakeServer) ServerType() domain.ServerType    { return f.serverType }

func (f *fakeServer) TestConnection(context.Context, string, string) domain.ConnectionResult {
	f.hit("TestConnection")
	return domain.ConnectionResult{Success: true}
}

func (f *fakeServer) GetStatus(context.Context) *domain.MediaServerStatus {
	f.hit("GetStatus")
	return &domain.MediaServerStatus{MachineID: "fake"}
}

func (f *fakeServer) GetUsers(context.Context) []domain.MediaUser {
	f.hit("GetUsers")
	return f.users
}

func (f *fakeServer) GetLibraries(context.Context) []domain.MediaLibrary {
	f.hit("GetLibraries")
	return nil
}

func (f *fakeServer) GetLibraryContents(context.Context, string, domain.LibraryQuery) domain.LibraryContents {
	f.hit("GetLibraryContents")
	return domain.LibraryContents{}
}

func (f *fakeServer) GetLibraryContentCount(context.Context, string, domain.MediaItemType) int {
	f.hit("GetLibraryContentCount")
	return 0
}

func (f *fakeServer) SearchLibraryContents(context.Context, string, string, domain.MediaItemType) []domain.MediaItem {
	f.hit("SearchLibraryContents")
	return nil
}

func (f *fakeServer) GetMetadata(_ context.Context, itemID string) (*domain.MediaItem, error) {
	f.hit("GetMetadata")
	if err := f.metadataErr[itemID]; err != nil {
		return nil, err
	}
	it, ok := f.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &it, nil
}

func (f *fakeServer) GetChildrenMetadata(_ context.Context, parentID string, childType domain.MediaItemType) ([]domain.MediaItem, error) {
	f.hit("GetChildrenMetadata")
	if err := f.childrenErr[parentID]; err != nil {
		return nil, err
	}
	var out []domain.MediaItem
	for _, id := range f.children[parentID] {
		it := f.items[id]
		if childType == "" || it.Type == childType {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeServer) GetRecentlyAdded(context.Context, string, int) []domain.MediaItem {
	f.hit("GetRecentlyAdded")
	return nil
}

func (f *fakeServer) SearchContent(context.Context, string) []domain.MediaItem {
	f.hit("SearchContent")
	return nil
}

func (f *fakeServer) GetWatchHistory(_ context.Context, itemID string) []domain.WatchRecord {
	f.hit("GetWatchHistory")
	return f.history[itemID]
}

func (f *fakeServer) GetItemSeenBy(_ context.Context, itemID string) []string {
	f.hit("GetItemSeenBy")
	return f.seenBy[itemID]
}

func (f *fakeServer) GetTotalPlayCount(_ context.Context, itemID string) int {
	f.hit("GetTotalPlayCount")
	return len(f.history[itemID])
}

func (f *fakeServer) GetCollections(context.Context, string) []domain.MediaCollection {
	f.hit("GetCollections")
	return f.collections
}

func (f *fakeServer) GetCollection(_ context.Context, id string) (*domain.MediaCollection, error) {
	f.hit("GetCollection")
	for _, c := range f.collections {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (f *fakeServer) CreateCollection(context.Context, domain.CreateCollectionParams) (*domain.MediaCollection, error) {
	f.hit("CreateCollection")
	return nil, domain.ErrUnsupported
}

func (f *fakeServer) DeleteCollection(context.Context, string) error {
	f.hit("DeleteCollection")
	return nil
}

func (f *fakeServer) GetCollectionChildren(_ context.Context, id string) ([]domain.MediaItem, error) {
	f.hit("GetCollectionChildren")
	var out []domain.MediaItem
	for _, itemID := range f.members[id] {
		out = append(out, domain.MediaItem{ID: itemID})
	}
	return out, nil
}

func (f *fakeServer) AddToCollection(context.Context, string, []string) error {
	f.hit("AddToCollection")
	return nil
}

func (f *fakeServer) RemoveFromCollection(context.Context, string, []string) error {
	f.hit("RemoveFromCollection")
	return nil
}

func (f *fakeServer) UpdateCollection(context.Context, domain.UpdateCollectionParams) (*domain.MediaCollection, error) {
	f.hit("UpdateCollection")
	return nil, domain.ErrUnsupported
}

func (f *fakeServer) UpdateCollectionVisibility(context.Context, domain.CollectionVisibility) error {
	f.hit("UpdateCollectionVisibility")
	return nil
}

func (f *fakeServer) GetPlaylists(context.Context, string) []domain.MediaPlaylist {
	f.hit("GetPlaylists")
	return f.playlists
}

func (f *fakeServer) GetPlaylistItems(_ context.Context, id string) ([]domain.MediaItem, error) {
	f.hit("GetPlaylistItems")
	var out []domain.MediaItem
	for _, itemID := range f.playlisted[id] {
		out = append(out, domain.MediaItem{ID: itemID})
	}
	return out, nil
}

func (f *fakeServer) GetAllIdsForContextAction(context.Context, *domain.MediaItemType, domain.ContextSelection, string) ([]string, error) {
	f.hit("GetAllIdsForContextAction")
	return nil, nil
}

func (f *fakeServer) DeleteFromDisk(context.Context, string) error {
	f.hit("DeleteFromDisk")
	return nil
}

func (f *fakeServer) ResetMetadataCache(context.Context, string) {
	f.hit("ResetMetadataCache")
}

// watchlistServer adds a watchlist to fakeServer, keyed by item id
type watchlistServer struct {
	*fakeServer
	lists map[string][]string
}

func (w *watchlistServer) WatchlistedBy(_ context.Context, item domain.MediaItem) ([]string, error) {
	w.hit("WatchlistedBy")
	if names, ok := w.lists[item.ID]; ok {
		return names, nil
	}
	return []string{}, nil
}
