package domain

import (
	"strings"
	"time"
)

// MediaItemType distinguishes content types
type MediaItemType string

const (
	MediaItemTypeMovie   MediaItemType = "movie"
	MediaItemTypeShow    MediaItemType = "show"
	MediaItemTypeSeason  MediaItemType = "season"
	MediaItemTypeEpisode MediaItemType = "episode"
)

// Valid reports whether t is one of the four known item types
func (t MediaItemType) Valid() bool {
	switch t {
	case MediaItemTypeMovie, MediaItemTypeShow, MediaItemTypeSeason, MediaItemTypeEpisode:
		return true
	default:
		return false
	}
}

// IsContainer returns true for types whose children are other media items
func (t MediaItemType) IsContainer() bool {
	return t == MediaItemTypeShow || t == MediaItemTypeSeason
}

// ParseMediaItemType converts a loose string ("Movie", "series", "tv") to a MediaItemType
func ParseMediaItemType(s string) (MediaItemType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return MediaItemTypeMovie, true
	case "show", "series", "tv", "tvshows":
		return MediaItemTypeShow, true
	case "season":
		return MediaItemTypeSeason, true
	case "episode":
		return MediaItemTypeEpisode, true
	default:
		return "", false
	}
}

// ServerType identifies the media server backend
type ServerType string

const (
	ServerTypePlex     ServerType = "plex"
	ServerTypeJellyfin ServerType = "jellyfin"
)

// ProviderIDs holds external identifiers. A backend may report several ids per provider.
type ProviderIDs struct {
	IMDb []string `json:"imdb,omitempty"`
	TMDb []string `json:"tmdb,omitempty"`
	TVDb []string `json:"tvdb,omitempty"`
}

// Empty returns true when no provider ids are known
func (p ProviderIDs) Empty() bool {
	return len(p.IMDb) == 0 && len(p.TMDb) == 0 && len(p.TVDb) == 0
}

// Matches returns true if any id of any provider appears in both sets
func (p ProviderIDs) Matches(other ProviderIDs) bool {
	return anyShared(p.IMDb, other.IMDb) || anyShared(p.TMDb, other.TMDb) || anyShared(p.TVDb, other.TVDb)
}

func anyShared(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x != "" && x == y {
				return true
			}
		}
	}
	return false
}

// MediaSource describes one file backing an item
type MediaSource struct {
	ID              string `json:"id,omitempty"`
	Container       string `json:"container,omitempty"`
	SizeBytes       int64  `json:"sizeBytes,omitempty"`
	BitrateKbps     int    `json:"bitrateKbps,omitempty"`
	DurationMs      int64  `json:"durationMs,omitempty"`
	VideoResolution string `json:"videoResolution,omitempty"` // "4k", "1080", "720", "480", "sd"
	VideoCodec      string `json:"videoCodec,omitempty"`
	AudioCodec      string `json:"audioCodec,omitempty"`
	AudioChannels   int    `json:"audioChannels,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
}

// Rating types
const (
	RatingTypeAudience = "audience"
	RatingTypeCritic   = "critic"
)

// Rating sources
const (
	RatingSourceIMDb           = "imdb"
	RatingSourceTMDb           = "tmdb"
	RatingSourceRottenTomatoes = "rottentomatoes"
	RatingSourceCommunity      = "community"
	RatingSourceCritic         = "critic"
)

// Rating is a single score attached to an item
type Rating struct {
	Source string  `json:"source"`
	Value  float64 `json:"value"`
	Type   string  `json:"type"`
}

// LibraryRef identifies the library an item belongs to
type LibraryRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// MediaItem is the normalized representation of a movie, show, season or episode.
//
// ParentID and GrandparentID are back-references resolved by id lookup:
//   - movie, show: ParentID is the library id, no grandparent
//   - season: ParentID is the show id, no grandparent
//   - episode: ParentID is the season id, GrandparentID is the show id
type MediaItem struct {
	ID               string        `json:"id"`
	Type             MediaItemType `json:"type"`
	ParentID         string        `json:"parentId,omitempty"`
	GrandparentID    string        `json:"grandparentId,omitempty"`
	Title            string        `json:"title"`
	ParentTitle      string        `json:"parentTitle,omitempty"`
	GrandparentTitle string        `json:"grandparentTitle,omitempty"`
	AddedAt          time.Time     `json:"addedAt"`
	UpdatedAt        *time.Time    `json:"updatedAt,omitempty"`
	ProviderIDs      ProviderIDs   `json:"providerIds"`
	MediaSources     []MediaSource `json:"mediaSources,omitempty"`
	Library          LibraryRef    `json:"library"`

	Summary               string     `json:"summary,omitempty"`
	Year                  *int       `json:"year,omitempty"`
	DurationMs            *int64     `json:"durationMs,omitempty"`
	OriginallyAvailableAt *time.Time `json:"originallyAvailableAt,omitempty"`
	Ratings               []Rating   `json:"ratings,omitempty"`
	UserRating            *float64   `json:"userRating,omitempty"`
	Genres                []string   `json:"genres,omitempty"`
	Actors                []string   `json:"actors,omitempty"`
	ChildCount            *int       `json:"childCount,omitempty"`
	WatchedChildCount     *int       `json:"watchedChildCount,omitempty"`
	Index                 *int       `json:"index,omitempty"`
	ParentIndex           *int       `json:"parentIndex,omitempty"`
	Labels                []string   `json:"labels,omitempty"`
}

// CanonicalSource returns the first media source, which file-derived properties read from
func (m MediaItem) CanonicalSource() (MediaSource, bool) {
	if len(m.MediaSources) == 0 {
		return MediaSource{}, false
	}
	return m.MediaSources[0], true
}

// RatingBy returns the first rating matching source and type. Empty arguments match anything.
func (m MediaItem) RatingBy(source, ratingType string) (float64, bool) {
	for _, r := range m.Ratings {
		if source != "" && r.Source != source {
			continue
		}
		if ratingType != "" && r.Type != ratingType {
			continue
		}
		return r.Value, true
	}
	return 0, false
}

// MediaLibrary is a top-level library section
type MediaLibrary struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Type  MediaItemType `json:"type"` // movie or show
}

// MediaUser is a server account that can have watch state
type MediaUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Thumb string `json:"thumb,omitempty"`
}

// WatchRecord states that a user has an item marked played.
// It is not a play-event log entry on every backend.
type WatchRecord struct {
	UserID    string     `json:"userId"`
	ItemID    string     `json:"itemId"`
	WatchedAt *time.Time `json:"watchedAt,omitempty"`
	Progress  int        `json:"progress"` // 0-100
}

// MediaCollection is a server-side collection (Plex collection, Jellyfin BoxSet)
type MediaCollection struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Summary    string     `json:"summary,omitempty"`
	ChildCount int        `json:"childCount"`
	AddedAt    *time.Time `json:"addedAt,omitempty"`
	Smart      bool       `json:"smart"`
	LibraryID  string     `json:"libraryId,omitempty"`
}

// MediaPlaylist is a server-side playlist
type MediaPlaylist struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Summary   string     `json:"summary,omitempty"`
	ItemCount int        `json:"itemCount"`
	AddedAt   *time.Time `json:"addedAt,omitempty"`
	Smart     bool       `json:"smart"`
	LibraryID string     `json:"libraryId,omitempty"`
}

// MediaServerStatus is a point-in-time snapshot of the server identity
type MediaServerStatus struct {
	MachineID string `json:"machineId"`
	Version   string `json:"version"`
	Name      string `json:"name,omitempty"`
	Platform  string `json:"platform,omitempty"`
	URL       string `json:"url,omitempty"`
}

// LibraryContents is one page of library items
type LibraryContents struct {
	Items     []MediaItem `json:"items"`
	TotalSize int         `json:"totalSize"`
}

// LibraryQuery pages and filters library content. A zero Type means movies and shows.
type LibraryQuery struct {
	Offset int
	Limit  int
	Type   MediaItemType
}

// ConnectionResult reports the outcome of a connection test
type ConnectionResult struct {
	Success    bool   `json:"success"`
	ServerName string `json:"serverName,omitempty"`
	Version    string `json:"version,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CreateCollectionParams describes a new collection
type CreateCollectionParams struct {
	LibraryID string
	Type      MediaItemType
	Title     string
	Summary   string
	SortTitle string
	ItemIDs   []string
}

// UpdateCollectionParams describes a metadata update. Empty strings keep the existing value.
type UpdateCollectionParams struct {
	ID        string
	LibraryID string
	Title     string
	Summary   string
	SortTitle string
}

// CollectionVisibility controls where a collection is promoted
type CollectionVisibility struct {
	ID          string
	LibraryID   string
	Recommended bool
	OwnHome     bool
	SharedHome  bool
}

// AllContextID is the selection sentinel meaning "the whole media item"
const AllContextID = "-1"

// ContextSelection is the node a user acted on in a hierarchy
type ContextSelection struct {
	Type MediaItemType
	ID   string
}
