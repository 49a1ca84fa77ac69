package plex

import (
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/mediarr/internal/domain"
)

// Plex metadata type numbers used by filters and collection creation
const (
	typeMovie      = 1
	typeShow       = 2
	typeSeason     = 3
	typeEpisode    = 4
	typeCollection = 18
)

// typeNumber returns the Plex type number for t, or 0 for "any"
func typeNumber(t domain.MediaItemType) int {
	switch t {
	case domain.MediaItemTypeMovie:
		return typeMovie
	case domain.MediaItemTypeShow:
		return typeShow
	case domain.MediaItemTypeSeason:
		return typeSeason
	case domain.MediaItemTypeEpisode:
		return typeEpisode
	default:
		return 0
	}
}

// MapItemType converts a Plex type string to a domain type
func MapItemType(t string) (domain.MediaItemType, bool) {
	switch t {
	case "movie":
		return domain.MediaItemTypeMovie, true
	case "show":
		return domain.MediaItemTypeShow, true
	case "season":
		return domain.MediaItemTypeSeason, true
	case "episode":
		return domain.MediaItemTypeEpisode, true
	default:
		return "", false
	}
}

// MapItem converts Plex metadata to a domain item. lib is used when the item
// carries no librarySectionID of its own, as children listings only set it on
// the container. ok is false for non-video types.
func MapItem(m Metadata, lib domain.LibraryRef) (domain.MediaItem, bool) {
	itemType, ok := MapItemType(m.Type)
	if !ok {
		return domain.MediaItem{}, false
	}

	if id := string(m.LibrarySectionID); id != "" {
		lib.ID = id
		if m.LibrarySectionTitle != "" {
			lib.Title = m.LibrarySectionTitle
		}
	}

	item := domain.MediaItem{
		ID:           m.RatingKey,
		Type:         itemType,
		Title:        m.Title,
		Summary:      m.Summary,
		Library:      lib,
		AddedAt:      unixTime(m.AddedAt),
		ProviderIDs:  mapProviderIDs(m.Guids),
		MediaSources: mapMediaSources(m.Media),
		Ratings:      mapRatings(m),
		UserRating:   m.UserRating,
		Genres:       tagNames(m.Genre),
		Actors:       tagNames(m.Role),
		Labels:       tagNames(m.Label),
		Index:        m.Index,
		ParentIndex:  m.ParentIndex,
	}

	switch itemType {
	case domain.MediaItemTypeSeason:
		item.ParentID = m.ParentRatingKey
		item.ParentTitle = m.ParentTitle
	case domain.MediaItemTypeEpisode:
		item.ParentID = m.ParentRatingKey
		item.ParentTitle = m.ParentTitle
		item.GrandparentID = m.GrandparentRatingKey
		item.GrandparentTitle = m.GrandparentTitle
	default:
		item.ParentID = lib.ID
	}

	if m.UpdatedAt > 0 {
		t := unixTime(m.UpdatedAt)
		item.UpdatedAt = &t
	}
	item.OriginallyAvailableAt = parseDate(m.OriginallyAvailableAt)
	if m.Year > 0 {
		year := m.Year
		item.Year = &year
	}
	if m.Duration > 0 {
		d := m.Duration
		item.DurationMs = &d
	}

	if itemType.IsContainer() {
		// leafCount counts episodes for both shows and seasons
		item.ChildCount = m.LeafCount
		item.WatchedChildCount = m.ViewedLeafCount
	}

	return item, true
}

// MapItems converts metadata, dropping non-video types
func MapItems(metadata []Metadata, lib domain.LibraryRef) []domain.MediaItem {
	items := make([]domain.MediaItem, 0, len(metadata))
	for _, m := range metadata {
		if item, ok := MapItem(m, lib); ok {
			items = append(items, item)
		}
	}
	return items
}

// MapLibraries converts Plex directories to domain libraries
func MapLibraries(dirs []Directory) []domain.MediaLibrary {
	libraries := make([]domain.MediaLibrary, 0, len(dirs))
	for _, d := range dirs {
		// Only include movie and show libraries
		if d.Type != "movie" && d.Type != "show" {
			continue
		}
		libType, _ := MapItemType(d.Type)
		libraries = append(libraries, domain.MediaLibrary{ID: d.Key, Title: d.Title, Type: libType})
	}
	return libraries
}

// MapUsers converts server accounts. The unnamed system account is dropped.
func MapUsers(accounts []Account) []domain.MediaUser {
	users := make([]domain.MediaUser, 0, len(accounts))
	for _, a := range accounts {
		if a.Name == "" {
			continue
		}
		users = append(users, domain.MediaUser{ID: strconv.Itoa(a.ID), Name: a.Name, Thumb: a.Thumb})
	}
	return users
}

// MapCollection converts collection metadata
func MapCollection(m Metadata, libraryID string) domain.MediaCollection {
	c := domain.MediaCollection{
		ID:        m.RatingKey,
		Title:     m.Title,
		Summary:   m.Summary,
		Smart:     bool(m.Smart),
		LibraryID: firstNonEmpty(string(m.LibrarySectionID), libraryID),
	}
	if m.ChildCount != nil {
		c.ChildCount = *m.ChildCount
	}
	if m.AddedAt > 0 {
		t := unixTime(m.AddedAt)
		c.AddedAt = &t
	}
	return c
}

// MapPlaylist converts playlist metadata
func MapPlaylist(m Metadata) domain.MediaPlaylist {
	p := domain.MediaPlaylist{
		ID:        m.RatingKey,
		Title:     m.Title,
		Summary:   m.Summary,
		Smart:     bool(m.Smart),
		LibraryID: string(m.LibrarySectionID),
	}
	if m.LeafCount != nil {
		p.ItemCount = *m.LeafCount
	}
	if m.AddedAt > 0 {
		t := unixTime(m.AddedAt)
		p.AddedAt = &t
	}
	return p
}

// MapStatus converts the root container
func MapStatus(c MediaContainer, serverURL string) domain.MediaServerStatus {
	return domain.MediaServerStatus{
		MachineID: c.MachineIdentifier,
		Version:   c.Version,
		Name:      c.FriendlyName,
		Platform:  c.Platform,
		URL:       serverURL,
	}
}

// MapHistory converts play events. Every event is one record, so a re-watch
// by the same account appears twice.
func MapHistory(entries []HistoryEntry, itemID string) []domain.WatchRecord {
	records := make([]domain.WatchRecord, 0, len(entries))
	for _, e := range entries {
		rec := domain.WatchRecord{
			UserID:   strconv.Itoa(e.AccountID),
			ItemID:   firstNonEmpty(e.RatingKey, itemID),
			Progress: 100,
		}
		if e.ViewedAt > 0 {
			t := unixTime(e.ViewedAt)
			rec.WatchedAt = &t
		}
		records = append(records, rec)
	}
	return records
}

func mapProviderIDs(guids []Guid) domain.ProviderIDs {
	var p domain.ProviderIDs
	for _, g := range guids {
		scheme, id, ok := strings.Cut(g.ID, "://")
		if !ok || id == "" {
			continue
		}
		switch scheme {
		case "imdb":
			p.IMDb = append(p.IMDb, id)
		case "tmdb":
			p.TMDb = append(p.TMDb, id)
		case "tvdb":
			p.TVDb = append(p.TVDb, id)
		}
	}
	return p
}

// mapRatings reads the external rating list, keyed by the image uri of each entry:
// imdb://image.rating, themoviedb://image.rating, rottentomatoes://image.rating.ripe
func mapRatings(m Metadata) []domain.Rating {
	var ratings []domain.Rating
	for _, r := range m.Ratings {
		scheme, _, _ := strings.Cut(r.Image, "://")
		var source string
		switch scheme {
		case "imdb":
			source = domain.RatingSourceIMDb
		case "themoviedb":
			source = domain.RatingSourceTMDb
		case "rottentomatoes":
			source = domain.RatingSourceRottenTomatoes
		default:
			continue
		}
		ratingType := r.Type
		if ratingType == "" {
			ratingType = domain.RatingTypeAudience
		}
		ratings = append(ratings, domain.Rating{Source: source, Value: r.Value, Type: ratingType})
	}

	if len(ratings) == 0 {
		if m.Rating > 0 {
			ratings = append(ratings, domain.Rating{Source: domain.RatingSourceCritic, Value: m.Rating, Type: domain.RatingTypeCritic})
		}
		if m.AudienceRating > 0 {
			ratings = append(ratings, domain.Rating{Source: domain.RatingSourceCommunity, Value: m.AudienceRating, Type: domain.RatingTypeAudience})
		}
	}
	return ratings
}

func mapMediaSources(media []Media) []domain.MediaSource {
	sources := make([]domain.MediaSource, 0, len(media))
	for _, md := range media {
		src := domain.MediaSource{
			ID:              strconv.Itoa(md.ID),
			Container:       normalizeContainer(md.Container),
			BitrateKbps:     md.Bitrate,
			DurationMs:      md.Duration,
			VideoResolution: strings.ToLower(md.VideoResolution),
			VideoCodec:      strings.ToLower(md.VideoCodec),
			AudioCodec:      strings.ToLower(md.AudioCodec),
			AudioChannels:   md.AudioChannels,
			Width:           md.Width,
			Height:          md.Height,
		}
		for _, p := range md.Part {
			src.SizeBytes += p.Size
		}
		sources = append(sources, src)
	}
	return sources
}

func tagNames(tags []Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Tag)
	}
	return names
}

// normalizeContainer cleans up the container format string
func normalizeContainer(container string) string {
	if container == "" {
		return ""
	}
	// Plex may return comma-separated list (e.g. "mov,mp4,m4a,3gp,3g2,mj2"); take first
	if i := strings.Index(container, ","); i >= 0 {
		container = container[:i]
	}
	return strings.ToLower(container)
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
