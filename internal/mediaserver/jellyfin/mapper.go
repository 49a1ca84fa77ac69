package jellyfin

import (
	"strings"
	"time"

	"github.com/mmcdole/mediarr/internal/domain"
)

const (
	// Jellyfin uses 100-nanosecond ticks
	ticksPerMillisecond = 10000
)

// Jellyfin item types
const (
	itemTypeMovie    = "Movie"
	itemTypeSeries   = "Series"
	itemTypeSeason   = "Season"
	itemTypeEpisode  = "Episode"
	itemTypeBoxSet   = "BoxSet"
	itemTypePlaylist = "Playlist"
	itemTypeFolder   = "CollectionFolder"
)

// MapItemType converts a Jellyfin item type to a domain type
func MapItemType(t string) (domain.MediaItemType, bool) {
	switch t {
	case itemTypeMovie:
		return domain.MediaItemTypeMovie, true
	case itemTypeSeries:
		return domain.MediaItemTypeShow, true
	case itemTypeSeason:
		return domain.MediaItemTypeSeason, true
	case itemTypeEpisode:
		return domain.MediaItemTypeEpisode, true
	default:
		return "", false
	}
}

// includeItemTypes converts a domain type to the IncludeItemTypes query value.
// The zero type means movies and series.
func includeItemTypes(t domain.MediaItemType) string {
	switch t {
	case domain.MediaItemTypeMovie:
		return itemTypeMovie
	case domain.MediaItemTypeShow:
		return itemTypeSeries
	case domain.MediaItemTypeSeason:
		return itemTypeSeason
	case domain.MediaItemTypeEpisode:
		return itemTypeEpisode
	default:
		return itemTypeMovie + "," + itemTypeSeries
	}
}

// MapItem converts a Jellyfin item to a domain item. ok is false for non-video types.
//
// Jellyfin reports a season's ParentId as whatever folder holds it, so the
// hierarchy is rebuilt from SeriesId and SeasonId instead.
func MapItem(item Item, lib domain.LibraryRef) (domain.MediaItem, bool) {
	itemType, ok := MapItemType(item.Type)
	if !ok {
		return domain.MediaItem{}, false
	}

	mi := domain.MediaItem{
		ID:           item.ID,
		Type:         itemType,
		Title:        item.Name,
		Summary:      item.Overview,
		Library:      lib,
		ProviderIDs:  mapProviderIDs(item.ProviderIDs),
		MediaSources: mapMediaSources(item),
		Ratings:      mapRatings(item),
		Genres:       item.Genres,
		Labels:       item.Tags,
		Actors:       mapActors(item.People),
		Index:        item.IndexNumber,
		ParentIndex:  item.ParentIndexNumber,
	}

	// ParentId is never trusted: it is whatever folder holds the item
	switch itemType {
	case domain.MediaItemTypeSeason:
		mi.ParentID = item.SeriesID
		mi.ParentTitle = item.SeriesName
	case domain.MediaItemTypeEpisode:
		mi.ParentID = item.SeasonID
		mi.ParentTitle = item.SeasonName
		mi.GrandparentID = item.SeriesID
		mi.GrandparentTitle = item.SeriesName
	default:
		mi.ParentID = lib.ID
	}

	if t := parseTime(item.DateCreated); t != nil {
		mi.AddedAt = *t
	}
	mi.UpdatedAt = parseTime(item.DateLastSaved)
	mi.OriginallyAvailableAt = parseTime(item.PremiereDate)

	if item.ProductionYear > 0 {
		year := item.ProductionYear
		mi.Year = &year
	}
	if item.RunTimeTicks > 0 {
		ms := item.RunTimeTicks / ticksPerMillisecond
		mi.DurationMs = &ms
	}

	switch itemType {
	case domain.MediaItemTypeShow:
		// ChildCount counts seasons; leaf counts are what callers compare against
		mi.ChildCount = firstNonNil(item.RecursiveItemCount, item.ChildCount)
	case domain.MediaItemTypeSeason:
		mi.ChildCount = firstNonNil(item.ChildCount, item.RecursiveItemCount)
	}
	if mi.ChildCount != nil && item.UserData != nil && item.UserData.UnplayedItemCount != nil {
		watched := max(*mi.ChildCount-*item.UserData.UnplayedItemCount, 0)
		mi.WatchedChildCount = &watched
	}

	return mi, true
}

// MapItems converts items, dropping non-video types
func MapItems(items []Item, lib domain.LibraryRef) []domain.MediaItem {
	result := make([]domain.MediaItem, 0, len(items))
	for _, item := range items {
		if mi, ok := MapItem(item, lib); ok {
			result = append(result, mi)
		}
	}
	return result
}

// MapLibraries converts Jellyfin user views to domain libraries, keeping movie and show libraries
func MapLibraries(items []Item) []domain.MediaLibrary {
	libraries := make([]domain.MediaLibrary, 0, len(items))
	for _, item := range items {
		var libType domain.MediaItemType
		switch item.CollectionType {
		case "movies":
			libType = domain.MediaItemTypeMovie
		case "tvshows":
			libType = domain.MediaItemTypeShow
		default:
			// Skip other library types (music, books, etc.)
			continue
		}
		libraries = append(libraries, domain.MediaLibrary{ID: item.ID, Title: item.Name, Type: libType})
	}
	return libraries
}

// MapUsers converts Jellyfin users, dropping disabled accounts
func MapUsers(users []User) []domain.MediaUser {
	result := make([]domain.MediaUser, 0, len(users))
	for _, u := range users {
		if u.Policy != nil && u.Policy.IsDisabled {
			continue
		}
		result = append(result, domain.MediaUser{ID: u.ID, Name: u.Name, Thumb: u.PrimaryImageTag})
	}
	return result
}

// MapCollection converts a BoxSet
func MapCollection(item Item) domain.MediaCollection {
	c := domain.MediaCollection{
		ID:      item.ID,
		Title:   item.Name,
		Summary: item.Overview,
		AddedAt: parseTime(item.DateCreated),
	}
	if item.ChildCount != nil {
		c.ChildCount = *item.ChildCount
	}
	return c
}

// MapPlaylist converts a playlist item
func MapPlaylist(item Item) domain.MediaPlaylist {
	p := domain.MediaPlaylist{
		ID:      item.ID,
		Title:   item.Name,
		Summary: item.Overview,
		AddedAt: parseTime(item.DateCreated),
	}
	if item.ChildCount != nil {
		p.ItemCount = *item.ChildCount
	}
	return p
}

// MapStatus converts system info
func MapStatus(info SystemInfo, serverURL string) domain.MediaServerStatus {
	return domain.MediaServerStatus{
		MachineID: info.ID,
		Version:   info.Version,
		Name:      info.ServerName,
		Platform:  info.OperatingSystem,
		URL:       serverURL,
	}
}

// MapWatchRecord returns a record when data says the user has the item marked played
func MapWatchRecord(userID, itemID string, data *UserData) (domain.WatchRecord, bool) {
	if data == nil || !data.Played {
		return domain.WatchRecord{}, false
	}
	return domain.WatchRecord{
		UserID:    userID,
		ItemID:    itemID,
		WatchedAt: parseTime(data.LastPlayedDate),
		Progress:  100,
	}, true
}

func mapProviderIDs(ids map[string]string) domain.ProviderIDs {
	var p domain.ProviderIDs
	for k, v := range ids {
		if v == "" {
			continue
		}
		switch strings.ToLower(k) {
		case "imdb":
			p.IMDb = append(p.IMDb, v)
		case "tmdb":
			p.TMDb = append(p.TMDb, v)
		case "tvdb":
			p.TVDb = append(p.TVDb, v)
		}
	}
	return p
}

func mapRatings(item Item) []domain.Rating {
	var ratings []domain.Rating
	if item.CommunityRating != nil {
		ratings = append(ratings, domain.Rating{Source: domain.RatingSourceCommunity, Value: *item.CommunityRating, Type: domain.RatingTypeAudience})
	}
	if item.CriticRating != nil {
		ratings = append(ratings, domain.Rating{Source: domain.RatingSourceCritic, Value: *item.CriticRating, Type: domain.RatingTypeCritic})
	}
	return ratings
}

func mapActors(people []Person) []string {
	var actors []string
	for _, p := range people {
		if p.Type == "Actor" {
			actors = append(actors, p.Name)
		}
	}
	return actors
}

func mapMediaSources(item Item) []domain.MediaSource {
	sources := make([]domain.MediaSource, 0, len(item.MediaSources))
	for _, src := range item.MediaSources {
		ms := domain.MediaSource{
			ID:          src.ID,
			Container:   src.Container,
			SizeBytes:   src.Size,
			BitrateKbps: src.Bitrate / 1000,
			DurationMs:  src.RunTimeTicks / ticksPerMillisecond,
		}

		streams := src.MediaStreams
		if len(streams) == 0 {
			streams = item.MediaStreams
		}
		if video, ok := findStream(streams, "Video"); ok {
			ms.VideoCodec = normalizeCodec(video.Codec)
			ms.Width = video.Width
			ms.Height = video.Height
			ms.VideoResolution = resolutionLabel(video.Width, video.Height)
		}
		if audio, ok := findStream(streams, "Audio"); ok {
			ms.AudioCodec = normalizeCodec(audio.Codec)
			ms.AudioChannels = audio.Channels
		}
		sources = append(sources, ms)
	}
	return sources
}

func findStream(streams []MediaStream, streamType string) (MediaStream, bool) {
	for _, s := range streams {
		if s.Type == streamType {
			return s, true
		}
	}
	return MediaStream{}, false
}

// resolutionLabel buckets a frame size into the labels Plex reports
func resolutionLabel(width, height int) string {
	switch {
	case width >= 3200 || height >= 2000:
		return "4k"
	case width >= 1700 || height >= 1000:
		return "1080"
	case width >= 1200 || height >= 700:
		return "720"
	case height >= 560:
		return "576"
	case height >= 470:
		return "480"
	case width > 0 || height > 0:
		return "sd"
	default:
		return ""
	}
}

// normalizeCodec converts codec names to the lowercase names Plex uses
func normalizeCodec(codec string) string {
	switch c := strings.ToLower(codec); c {
	case "hevc", "h265":
		return "hevc"
	case "h264", "avc":
		return "h264"
	default:
		return c
	}
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil || t.Year() <= 1 {
		return nil
	}
	return &t
}

func firstNonNil(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
