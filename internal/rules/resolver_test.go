package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/mediaserver/jellyfin"
	"github.com/mmcdole/mediarr/internal/mediaserver/plex"
	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

var (
	tvLib    = domain.LibraryRef{ID: "2", Title: "TV Shows"}
	movieLib = domain.LibraryRef{ID: "1", Title: "Movies"}
	day      = func(d int) time.Time { return time.Date(2024, 3, d, 20, 0, 0, 0, time.UTC) }
)

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(v int) *int              { return &v }
func int64Ptr(v int64) *int64        { return &v }
func floatPtr(v float64) *float64    { return &v }

func watched(user string, at time.Time) domain.WatchRecord {
	return domain.WatchRecord{UserID: user, WatchedAt: timePtr(at), Progress: 100}
}

// seedLibrary builds one movie and a show with two seasons and three episodes
func seedLibrary(f *fakeServer) {
	f.users = []domain.MediaUser{{ID: "1", Name: "alice"}, {ID: "2", Name: "bob"}, {ID: "3", Name: "carol"}}

	f.add(
		domain.MediaItem{
			ID: "10", Type: domain.MediaItemTypeMovie, ParentID: movieLib.ID, Library: movieLib,
			Title: "Heat", AddedAt: day(1), Year: intPtr(1995), DurationMs: int64Ptr(10_200_000),
			Ratings: []domain.Rating{
				{Source: domain.RatingSourceIMDb, Type: domain.RatingTypeAudience, Value: 8.3},
				{Source: domain.RatingSourceRottenTomatoes, Type: domain.RatingTypeCritic, Value: 8.8},
			},
			MediaSources: []domain.MediaSource{{ID: "m1", SizeBytes: 4000, VideoResolution: "1080", VideoCodec: "h264", BitrateKbps: 8000}},
			Genres:       []string{"Crime"},
		},
		domain.MediaItem{ID: "100", Type: domain.MediaItemTypeShow, ParentID: tvLib.ID, Library: tvLib, Title: "Severance",
			Genres: []string{"Drama", "Sci-Fi"}, Actors: []string{"Adam Scott"}},
		domain.MediaItem{ID: "200", Type: domain.MediaItemTypeSeason, ParentID: "100", Library: tvLib, Title: "Season 1"},
		domain.MediaItem{ID: "201", Type: domain.MediaItemTypeSeason, ParentID: "100", Library: tvLib, Title: "Season 2"},
		domain.MediaItem{ID: "301", Type: domain.MediaItemTypeEpisode, ParentID: "200", GrandparentID: "100", Library: tvLib,
			AddedAt: day(2), OriginallyAvailableAt: timePtr(day(1)), MediaSources: []domain.MediaSource{{SizeBytes: 100}}},
		domain.MediaItem{ID: "302", Type: domain.MediaItemTypeEpisode, ParentID: "200", GrandparentID: "100", Library: tvLib,
			AddedAt: day(3), OriginallyAvailableAt: timePtr(day(8)), MediaSources: []domain.MediaSource{{SizeBytes: 200}}},
		domain.MediaItem{ID: "303", Type: domain.MediaItemTypeEpisode, ParentID: "201", GrandparentID: "100", Library: tvLib,
			AddedAt: day(9), OriginallyAvailableAt: timePtr(day(4)), MediaSources: []domain.MediaSource{{SizeBytes: 300}}},
	)

	f.seenBy["301"] = []string{"1", "2"}
	f.seenBy["302"] = []string{"1", "2", "3"}
	f.seenBy["303"] = []string{"2", "1"}
	f.history["301"] = []domain.WatchRecord{watched("1", day(10)), watched("2", day(11))}
	f.history["302"] = []domain.WatchRecord{watched("1", day(12)), watched("3", day(13))}
	f.history["303"] = []domain.WatchRecord{watched("2", day(20))}
}

func newTestResolver(t *testing.T, serverType domain.ServerType) (*Resolver, *fakeServer) {
	t.Helper()
	f := newFakeServer(serverType)
	seedLibrary(f)
	r, err := NewResolver(f, cache.New(nil), nil)
	require.NoError(t, err)
	return r, f
}

func get(t *testing.T, r *Resolver, name, itemID string, group *RuleGroupContext) Result {
	t.Helper()
	prop, ok := PropertyByName(name)
	require.True(t, ok, name)
	return r.Get(context.Background(), prop.ID, domain.MediaItem{ID: itemID}, nil, group)
}

func value(t *testing.T, res Result) any {
	t.Helper()
	v, ok := res.Value()
	require.True(t, ok, "expected ok result, got %s", res)
	return v
}

func TestAllEpisodesSeenBy(t *testing.T) {
	r, _ := newTestResolver(t, domain.ServerTypePlex)

	assert.Equal(t, []string{"alice", "bob"}, value(t, get(t, r, PropAllEpisodesSeenBy, "100", nil)))
	assert.Equal(t, []string{"alice", "bob"}, value(t, get(t, r, PropAllEpisodesSeenBy, "201", nil)))
	assert.Equal(t, []string{"alice", "bob", "carol"}, value(t, get(t, r, PropAllEpisodesSeenBy, "302", nil)))
	assert.True(t, get(t, r, PropAllEpisodesSeenBy, "10", nil).IsNotApplicable())
}

func TestAllEpisodesSeenByIgnoresUnknownUsers(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)
	f.seenBy["303"] = append(f.seenBy["303"], "99")
	f.seenBy["301"] = append(f.seenBy["301"], "99")
	f.seenBy["302"] = append(f.seenBy["302"], "99")

	assert.Equal(t, []string{"alice", "bob"}, value(t, get(t, r, PropAllEpisodesSeenBy, "100", nil)))
}

func TestHierarchyAggregations(t *testing.T) {
	r, _ := newTestResolver(t, domain.ServerTypePlex)

	assert.Equal(t, 5, value(t, get(t, r, PropAmountOfViews, "100", nil)))
	assert.Equal(t, 4, value(t, get(t, r, PropAmountOfViews, "200", nil)))
	assert.Equal(t, 3, value(t, get(t, r, PropEpisodes, "100", nil)))
	assert.Equal(t, 3, value(t, get(t, r, PropViewedEpisodes, "100", nil)))
	assert.Equal(t, day(20), value(t, get(t, r, PropLastWatched, "100", nil)))
	assert.Equal(t, day(9), value(t, get(t, r, PropLastEpisodeAddedAt, "100", nil)))
	assert.Equal(t, day(8), value(t, get(t, r, PropLastEpisodeAiredAt, "100", nil)))
	assert.Equal(t, []string{"alice", "bob", "carol"}, value(t, get(t, r, PropWatchers, "200", nil)))

	for _, name := range []string{PropAmountOfViews, PropEpisodes, PropLastWatched, PropLastEpisodeAiredAt} {
		assert.True(t, get(t, r, name, "10", nil).IsNotApplicable(), name)
	}
}

func TestHierarchyEnumerationErrorFails(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)
	f.childrenErr["201"] = errors.New("timeout")

	assert.True(t, get(t, r, PropEpisodes, "100", nil).IsFailed())
	assert.Equal(t, 2, value(t, get(t, r, PropEpisodes, "200", nil)))
}

func TestItemLevelProperties(t *testing.T) {
	r, _ := newTestResolver(t, domain.ServerTypePlex)

	assert.Equal(t, day(1), value(t, get(t, r, PropAddDate, "10", nil)))
	assert.Equal(t, "Heat", value(t, get(t, r, PropTitle, "10", nil)))
	assert.Equal(t, 1995, value(t, get(t, r, PropYear, "10", nil)))
	assert.Equal(t, 170, value(t, get(t, r, PropDurationMinutes, "10", nil)))
	assert.Equal(t, "1080", value(t, get(t, r, PropFileVideoResolution, "10", nil)))
	assert.Equal(t, "h264", value(t, get(t, r, PropFileVideoCodec, "10", nil)))
	assert.Equal(t, 8000, value(t, get(t, r, PropFileBitrate, "10", nil)))
	assert.Equal(t, int64(4000), value(t, get(t, r, PropFileSize, "10", nil)))
	assert.Equal(t, int64(600), value(t, get(t, r, PropFileSize, "100", nil)))
	assert.Equal(t, []string{}, value(t, get(t, r, PropLabels, "10", nil)))
	assert.True(t, get(t, r, PropReleaseDate, "10", nil).IsNotApplicable())
}

func TestRatings(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)

	assert.Equal(t, 0.0, value(t, get(t, r, PropUserRating, "10", nil)))
	assert.Equal(t, 8.3, value(t, get(t, r, PropIMDbRating, "10", nil)))
	assert.Equal(t, 8.8, value(t, get(t, r, PropRottenTomatoesCriticRating, "10", nil)))
	assert.Equal(t, 8.8, value(t, get(t, r, PropCriticRating, "10", nil)))
	assert.True(t, get(t, r, PropTMDbRating, "10", nil).IsNotApplicable())
	assert.True(t, get(t, r, PropRottenTomatoesAudienceRating, "10", nil).IsNotApplicable())

	movie := f.items["10"]
	movie.UserRating = floatPtr(7)
	movie.Ratings = append(movie.Ratings, domain.Rating{Source: domain.RatingSourceCommunity, Type: domain.RatingTypeAudience, Value: 6.1})
	f.items["10"] = movie

	assert.Equal(t, 7.0, value(t, get(t, r, PropUserRating, "10", nil)))
	assert.Equal(t, 6.1, value(t, get(t, r, PropAudienceRating, "10", nil)))
}

func TestTriState(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)
	f.add(domain.MediaItem{ID: "11", Type: domain.MediaItemTypeMovie, Library: movieLib})

	res := get(t, r, PropFileVideoResolution, "11", nil)
	assert.True(t, res.IsNotApplicable())
	_, ok := res.Value()
	assert.False(t, ok)

	f.metadataErr["11"] = errors.New("connection reset")
	assert.True(t, get(t, r, PropTitle, "11", nil).IsFailed())

	assert.True(t, get(t, r, PropTitle, "does-not-exist", nil).IsFailed())
}

func TestSeenByMapsUserNames(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)
	f.seenBy["10"] = []string{"3", "42"}
	f.add(domain.MediaItem{ID: "11", Type: domain.MediaItemTypeMovie, Library: movieLib})

	assert.Equal(t, []string{"carol", "42"}, value(t, get(t, r, PropSeenBy, "10", nil)))
	assert.Equal(t, []string{"alice", "bob", "carol"}, value(t, get(t, r, PropSeenBy, "100", nil)))
	assert.Equal(t, []string{}, value(t, get(t, r, PropSeenBy, "11", nil)))
}

func TestViewCountAndLastViewed(t *testing.T) {
	r, _ := newTestResolver(t, domain.ServerTypePlex)

	assert.Equal(t, 2, value(t, get(t, r, PropViewCount, "301", nil)))
	assert.Equal(t, 5, value(t, get(t, r, PropViewCount, "100", nil)))
	assert.Equal(t, day(13), value(t, get(t, r, PropLastViewedAt, "302", nil)))
	assert.True(t, get(t, r, PropLastViewedAt, "10", nil).IsNotApplicable())
}

func TestParentFetchedLazily(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)

	assert.Equal(t, []string{"Drama", "Sci-Fi"}, value(t, get(t, r, PropGenre, "301", nil)))
	assert.Equal(t, 2, f.count("GetMetadata"), "episode plus its show, never the season")

	f.calls = map[string]int{}
	assert.Equal(t, "", value(t, get(t, r, PropTitle, "301", nil)))
	assert.Equal(t, 1, f.count("GetMetadata"))

	f.calls = map[string]int{}
	assert.Equal(t, []string{"Adam Scott"}, value(t, get(t, r, PropPeople, "200", nil)))
	assert.Equal(t, 2, f.count("GetMetadata"))
}

func TestCollectionExclusionsShareCache(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)
	f.collections = []domain.MediaCollection{{ID: "c1", Title: "Leaving Soon"}, {ID: "c2", Title: "Favorites"}, {ID: "c3", Title: "Empty"}}
	f.members["c1"] = []string{"10"}
	f.members["c2"] = []string{"10", "100"}

	groupA := &RuleGroupContext{ExcludedCollections: []string{"  leaving SOON "}}
	groupB := &RuleGroupContext{}

	assert.Equal(t, []string{"Favorites"}, value(t, get(t, r, PropCollectionNames, "10", groupA)))
	assert.Equal(t, []string{"Leaving Soon", "Favorites"}, value(t, get(t, r, PropCollectionNames, "10", groupB)))
	assert.Equal(t, 2, value(t, get(t, r, PropCollections, "10", nil)))
	assert.Equal(t, 1, value(t, get(t, r, PropCollections, "10", groupA)))

	assert.Equal(t, 1, f.count("GetCollections"))
	assert.Equal(t, 3, f.count("GetCollectionChildren"))
}

func TestAdapterResetDropsMemberships(t *testing.T) {
	noSettings := domain.SettingsFunc(func() (domain.Settings, bool) { return domain.Settings{}, false })
	for _, serverType := range []domain.ServerType{domain.ServerTypePlex, domain.ServerTypeJellyfin} {
		t.Run(string(serverType), func(t *testing.T) {
			store := cache.New(nil)
			var adapter domain.MediaServer
			switch serverType {
			case domain.ServerTypePlex:
				adapter = plex.NewAdapter(noSettings, store, shared.TransportOptions{}, nil)
			default:
				adapter = jellyfin.NewAdapter(noSettings, store, shared.TransportOptions{}, nil)
			}

			f := newFakeServer(serverType)
			seedLibrary(f)
			r, err := NewResolver(f, store, nil)
			require.NoError(t, err)

			f.collections = []domain.MediaCollection{{ID: "c1", Title: "Old Server Collection"}}
			f.members["c1"] = []string{"10"}
			assert.Equal(t, []string{"Old Server Collection"}, value(t, get(t, r, PropCollectionNames, "10", nil)))

			f.collections = nil
			adapter.Uninitialize()
			assert.Equal(t, []string{}, value(t, get(t, r, PropCollectionNames, "10", nil)))

			f.collections = []domain.MediaCollection{{ID: "c2", Title: "Favorites"}}
			f.members["c2"] = []string{"10"}
			assert.Equal(t, []string{}, value(t, get(t, r, PropCollectionNames, "10", nil)), "served from cache")
			adapter.ResetMetadataCache(context.Background(), "10")
			assert.Equal(t, []string{"Favorites"}, value(t, get(t, r, PropCollectionNames, "10", nil)))
		})
	}
}

func TestCollectionsIncludingParent(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)
	f.collections = []domain.MediaCollection{{ID: "c1", Title: "Prestige TV"}, {ID: "c2", Title: "Binge"}}
	f.members["c1"] = []string{"100"}
	f.members["c2"] = []string{"301", "100"}

	assert.Equal(t, []string{"Binge"}, value(t, get(t, r, PropCollectionNames, "301", nil)))
	assert.Equal(t, []string{"Binge", "Prestige TV"}, value(t, get(t, r, PropCollectionNamesIncludingParent, "301", nil)))
	assert.Equal(t, 2, value(t, get(t, r, PropCollectionsIncludingParent, "301", nil)))
	assert.Equal(t, 1, value(t, get(t, r, PropCollectionsIncludingParent, "301", &RuleGroupContext{ExcludedCollections: []string{"binge"}})))
}

func TestPlaylists(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)
	f.playlists = []domain.MediaPlaylist{{ID: "p1", Title: "Weekend"}, {ID: "p2", Title: "Movie Night"}}
	f.playlisted["p1"] = []string{"302"}
	f.playlisted["p2"] = []string{"10"}

	assert.Equal(t, []string{"Weekend"}, value(t, get(t, r, PropPlaylistNames, "100", nil)))
	assert.Equal(t, 1, value(t, get(t, r, PropPlaylists, "200", nil)))
	assert.Equal(t, 0, value(t, get(t, r, PropPlaylists, "201", nil)))
	assert.Equal(t, []string{"Movie Night"}, value(t, get(t, r, PropPlaylistNames, "10", nil)))
}

func TestWatchlistUsesShow(t *testing.T) {
	f := newFakeServer(domain.ServerTypePlex)
	seedLibrary(f)
	w := &watchlistServer{fakeServer: f, lists: map[string][]string{"100": {"alice"}}}
	r := NewPlexResolver(w, cache.New(nil), nil)

	assert.Equal(t, []string{"alice"}, value(t, get(t, r, PropWatchlistedBy, "301", nil)))
	assert.Equal(t, true, value(t, get(t, r, PropWatchlisted, "200", nil)))
	assert.Equal(t, false, value(t, get(t, r, PropWatchlisted, "10", nil)))
	assert.Equal(t, 3, f.count("WatchlistedBy"))
}

func TestPlexWithoutWatchlistProviderIsNeutral(t *testing.T) {
	r, _ := newTestResolver(t, domain.ServerTypePlex)
	assert.Equal(t, false, value(t, get(t, r, PropWatchlisted, "10", nil)))
	assert.Equal(t, []string{}, value(t, get(t, r, PropWatchlistedBy, "10", nil)))
}

func TestJellyfinUnsupportedSkipsServer(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypeJellyfin)

	assert.Equal(t, []string{}, value(t, get(t, r, PropWatchlistedBy, "10", nil)))
	assert.Equal(t, false, value(t, get(t, r, PropWatchlisted, "10", nil)))
	for _, name := range []string{PropIMDbRating, PropTMDbRating, PropRottenTomatoesCriticRating, PropRottenTomatoesAudienceRating} {
		assert.True(t, get(t, r, name, "10", nil).IsNotApplicable(), name)
	}
	assert.Zero(t, f.total())

	assert.Equal(t, 8.8, value(t, get(t, r, PropCriticRating, "10", nil)))
}

func TestNotReadyMakesNoCalls(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)
	f.Uninitialize()

	for _, p := range Properties {
		res := r.Get(context.Background(), p.ID, domain.MediaItem{ID: "100"}, nil, nil)
		assert.True(t, res.IsNotApplicable(), p.Name)
	}
	assert.Zero(t, f.total())
}

func TestUnknownPropertyIsNotApplicable(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)

	assert.True(t, r.Get(context.Background(), 999, domain.MediaItem{ID: "10"}, nil, nil).IsNotApplicable())
	assert.True(t, r.Get(context.Background(), -1, domain.MediaItem{ID: "10"}, nil, nil).IsNotApplicable())
	assert.Zero(t, f.total())
}

func TestPanicBecomesFailed(t *testing.T) {
	r, f := newTestResolver(t, domain.ServerTypePlex)
	f.panicOn = "GetItemSeenBy"

	assert.True(t, get(t, r, PropSeenBy, "10", nil).IsFailed())
	assert.Equal(t, "Heat", value(t, get(t, r, PropTitle, "10", nil)))
}

func TestDataTypeDoesNotOverrideItem(t *testing.T) {
	r, _ := newTestResolver(t, domain.ServerTypePlex)
	season := domain.MediaItemTypeSeason
	prop, _ := PropertyByName(PropEpisodes)

	res := r.Get(context.Background(), prop.ID, domain.MediaItem{ID: "100", Type: domain.MediaItemTypeMovie}, &season, nil)
	assert.Equal(t, 3, value(t, res))
}

func TestNewResolverRejectsUnknownBackend(t *testing.T) {
	_, err := NewResolver(newFakeServer("emby"), cache.New(nil), nil)
	assert.Error(t, err)
}
