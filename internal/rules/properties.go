package rules

import "sort"

// ValueType is the shape of a resolved property value
type ValueType string

const (
	ValueNumber   ValueType = "number"   // float64 or int
	ValueDate     ValueType = "date"     // time.Time
	ValueText     ValueType = "text"     // string
	ValueTextList ValueType = "textList" // []string
	ValueBool     ValueType = "bool"
)

// Property describes one resolvable rule property. IDs are stable and stored
// in saved rules, so entries are only ever appended.
type Property struct {
	ID        int
	Name      string
	Type      ValueType
	HumanName string
}

// Property names used by the resolvers
const (
	PropAddDate                        = "addDate"
	PropSeenBy                         = "seenBy"
	PropReleaseDate                    = "releaseDate"
	PropUserRating                     = "rating_user"
	PropPeople                         = "people"
	PropViewCount                      = "viewCount"
	PropCollections                    = "collections"
	PropLastViewedAt                   = "lastViewedAt"
	PropFileVideoResolution            = "fileVideoResolution"
	PropFileBitrate                    = "fileBitrate"
	PropFileVideoCodec                 = "fileVideoCodec"
	PropGenre                          = "genre"
	PropAllEpisodesSeenBy              = "sw_allEpisodesSeenBy"
	PropLastWatched                    = "sw_lastWatched"
	PropEpisodes                       = "sw_episodes"
	PropViewedEpisodes                 = "sw_viewedEpisodes"
	PropLastEpisodeAddedAt             = "sw_lastEpisodeAddedAt"
	PropAmountOfViews                  = "sw_amountOfViews"
	PropWatchers                       = "sw_watchers"
	PropCollectionNames                = "collection_names"
	PropPlaylists                      = "playlists"
	PropPlaylistNames                  = "playlist_names"
	PropCriticRating                   = "rating_critics"
	PropAudienceRating                 = "rating_audience"
	PropLabels                         = "labels"
	PropCollectionsIncludingParent     = "sw_collections_including_parent"
	PropCollectionNamesIncludingParent = "sw_collection_names_including_parent"
	PropWatchlistedBy                  = "watchlist_isListedByUsers"
	PropWatchlisted                    = "watchlist_isWatchlisted"
	PropLastEpisodeAiredAt             = "sw_lastEpisodeAiredAt"
	PropIMDbRating                     = "rating_imdb"
	PropRottenTomatoesCriticRating     = "rating_rottenTomatoesCritic"
	PropRottenTomatoesAudienceRating   = "rating_rottenTomatoesAudience"
	PropTMDbRating                     = "rating_tmdb"
	PropFileSize                       = "fileSize"
	PropTitle                          = "title"
	PropYear                           = "year"
	PropDurationMinutes                = "durationMinutes"
)

// Properties is the catalog shared by every backend
var Properties = []Property{
	{0, PropAddDate, ValueDate, "Date added"},
	{1, PropSeenBy, ValueTextList, "Viewed by (username)"},
	{2, PropReleaseDate, ValueDate, "Release date"},
	{3, PropUserRating, ValueNumber, "User rating (scale 1-10)"},
	{4, PropPeople, ValueTextList, "People involved"},
	{5, PropViewCount, ValueNumber, "Times viewed"},
	{6, PropCollections, ValueNumber, "Present in amount of other collections"},
	{7, PropLastViewedAt, ValueDate, "Last view date"},
	{8, PropFileVideoResolution, ValueText, "[list] Video resolution"},
	{9, PropFileBitrate, ValueNumber, "Bitrate"},
	{10, PropFileVideoCodec, ValueText, "Video codec"},
	{11, PropGenre, ValueTextList, "List of genres"},
	{12, PropAllEpisodesSeenBy, ValueTextList, "Users that saw all available episodes"},
	{13, PropLastWatched, ValueDate, "Newest episode view date"},
	{14, PropEpisodes, ValueNumber, "Amount of available episodes"},
	{15, PropViewedEpisodes, ValueNumber, "Amount of watched episodes"},
	{16, PropLastEpisodeAddedAt, ValueDate, "Last episode added at"},
	{17, PropAmountOfViews, ValueNumber, "Total views"},
	{18, PropWatchers, ValueTextList, "Users that watch the show/season/episode"},
	{19, PropCollectionNames, ValueTextList, "Collection names"},
	{20, PropPlaylists, ValueNumber, "Present in amount of playlists"},
	{21, PropPlaylistNames, ValueTextList, "Playlist names"},
	{22, PropCriticRating, ValueNumber, "Critics rating (scale 1-10)"},
	{23, PropAudienceRating, ValueNumber, "Audience rating (scale 1-10)"},
	{24, PropLabels, ValueTextList, "Labels"},
	{25, PropCollectionsIncludingParent, ValueNumber, "Present in amount of other collections (incl. parents)"},
	{26, PropCollectionNamesIncludingParent, ValueTextList, "Collection names (incl. parents)"},
	{27, PropWatchlistedBy, ValueTextList, "[list] Watchlisted by (username)"},
	{28, PropWatchlisted, ValueBool, "Is watchlisted"},
	{29, PropLastEpisodeAiredAt, ValueDate, "Last episode aired at"},
	{30, PropIMDbRating, ValueNumber, "IMDb rating (scale 1-10)"},
	{31, PropRottenTomatoesCriticRating, ValueNumber, "Rotten Tomatoes critic rating (scale 1-10)"},
	{32, PropRottenTomatoesAudienceRating, ValueNumber, "Rotten Tomatoes audience rating (scale 1-10)"},
	{33, PropTMDbRating, ValueNumber, "TMDb rating (scale 1-10)"},
	{34, PropFileSize, ValueNumber, "File size in bytes"},
	{35, PropTitle, ValueText, "Title"},
	{36, PropYear, ValueNumber, "Year"},
	{37, PropDurationMinutes, ValueNumber, "Duration in minutes"},
}

var (
	propertiesByID   = map[int]Property{}
	propertiesByName = map[string]Property{}
)

func init() {
	for _, p := range Properties {
		propertiesByID[p.ID] = p
		propertiesByName[p.Name] = p
	}
}

// PropertyByID looks up a catalog entry
func PropertyByID(id int) (Property, bool) {
	p, ok := propertiesByID[id]
	return p, ok
}

// PropertyByName looks up a catalog entry by its name
func PropertyByName(name string) (Property, bool) {
	p, ok := propertiesByName[name]
	return p, ok
}

// PropertyNames returns every property name, sorted
func PropertyNames() []string {
	names := make([]string, 0, len(Properties))
	for _, p := range Properties {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}
