package jellyfin

// SystemInfo is returned by /System/Info/Public and /System/Info
type SystemInfo struct {
	LocalAddress          string `json:"LocalAddress"`
	ServerName            string `json:"ServerName"`
	Version               string `json:"Version"`
	ProductName           string `json:"ProductName"`
	OperatingSystem       string `json:"OperatingSystem"`
	ID                    string `json:"Id"`
	StartupWizardComplete bool   `json:"StartupWizardCompleted"`
}

// User represents a Jellyfin user
type User struct {
	ID              string      `json:"Id"`
	Name            string      `json:"Name"`
	ServerID        string      `json:"ServerId"`
	PrimaryImageTag string      `json:"PrimaryImageTag,omitempty"`
	Policy          *UserPolicy `json:"Policy,omitempty"`
}

// UserPolicy carries the permission flags used to pick an admin user
type UserPolicy struct {
	IsAdministrator bool `json:"IsAdministrator"`
	IsDisabled      bool `json:"IsDisabled"`
}

// AuthResponse is the answer of /Users/AuthenticateByName
type AuthResponse struct {
	User        User   `json:"User"`
	AccessToken string `json:"AccessToken"`
	ServerID    string `json:"ServerId"`
}

// ItemsResponse represents a paginated list of items from Jellyfin
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
	StartIndex       int    `json:"StartIndex"`
}

// Item represents a media item from Jellyfin (movie, series, season, episode, box set, playlist, folder)
type Item struct {
	ID                 string            `json:"Id"`
	Name               string            `json:"Name"`
	SortName           string            `json:"SortName,omitempty"`
	Overview           string            `json:"Overview,omitempty"`
	Type               string            `json:"Type"`
	IsFolder           bool              `json:"IsFolder,omitempty"`
	CollectionType     string            `json:"CollectionType,omitempty"` // For libraries: "movies", "tvshows"
	DateCreated        string            `json:"DateCreated,omitempty"`
	DateLastSaved      string            `json:"DateLastSaved,omitempty"`
	DateLastMediaAdded string            `json:"DateLastMediaAdded,omitempty"`
	PremiereDate       string            `json:"PremiereDate,omitempty"`
	ProductionYear     int               `json:"ProductionYear,omitempty"`
	RunTimeTicks       int64             `json:"RunTimeTicks,omitempty"` // Duration in 100-nanosecond units
	CommunityRating    *float64          `json:"CommunityRating,omitempty"`
	CriticRating       *float64          `json:"CriticRating,omitempty"`
	OfficialRating     string            `json:"OfficialRating,omitempty"`
	ProviderIDs        map[string]string `json:"ProviderIds,omitempty"`
	Genres             []string          `json:"Genres,omitempty"`
	Tags               []string          `json:"Tags,omitempty"`
	People             []Person          `json:"People,omitempty"`
	Studios            []NameID          `json:"Studios,omitempty"`
	ParentID           string            `json:"ParentId,omitempty"`
	SeriesID           string            `json:"SeriesId,omitempty"`
	SeriesName         string            `json:"SeriesName,omitempty"`
	SeasonID           string            `json:"SeasonId,omitempty"`
	SeasonName         string            `json:"SeasonName,omitempty"`
	ParentIndexNumber  *int              `json:"ParentIndexNumber,omitempty"` // Season number
	IndexNumber        *int              `json:"IndexNumber,omitempty"`       // Episode or season number
	ChildCount         *int              `json:"ChildCount,omitempty"`
	RecursiveItemCount *int              `json:"RecursiveItemCount,omitempty"`
	UserData           *UserData         `json:"UserData,omitempty"`
	MediaSources       []MediaSource     `json:"MediaSources,omitempty"`
	MediaStreams       []MediaStream     `json:"MediaStreams,omitempty"`
	Path               string            `json:"Path,omitempty"`
	Container          string            `json:"Container,omitempty"`
}

// Person is a cast or crew entry
type Person struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
	Role string `json:"Role,omitempty"`
	Type string `json:"Type"` // "Actor", "Director", ...
}

// NameID is a Jellyfin name/id pair (studios, genre items)
type NameID struct {
	Name string `json:"Name"`
	ID   string `json:"Id"`
}

// UserData contains user-specific data for an item (watch status, progress)
type UserData struct {
	PlaybackPositionTicks int64   `json:"PlaybackPositionTicks"` // Progress in 100-nanosecond units
	PlayCount             int     `json:"PlayCount"`
	IsFavorite            bool    `json:"IsFavorite"`
	Played                bool    `json:"Played"`
	PlayedPercentage      float64 `json:"PlayedPercentage,omitempty"`
	LastPlayedDate        string  `json:"LastPlayedDate,omitempty"`
	UnplayedItemCount     *int    `json:"UnplayedItemCount,omitempty"` // For containers like shows/seasons
}

// MediaSource represents a media source (file) for an item
type MediaSource struct {
	ID           string        `json:"Id"`
	Path         string        `json:"Path"`
	Protocol     string        `json:"Protocol"` // "File" or "Http"
	Container    string        `json:"Container"`
	Size         int64         `json:"Size"`
	Bitrate      int           `json:"Bitrate,omitempty"` // bits per second
	Name         string        `json:"Name"`
	RunTimeTicks int64         `json:"RunTimeTicks"`
	MediaStreams []MediaStream `json:"MediaStreams,omitempty"`
}

// MediaStream represents a video, audio, or subtitle stream
type MediaStream struct {
	Codec        string `json:"Codec"`
	Language     string `json:"Language,omitempty"`
	DisplayTitle string `json:"DisplayTitle,omitempty"`
	Type         string `json:"Type"` // "Video", "Audio", "Subtitle"
	Index        int    `json:"Index"`
	IsDefault    bool   `json:"IsDefault"`
	Height       int    `json:"Height,omitempty"`
	Width        int    `json:"Width,omitempty"`
	BitRate      int    `json:"BitRate,omitempty"`
	Channels     int    `json:"Channels,omitempty"`
}

// CollectionCreated is the body returned by POST /Collections
type CollectionCreated struct {
	ID string `json:"Id"`
}
