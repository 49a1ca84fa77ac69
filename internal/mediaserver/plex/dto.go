package plex

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// flexString decodes a JSON string or number. Plex sends librarySectionID as a
// number on some endpoints and a string on others.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexBool decodes true/false, 0/1 and "0"/"1"
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	switch s {
	case "", "null":
		*f = false
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*f = flexBool(b)
	return nil
}

// MediaContainer is the root container for Plex API responses
type MediaContainer struct {
	Size                int         `json:"size"`
	TotalSize           int         `json:"totalSize,omitempty"`
	Offset              int         `json:"offset,omitempty"`
	Identifier          string      `json:"identifier,omitempty"`
	MachineIdentifier   string      `json:"machineIdentifier,omitempty"`
	Version             string      `json:"version,omitempty"`
	FriendlyName        string      `json:"friendlyName,omitempty"`
	Platform            string      `json:"platform,omitempty"`
	LibrarySectionID    flexString  `json:"librarySectionID,omitempty"`
	LibrarySectionTitle string      `json:"librarySectionTitle,omitempty"`
	Directory           []Directory `json:"Directory,omitempty"`
	Metadata            []Metadata  `json:"Metadata,omitempty"`
	Account             []Account   `json:"Account,omitempty"`
}

// Guid represents an external identifier (IMDB, TMDB, TVDB, etc.)
type Guid struct {
	ID string `json:"id"` // e.g. "imdb://tt1234567", "tmdb://12345", "tvdb://12345"
}

// Rating represents a rating from an external source
type Rating struct {
	Image string  `json:"image,omitempty"` // e.g. "imdb://image.rating"
	Type  string  `json:"type,omitempty"`  // "audience" or "critic"
	Value float64 `json:"value,omitempty"`
}

// Tag is a named tag entry (Genre, Label, Role, Collection)
type Tag struct {
	ID  int    `json:"id,omitempty"`
	Tag string `json:"tag"`
}

// Directory represents a library section
type Directory struct {
	Key              string `json:"key"`
	Type             string `json:"type"`
	Title            string `json:"title"`
	UUID             string `json:"uuid,omitempty"`
	UpdatedAt        int64  `json:"updatedAt,omitempty"`
	CreatedAt        int64  `json:"createdAt,omitempty"`
	ContentChangedAt int64  `json:"contentChangedAt,omitempty"`
}

// Metadata represents a media item (movie, show, season, episode, collection, playlist)
type Metadata struct {
	RatingKey             string     `json:"ratingKey"`
	Key                   string     `json:"key"`
	ParentRatingKey       string     `json:"parentRatingKey,omitempty"`
	GrandparentRatingKey  string     `json:"grandparentRatingKey,omitempty"`
	GUID                  string     `json:"guid,omitempty"` // Plex internal GUID
	Guids                 []Guid     `json:"Guid,omitempty"` // External IDs (IMDB, TMDB, TVDB)
	Type                  string     `json:"type"`
	Subtype               string     `json:"subtype,omitempty"` // collections: "movie" or "show"
	Title                 string     `json:"title"`
	TitleSort             string     `json:"titleSort,omitempty"`
	GrandparentTitle      string     `json:"grandparentTitle,omitempty"`
	ParentTitle           string     `json:"parentTitle,omitempty"`
	Summary               string     `json:"summary,omitempty"`
	Index                 *int       `json:"index,omitempty"`
	ParentIndex           *int       `json:"parentIndex,omitempty"`
	Rating                float64    `json:"rating,omitempty"`         // Critic rating
	AudienceRating        float64    `json:"audienceRating,omitempty"` // Audience rating
	UserRating            *float64   `json:"userRating,omitempty"`
	Ratings               []Rating   `json:"Rating,omitempty"` // External ratings
	ViewCount             int        `json:"viewCount,omitempty"`
	LastViewedAt          int64      `json:"lastViewedAt,omitempty"`
	Year                  int        `json:"year,omitempty"`
	Duration              int64      `json:"duration,omitempty"`
	OriginallyAvailableAt string     `json:"originallyAvailableAt,omitempty"`
	AddedAt               int64      `json:"addedAt,omitempty"`
	UpdatedAt             int64      `json:"updatedAt,omitempty"`
	ChildCount            *int       `json:"childCount,omitempty"`
	LeafCount             *int       `json:"leafCount,omitempty"`
	ViewedLeafCount       *int       `json:"viewedLeafCount,omitempty"`
	Smart                 flexBool   `json:"smart,omitempty"`
	LibrarySectionID      flexString `json:"librarySectionID,omitempty"`
	LibrarySectionTitle   string     `json:"librarySectionTitle,omitempty"`
	Genre                 []Tag      `json:"Genre,omitempty"`
	Label                 []Tag      `json:"Label,omitempty"`
	Role                  []Tag      `json:"Role,omitempty"`
	Media                 []Media    `json:"Media,omitempty"`
}

// Media represents media information (video streams, codecs, etc.)
type Media struct {
	ID              int    `json:"id"`
	Duration        int64  `json:"duration,omitempty"`
	Bitrate         int    `json:"bitrate,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	AudioChannels   int    `json:"audioChannels,omitempty"`
	AudioCodec      string `json:"audioCodec,omitempty"`
	VideoCodec      string `json:"videoCodec,omitempty"`
	VideoResolution string `json:"videoResolution,omitempty"`
	Container       string `json:"container,omitempty"`
	Part            []Part `json:"Part,omitempty"`
}

// Part represents a media file part
type Part struct {
	ID        int    `json:"id"`
	Key       string `json:"key"`
	File      string `json:"file,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Container string `json:"container,omitempty"`
}

// Account is a server-local account from /accounts
type Account struct {
	ID    int    `json:"id"`
	Key   string `json:"key,omitempty"`
	Name  string `json:"name"`
	Thumb string `json:"thumb,omitempty"`
}

// HistoryEntry is one play event from /status/sessions/history/all
type HistoryEntry struct {
	HistoryKey           string `json:"historyKey"`
	RatingKey            string `json:"ratingKey"`
	ParentRatingKey      string `json:"parentRatingKey,omitempty"`
	GrandparentRatingKey string `json:"grandparentRatingKey,omitempty"`
	AccountID            int    `json:"accountID"`
	ViewedAt             int64  `json:"viewedAt"`
	Type                 string `json:"type"`
}

// HistoryContainer wraps history entries, which Plex returns under Metadata
type HistoryContainer struct {
	MediaContainer struct {
		Size     int            `json:"size"`
		Metadata []HistoryEntry `json:"Metadata,omitempty"`
	} `json:"MediaContainer"`
}

// APIResponse wraps the MediaContainer for JSON unmarshaling
type APIResponse struct {
	MediaContainer MediaContainer `json:"MediaContainer"`
}

// PINResponse represents the response from PIN generation
type PINResponse struct {
	ID        int    `json:"id"`
	Code      string `json:"code"`
	Product   string `json:"product"`
	Trusted   bool   `json:"trusted"`
	ClientID  string `json:"clientIdentifier"`
	AuthToken string `json:"authToken,omitempty"`
	ExpiresAt string `json:"expiresAt"`
}

// PINCheckResponse represents the response from PIN check
type PINCheckResponse struct {
	ID        int    `json:"id"`
	Code      string `json:"code"`
	AuthToken string `json:"authToken"`
	ExpiresAt string `json:"expiresAt"`
}
