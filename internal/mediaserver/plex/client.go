package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

const (
	product        = "Mediarr"
	productVersion = "1.0"
	userAgent      = "Mediarr/1.0"

	// DiscoverURL serves the account watchlist
	DiscoverURL = "https://discover.provider.plex.tv"
)

// Client is a thin Plex Media Server client. It returns wire types; mapping happens in the adapter.
type Client struct {
	baseURL           string
	discoverURL       string
	token             string
	clientID          string
	machineIdentifier string // fetched from / on init
	transport         *shared.Transport
	logger            *slog.Logger
}

// NewClient creates a new Plex API client
func NewClient(baseURL, token, clientID string, transport *shared.Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		discoverURL: DiscoverURL,
		token:       token,
		clientID:    clientID,
		transport:   transport,
		logger:      logger,
	}
}

func (c *Client) headers(authenticated bool) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("X-Plex-Client-Identifier", c.clientID)
	h.Set("X-Plex-Product", product)
	h.Set("X-Plex-Version", productVersion)
	h.Set("User-Agent", userAgent)
	if authenticated {
		h.Set("X-Plex-Token", c.token)
	}
	return h
}

// doRequest performs a request against base+path
func (c *Client) doRequest(ctx context.Context, method, base, path string, query url.Values, authenticated bool) ([]byte, error) {
	reqURL := base + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	return c.transport.Do(ctx, shared.Request{Method: method, URL: reqURL, Header: c.headers(authenticated)})
}

// container performs an authenticated GET and decodes the MediaContainer
func (c *Client) container(ctx context.Context, path string, query url.Values) (*MediaContainer, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.baseURL, path, query, true)
	if err != nil {
		return nil, err
	}
	return c.parseResponse(body, path)
}

// parseResponse parses a JSON response into APIResponse. Mutations may answer
// with an empty body.
func (c *Client) parseResponse(body []byte, path string) (*MediaContainer, error) {
	if len(body) == 0 {
		return &MediaContainer{}, nil
	}
	var resp APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("JSON parse error", "error", err, "path", path, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp.MediaContainer, nil
}

// metadataURI addresses library items in collection and playlist mutations
func (c *Client) metadataURI(itemIDs []string) string {
	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s",
		c.machineIdentifier, strings.Join(itemIDs, ","))
}

// Identity calls the unauthenticated /identity endpoint
func (c *Client) Identity(ctx context.Context) (*MediaContainer, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.baseURL, "/identity", nil, false)
	if err != nil {
		return nil, err
	}
	return c.parseResponse(body, "/identity")
}

// Root calls the authenticated server root and stores the machine identifier
func (c *Client) Root(ctx context.Context) (*MediaContainer, error) {
	mc, err := c.container(ctx, "/", nil)
	if err != nil {
		return nil, err
	}
	if mc.MachineIdentifier != "" {
		c.machineIdentifier = mc.MachineIdentifier
	}
	return mc, nil
}

// Accounts lists the server-local accounts
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	mc, err := c.container(ctx, "/accounts", nil)
	if err != nil {
		return nil, err
	}
	return mc.Account, nil
}

// Sections lists library sections
func (c *Client) Sections(ctx context.Context) ([]Directory, error) {
	mc, err := c.container(ctx, "/library/sections", nil)
	if err != nil {
		return nil, err
	}
	return mc.Directory, nil
}

// SectionAll lists the items of a section. Paging uses the container query parameters.
func (c *Client) SectionAll(ctx context.Context, libID string, itemType int, offset, limit int, extra url.Values) (*MediaContainer, error) {
	query := url.Values{}
	for k, v := range extra {
		query[k] = v
	}
	query.Set("X-Plex-Container-Start", strconv.Itoa(offset))
	if limit >= 0 {
		query.Set("X-Plex-Container-Size", strconv.Itoa(limit))
	}
	if itemType > 0 {
		query.Set("type", strconv.Itoa(itemType))
	}
	return c.container(ctx, fmt.Sprintf("/library/sections/%s/all", libID), query)
}

// Metadata returns one item with its container, which carries the section id
func (c *Client) Metadata(ctx context.Context, itemID string) (*Metadata, error) {
	mc, err := c.container(ctx, fmt.Sprintf("/library/metadata/%s", itemID), nil)
	if err != nil {
		return nil, err
	}
	if len(mc.Metadata) == 0 {
		return nil, domain.ErrItemNotFound
	}
	m := mc.Metadata[0]
	if m.LibrarySectionID == "" {
		m.LibrarySectionID = mc.LibrarySectionID
		m.LibrarySectionTitle = mc.LibrarySectionTitle
	}
	return &m, nil
}

// Children lists the direct children of a show or season
func (c *Client) Children(ctx context.Context, itemID string) (*MediaContainer, error) {
	return c.container(ctx, fmt.Sprintf("/library/metadata/%s/children", itemID), nil)
}

// RecentlyAdded lists the newest items of a section
func (c *Client) RecentlyAdded(ctx context.Context, libID string, limit int) (*MediaContainer, error) {
	query := url.Values{
		"X-Plex-Container-Start": {"0"},
		"X-Plex-Container-Size":  {strconv.Itoa(limit)},
	}
	return c.container(ctx, fmt.Sprintf("/library/sections/%s/recentlyAdded", libID), query)
}

// Search performs a search across all libraries
func (c *Client) Search(ctx context.Context, query string) (*MediaContainer, error) {
	return c.container(ctx, "/search", url.Values{"query": {query}})
}

// History lists play events matching query (metadataItemID or librarySectionID)
func (c *Client) History(ctx context.Context, query url.Values) ([]HistoryEntry, error) {
	q := url.Values{"sort": {"viewedAt:desc"}}
	for k, v := range query {
		q[k] = v
	}
	body, err := c.doRequest(ctx, http.MethodGet, c.baseURL, "/status/sessions/history/all", q, true)
	if err != nil {
		return nil, err
	}
	var hc HistoryContainer
	if err := json.Unmarshal(body, &hc); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return hc.MediaContainer.Metadata, nil
}

// Collections lists the collections of a section
func (c *Client) Collections(ctx context.Context, libID string) ([]Metadata, error) {
	mc, err := c.container(ctx, fmt.Sprintf("/library/sections/%s/collections", libID), nil)
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// CollectionChildren lists the items of a collection
func (c *Client) CollectionChildren(ctx context.Context, collectionID string) (*MediaContainer, error) {
	return c.container(ctx, fmt.Sprintf("/library/collections/%s/children", collectionID), nil)
}

// CreateCollection creates a regular collection holding itemIDs
func (c *Client) CreateCollection(ctx context.Context, libID string, itemType int, title string, itemIDs []string) (*Metadata, error) {
	query := url.Values{
		"type":      {strconv.Itoa(itemType)},
		"title":     {title},
		"smart":     {"0"},
		"sectionId": {libID},
	}
	if len(itemIDs) > 0 {
		query.Set("uri", c.metadataURI(itemIDs))
	}

	body, err := c.doRequest(ctx, http.MethodPost, c.baseURL, "/library/collections", query, true)
	if err != nil {
		return nil, err
	}
	mc, err := c.parseResponse(body, "/library/collections")
	if err != nil {
		return nil, err
	}
	if len(mc.Metadata) == 0 {
		return nil, fmt.Errorf("no collection returned from server")
	}
	return &mc.Metadata[0], nil
}

// AddToCollection adds items to a collection in one request
func (c *Client) AddToCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	query := url.Values{"uri": {c.metadataURI(itemIDs)}}
	_, err := c.doRequest(ctx, http.MethodPut, c.baseURL, fmt.Sprintf("/library/collections/%s/items", collectionID), query, true)
	return err
}

// RemoveFromCollection removes one item from a collection
func (c *Client) RemoveFromCollection(ctx context.Context, collectionID, itemID string) error {
	path := fmt.Sprintf("/library/collections/%s/items/%s", collectionID, itemID)
	_, err := c.doRequest(ctx, http.MethodDelete, c.baseURL, path, nil, true)
	return err
}

// DeleteCollection deletes a collection, leaving its items alone
func (c *Client) DeleteCollection(ctx context.Context, collectionID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, c.baseURL, fmt.Sprintf("/library/collections/%s", collectionID), nil, true)
	return err
}

// EditCollection sets collection fields through the section edit endpoint. Empty
// values are left unchanged; set fields are locked against agent refreshes.
func (c *Client) EditCollection(ctx context.Context, libID, collectionID string, fields map[string]string) error {
	query := url.Values{
		"type": {strconv.Itoa(typeCollection)},
		"id":   {collectionID},
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		query.Set(name+".value", value)
		query.Set(name+".locked", "1")
	}
	_, err := c.doRequest(ctx, http.MethodPut, c.baseURL, fmt.Sprintf("/library/sections/%s/all", libID), query, true)
	return err
}

// ManageHub sets where a collection hub is promoted
func (c *Client) ManageHub(ctx context.Context, libID, collectionID string, recommended, ownHome, sharedHome bool) error {
	query := url.Values{
		"metadataItemId":        {collectionID},
		"promotedToRecommended": {boolParam(recommended)},
		"promotedToOwnHome":     {boolParam(ownHome)},
		"promotedToSharedHome":  {boolParam(sharedHome)},
	}
	_, err := c.doRequest(ctx, http.MethodPost, c.baseURL, fmt.Sprintf("/hubs/sections/%s/manage", libID), query, true)
	return err
}

// Playlists lists video playlists
func (c *Client) Playlists(ctx context.Context) ([]Metadata, error) {
	mc, err := c.container(ctx, "/playlists", url.Values{"playlistType": {"video"}})
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// PlaylistItems returns all items in a playlist
func (c *Client) PlaylistItems(ctx context.Context, playlistID string) (*MediaContainer, error) {
	return c.container(ctx, fmt.Sprintf("/playlists/%s/items", playlistID), nil)
}

// DeleteItem deletes an item and its files
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, c.baseURL, fmt.Sprintf("/library/metadata/%s", itemID), nil, true)
	return err
}

// Refresh asks the server to refresh an item's metadata
func (c *Client) Refresh(ctx context.Context, itemID string) error {
	_, err := c.doRequest(ctx, http.MethodPut, c.baseURL, fmt.Sprintf("/library/metadata/%s/refresh", itemID), nil, true)
	return err
}

// Watchlist returns the token owner's watchlist from the discover service
func (c *Client) Watchlist(ctx context.Context) ([]Metadata, error) {
	var all []Metadata
	const pageSize = 100
	for offset := 0; ; offset += pageSize {
		query := url.Values{
			"includeGuids":           {"1"},
			"X-Plex-Container-Start": {strconv.Itoa(offset)},
			"X-Plex-Container-Size":  {strconv.Itoa(pageSize)},
		}
		body, err := c.doRequest(ctx, http.MethodGet, c.discoverURL, "/library/sections/watchlist/all", query, true)
		if err != nil {
			return nil, err
		}
		mc, err := c.parseResponse(body, "watchlist")
		if err != nil {
			return nil, err
		}
		all = append(all, mc.Metadata...)
		if len(mc.Metadata) < pageSize || (mc.TotalSize > 0 && len(all) >= mc.TotalSize) {
			return all, nil
		}
	}
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
