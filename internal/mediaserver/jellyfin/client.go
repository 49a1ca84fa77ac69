package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

const (
	clientName    = "Mediarr"
	clientVersion = "1.0.0"
)

// itemFields are requested on every item listing so mapped items are complete
const itemFields = "ProviderIds,MediaSources,MediaStreams,Genres,Tags,People,Overview,DateCreated,DateLastSaved,PremiereDate,ChildCount,RecursiveItemCount,ParentId,SortName"

// Client is a thin Jellyfin REST client. It returns wire types; mapping happens in the adapter.
type Client struct {
	baseURL   string
	token     string
	clientID  string
	userID    string // admin user used for library reads
	transport *shared.Transport
	logger    *slog.Logger
}

// NewClient creates a new Jellyfin API client
func NewClient(baseURL, token, clientID string, transport *shared.Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		clientID:  clientID,
		transport: transport,
		logger:    logger,
	}
}

// buildAuthHeader constructs the X-Emby-Authorization header
func buildAuthHeader(token, clientID string) string {
	parts := []string{
		fmt.Sprintf(`MediaBrowser Client="%s"`, clientName),
		`Device="Server"`,
		fmt.Sprintf(`DeviceId="%s"`, clientID),
		fmt.Sprintf(`Version="%s"`, clientVersion),
	}
	if token != "" {
		parts = append(parts, fmt.Sprintf(`Token="%s"`, token))
	}
	return strings.Join(parts, ", ")
}

// doRequest performs an HTTP request to the Jellyfin API. A nil body sends no payload.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any, authenticated bool) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	token := ""
	if authenticated {
		token = c.token
	}
	header.Set("X-Emby-Authorization", buildAuthHeader(token, c.clientID))

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		header.Set("Content-Type", "application/json")
	}

	return c.transport.Do(ctx, shared.Request{Method: method, URL: reqURL, Header: header, Body: payload})
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		c.logger.Error("JSON parse error", "error", err, "path", path, "bodyLen", len(body))
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// PublicInfo calls the unauthenticated system info endpoint
func (c *Client) PublicInfo(ctx context.Context) (*SystemInfo, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/System/Info/Public", nil, nil, false)
	if err != nil {
		return nil, err
	}
	var info SystemInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &info, nil
}

// SystemInfo calls the authenticated system info endpoint
func (c *Client) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.getJSON(ctx, "/System/Info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Users lists all users
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.getJSON(ctx, "/Users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Views lists the top-level folders (libraries) visible to userID
func (c *Client) Views(ctx context.Context, userID string) ([]Item, error) {
	var resp ItemsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/Users/%s/Views", userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Item fetches one item as seen by userID, including that user's UserData
func (c *Client) Item(ctx context.Context, userID, itemID string) (*Item, error) {
	var item Item
	query := url.Values{"Fields": {itemFields}}
	if err := c.getJSON(ctx, fmt.Sprintf("/Users/%s/Items/%s", userID, itemID), query, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ItemRaw fetches one item without decoding it into Item, so every server field can be sent back
func (c *Client) ItemRaw(ctx context.Context, userID, itemID string) (map[string]any, error) {
	var raw map[string]any
	if err := c.getJSON(ctx, fmt.Sprintf("/Users/%s/Items/%s", userID, itemID), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Items queries items as seen by userID
func (c *Client) Items(ctx context.Context, userID string, query url.Values) (*ItemsResponse, error) {
	if query == nil {
		query = url.Values{}
	}
	if query.Get("Fields") == "" {
		query.Set("Fields", itemFields)
	}
	var resp ItemsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/Users/%s/Items", userID), query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Latest returns recently added items. The endpoint returns a bare array.
func (c *Client) Latest(ctx context.Context, userID string, query url.Values) ([]Item, error) {
	if query == nil {
		query = url.Values{}
	}
	if query.Get("Fields") == "" {
		query.Set("Fields", itemFields)
	}
	var items []Item
	if err := c.getJSON(ctx, fmt.Sprintf("/Users/%s/Items/Latest", userID), query, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Ancestors lists the folders above an item, nearest first
func (c *Client) Ancestors(ctx context.Context, userID, itemID string) ([]Item, error) {
	var items []Item
	query := url.Values{"userId": {userID}}
	if err := c.getJSON(ctx, fmt.Sprintf("/Items/%s/Ancestors", itemID), query, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// PlaylistItems lists the entries of a playlist
func (c *Client) PlaylistItems(ctx context.Context, userID, playlistID string) (*ItemsResponse, error) {
	var resp ItemsResponse
	query := url.Values{"UserId": {userID}, "Fields": {itemFields}}
	if err := c.getJSON(ctx, fmt.Sprintf("/Playlists/%s/Items", playlistID), query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateCollection creates a locked BoxSet and returns its id
func (c *Client) CreateCollection(ctx context.Context, name string, itemIDs []string) (string, error) {
	query := url.Values{
		"Name":     {name},
		"IsLocked": {"true"},
	}
	if len(itemIDs) > 0 {
		query.Set("Ids", strings.Join(itemIDs, ","))
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/Collections", query, nil, true)
	if err != nil {
		return "", err
	}
	var created CollectionCreated
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("no collection id returned from server")
	}
	return created.ID, nil
}

// AddToCollection adds items to a BoxSet
func (c *Client) AddToCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	query := url.Values{"Ids": {strings.Join(itemIDs, ",")}}
	_, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/Collections/%s/Items", collectionID), query, nil, true)
	return err
}

// RemoveFromCollection removes items from a BoxSet
func (c *Client) RemoveFromCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	query := url.Values{"Ids": {strings.Join(itemIDs, ",")}}
	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/Collections/%s/Items", collectionID), query, nil, true)
	return err
}

// UpdateItem replaces the metadata of an item
func (c *Client) UpdateItem(ctx context.Context, itemID string, item map[string]any) error {
	_, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/Items/%s", itemID), nil, item, true)
	return err
}

// DeleteItem deletes an item, including its files for media items
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/Items/%s", itemID), nil, nil, true)
	return err
}

// AuthenticateByName exchanges a username and password for an access token
func (c *Client) AuthenticateByName(ctx context.Context, username, password string) (*AuthResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/Users/AuthenticateByName", nil,
		map[string]string{"Username": username, "Pw": password}, false)
	if err != nil {
		return nil, err
	}
	var resp AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse auth response: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("no access token returned from server")
	}
	return &resp, nil
}
