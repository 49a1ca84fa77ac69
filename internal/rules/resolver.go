// Package rules resolves rule properties of media items against a media server.
//
// A Resolver turns a numeric property id and an item into a Result. It always
// works from freshly fetched metadata, rolls values up the show/season/episode
// hierarchy and answers collection and playlist membership. The Plex and
// Jellyfin resolvers share this core and differ only in the properties their
// backend cannot serve.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/domain"
)

// RuleGroupContext carries the settings of the rule group being evaluated
type RuleGroupContext struct {
	// ExcludedCollections are collection names that membership properties ignore,
	// typically the group's own collection. Compared case-insensitively after trimming.
	ExcludedCollections []string
}

// Resolver computes property values for items of one media server
type Resolver struct {
	server      domain.MediaServer
	cache       *cache.Namespace
	unsupported map[string]Result
	logger      *slog.Logger
}

// jellyfinUnsupported lists properties backed by services Jellyfin does not expose
var jellyfinUnsupported = map[string]Result{
	PropWatchlistedBy:                Ok([]string{}),
	PropWatchlisted:                  Ok(false),
	PropIMDbRating:                   NotApplicable(),
	PropRottenTomatoesCriticRating:   NotApplicable(),
	PropRottenTomatoesAudienceRating: NotApplicable(),
	PropTMDbRating:                   NotApplicable(),
}

// NewPlexResolver creates the resolver for a Plex adapter
func NewPlexResolver(server domain.MediaServer, store *cache.Store, logger *slog.Logger) *Resolver {
	return newResolver(server, store, domain.ServerTypePlex, nil, logger)
}

// NewJellyfinResolver creates the resolver for a Jellyfin adapter
func NewJellyfinResolver(server domain.MediaServer, store *cache.Store, logger *slog.Logger) *Resolver {
	return newResolver(server, store, domain.ServerTypeJellyfin, jellyfinUnsupported, logger)
}

// NewResolver picks the resolver matching the server's backend
func NewResolver(server domain.MediaServer, store *cache.Store, logger *slog.Logger) (*Resolver, error) {
	switch server.ServerType() {
	case domain.ServerTypePlex:
		return NewPlexResolver(server, store, logger), nil
	case domain.ServerTypeJellyfin:
		return NewJellyfinResolver(server, store, logger), nil
	default:
		return nil, fmt.Errorf("no resolver for server type %q", server.ServerType())
	}
}

func newResolver(server domain.MediaServer, store *cache.Store, serverType domain.ServerType, unsupported map[string]Result, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if unsupported == nil {
		unsupported = map[string]Result{}
	}
	return &Resolver{
		server:      server,
		// the adapter's namespace, so Uninitialize and ResetMetadataCache reach memberships
		cache:       store.Namespace(string(serverType)),
		unsupported: unsupported,
		logger:      logger.With("component", "rules", "server", string(serverType)),
	}
}

// Get resolves one property for item.
//
// The item is re-fetched first; the passed value only supplies the id. dataType
// is the rule's configured level and is informational: the fetched item's own
// type drives the computation. group may be nil.
func (r *Resolver) Get(ctx context.Context, propertyID int, item domain.MediaItem, dataType *domain.MediaItemType, group *RuleGroupContext) (result Result) {
	if !r.server.IsSetup() {
		return NotApplicable()
	}

	prop, ok := PropertyByID(propertyID)
	if !ok {
		r.logger.Warn("unknown rule property", "property", propertyID)
		return NotApplicable()
	}
	if neutral, ok := r.unsupported[prop.Name]; ok {
		return neutral
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("property resolution panicked", "property", prop.Name, "item", item.ID, "panic", p, "stack", string(debug.Stack()))
			result = Failed()
		}
	}()

	fresh, err := r.server.GetMetadata(ctx, item.ID)
	if err != nil {
		r.logger.Warn("failed to refresh item metadata", "property", prop.Name, "item", item.ID, "error", err)
		return Failed()
	}
	if fresh == nil {
		return NotApplicable()
	}
	if dataType != nil && *dataType != "" && *dataType != fresh.Type {
		r.logger.Debug("rule level differs from item type", "property", prop.Name, "item", item.ID, "dataType", *dataType, "type", fresh.Type)
	}

	c := newCall(ctx, r, *fresh, group)
	result, err = c.resolve(prop.Name)
	if err != nil {
		r.logger.Warn("property resolution failed", "property", prop.Name, "item", item.ID, "error", err)
		return Failed()
	}
	return result
}

// call holds the memoized lookups of one Get
type call struct {
	ctx   context.Context
	r     *Resolver
	item  domain.MediaItem
	group *RuleGroupContext

	parent      *lazyItem
	grandparent *lazyItem

	episodes       []domain.MediaItem
	episodesLoaded bool
	seenBy         map[string][]string
	history        map[string][]domain.WatchRecord
	collectionKids map[string][]domain.MediaItem
}

// lazyItem fetches an item on first use
type lazyItem struct {
	id     string
	loaded bool
	item   *domain.MediaItem
	err    error
}

func newCall(ctx context.Context, r *Resolver, item domain.MediaItem, group *RuleGroupContext) *call {
	c := &call{
		ctx:            ctx,
		r:              r,
		item:           item,
		group:          group,
		seenBy:         map[string][]string{},
		history:        map[string][]domain.WatchRecord{},
		collectionKids: map[string][]domain.MediaItem{},
	}
	if item.Type == domain.MediaItemTypeSeason || item.Type == domain.MediaItemTypeEpisode {
		c.parent = &lazyItem{id: item.ParentID}
	}
	if item.Type == domain.MediaItemTypeEpisode {
		c.grandparent = &lazyItem{id: item.GrandparentID}
	}
	return c
}

func (c *call) load(l *lazyItem) (*domain.MediaItem, error) {
	if l == nil || l.id == "" {
		return nil, nil
	}
	if !l.loaded {
		l.item, l.err = c.r.server.GetMetadata(c.ctx, l.id)
		l.loaded = true
	}
	return l.item, l.err
}

// show returns the show owning the item, or the item itself for movies and shows
func (c *call) show() (*domain.MediaItem, error) {
	switch c.item.Type {
	case domain.MediaItemTypeEpisode:
		return c.load(c.grandparent)
	case domain.MediaItemTypeSeason:
		return c.load(c.parent)
	default:
		return &c.item, nil
	}
}

// inherited returns the item's list field, falling back to the owning show's
func (c *call) inherited(field func(domain.MediaItem) []string) ([]string, error) {
	if v := field(c.item); len(v) > 0 {
		return v, nil
	}
	show, err := c.show()
	if err != nil {
		return nil, err
	}
	if show == nil {
		return []string{}, nil
	}
	if v := field(*show); len(v) > 0 {
		return v, nil
	}
	return []string{}, nil
}

func (c *call) resolve(name string) (Result, error) {
	item := c.item
	switch name {
	case PropAddDate:
		return okOrNA(item.AddedAt, !item.AddedAt.IsZero()), nil

	case PropSeenBy, PropWatchers:
		ids, err := c.watchers()
		if err != nil {
			return Result{}, err
		}
		return Ok(c.userNames(ids, false)), nil

	case PropReleaseDate:
		if item.OriginallyAvailableAt == nil {
			return NotApplicable(), nil
		}
		return Ok(*item.OriginallyAvailableAt), nil

	case PropUserRating:
		if item.UserRating == nil {
			return Ok(0.0), nil
		}
		return Ok(*item.UserRating), nil

	case PropPeople:
		people, err := c.inherited(func(m domain.MediaItem) []string { return m.Actors })
		if err != nil {
			return Result{}, err
		}
		return Ok(people), nil

	case PropGenre:
		genres, err := c.inherited(func(m domain.MediaItem) []string { return m.Genres })
		if err != nil {
			return Result{}, err
		}
		return Ok(genres), nil

	case PropLabels:
		if item.Labels == nil {
			return Ok([]string{}), nil
		}
		return Ok(item.Labels), nil

	case PropViewCount:
		return c.viewCount()

	case PropLastViewedAt, PropLastWatched:
		if name == PropLastWatched && item.Type == domain.MediaItemTypeMovie {
			return NotApplicable(), nil
		}
		return c.lastViewed()

	case PropFileVideoResolution:
		src, ok := item.CanonicalSource()
		return okOrNA(src.VideoResolution, ok && src.VideoResolution != ""), nil

	case PropFileBitrate:
		src, ok := item.CanonicalSource()
		return okOrNA(src.BitrateKbps, ok), nil

	case PropFileVideoCodec:
		src, ok := item.CanonicalSource()
		return okOrNA(src.VideoCodec, ok && src.VideoCodec != ""), nil

	case PropFileSize:
		return c.fileSize()

	case PropAllEpisodesSeenBy, PropEpisodes, PropViewedEpisodes, PropLastEpisodeAddedAt,
		PropAmountOfViews, PropLastEpisodeAiredAt:
		return c.hierarchy(name)

	case PropCollections, PropCollectionNames:
		names, err := c.collectionNames([]string{item.ID})
		if err != nil {
			return Result{}, err
		}
		if name == PropCollections {
			return Ok(len(names)), nil
		}
		return Ok(names), nil

	case PropCollectionsIncludingParent, PropCollectionNamesIncludingParent:
		ids := []string{item.ID}
		if c.parent != nil && c.parent.id != "" {
			ids = append(ids, c.parent.id)
		}
		if c.grandparent != nil && c.grandparent.id != "" {
			ids = append(ids, c.grandparent.id)
		}
		names, err := c.collectionNames(ids)
		if err != nil {
			return Result{}, err
		}
		if name == PropCollectionsIncludingParent {
			return Ok(len(names)), nil
		}
		return Ok(names), nil

	case PropPlaylists, PropPlaylistNames:
		names, err := c.playlistNames()
		if err != nil {
			return Result{}, err
		}
		if name == PropPlaylists {
			return Ok(len(names)), nil
		}
		return Ok(names), nil

	case PropCriticRating:
		if v, ok := item.RatingBy(domain.RatingSourceCritic, domain.RatingTypeCritic); ok {
			return Ok(v), nil
		}
		v, ok := item.RatingBy("", domain.RatingTypeCritic)
		return okOrNA(v, ok), nil

	case PropAudienceRating:
		if v, ok := item.RatingBy(domain.RatingSourceCommunity, domain.RatingTypeAudience); ok {
			return Ok(v), nil
		}
		v, ok := item.RatingBy("", domain.RatingTypeAudience)
		return okOrNA(v, ok), nil

	case PropIMDbRating:
		v, ok := item.RatingBy(domain.RatingSourceIMDb, "")
		return okOrNA(v, ok), nil

	case PropRottenTomatoesCriticRating:
		v, ok := item.RatingBy(domain.RatingSourceRottenTomatoes, domain.RatingTypeCritic)
		return okOrNA(v, ok), nil

	case PropRottenTomatoesAudienceRating:
		v, ok := item.RatingBy(domain.RatingSourceRottenTomatoes, domain.RatingTypeAudience)
		return okOrNA(v, ok), nil

	case PropTMDbRating:
		v, ok := item.RatingBy(domain.RatingSourceTMDb, "")
		return okOrNA(v, ok), nil

	case PropWatchlistedBy, PropWatchlisted:
		return c.watchlist(name)

	case PropTitle:
		return Ok(item.Title), nil

	case PropYear:
		if item.Year == nil {
			return NotApplicable(), nil
		}
		return Ok(*item.Year), nil

	case PropDurationMinutes:
		if item.DurationMs == nil {
			return NotApplicable(), nil
		}
		return Ok(int(math.Round(float64(*item.DurationMs) / 60000))), nil
	}

	return Result{}, fmt.Errorf("property %q has no resolver", name)
}

// userNames maps user ids to names. With knownOnly, ids the server does not
// list are dropped; otherwise they are kept as-is.
func (c *call) userNames(ids []string, knownOnly bool) []string {
	byID := map[string]string{}
	for _, u := range c.r.server.GetUsers(c.ctx) {
		byID[u.ID] = u.Name
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := byID[id]
		switch {
		case ok:
			names = append(names, name)
		case !knownOnly:
			names = append(names, id)
		}
	}
	return names
}

func (c *call) watchlist(name string) (Result, error) {
	provider, ok := c.r.server.(domain.WatchlistProvider)
	if !ok {
		if name == PropWatchlisted {
			return Ok(false), nil
		}
		return Ok([]string{}), nil
	}

	subject, err := c.show()
	if err != nil {
		return Result{}, err
	}
	if subject == nil {
		return NotApplicable(), nil
	}
	users, err := provider.WatchlistedBy(c.ctx, *subject)
	if err != nil {
		return Result{}, err
	}
	if name == PropWatchlisted {
		return Ok(len(users) > 0), nil
	}
	return Ok(users), nil
}
