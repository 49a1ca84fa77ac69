package rules

import (
	"fmt"
	"time"

	"github.com/mmcdole/mediarr/internal/domain"
)

// episodeList returns the episodes under the item. A season yields its
// episodes, a show the episodes of every season, an episode itself.
// applicable is false for movies.
func (c *call) episodeList() (episodes []domain.MediaItem, applicable bool, err error) {
	if c.episodesLoaded {
		return c.episodes, true, nil
	}

	switch c.item.Type {
	case domain.MediaItemTypeMovie:
		return nil, false, nil
	case domain.MediaItemTypeEpisode:
		episodes = []domain.MediaItem{c.item}
	case domain.MediaItemTypeSeason:
		episodes, err = c.r.server.GetChildrenMetadata(c.ctx, c.item.ID, domain.MediaItemTypeEpisode)
		if err != nil {
			return nil, true, fmt.Errorf("episodes of season %s: %w", c.item.ID, err)
		}
	case domain.MediaItemTypeShow:
		seasons, err := c.r.server.GetChildrenMetadata(c.ctx, c.item.ID, domain.MediaItemTypeSeason)
		if err != nil {
			return nil, true, fmt.Errorf("seasons of show %s: %w", c.item.ID, err)
		}
		for _, season := range seasons {
			eps, err := c.r.server.GetChildrenMetadata(c.ctx, season.ID, domain.MediaItemTypeEpisode)
			if err != nil {
				return nil, true, fmt.Errorf("episodes of season %s: %w", season.ID, err)
			}
			episodes = append(episodes, eps...)
		}
	default:
		return nil, false, nil
	}

	c.episodes = episodes
	c.episodesLoaded = true
	return episodes, true, nil
}

// subjects returns the items whose watch state describes the item: the item
// itself for movies and episodes, every episode below a container.
func (c *call) subjects() ([]domain.MediaItem, error) {
	if !c.item.Type.IsContainer() {
		return []domain.MediaItem{c.item}, nil
	}
	episodes, _, err := c.episodeList()
	return episodes, err
}

func (c *call) itemSeenBy(id string) []string {
	if ids, ok := c.seenBy[id]; ok {
		return ids
	}
	ids := c.r.server.GetItemSeenBy(c.ctx, id)
	c.seenBy[id] = ids
	return ids
}

func (c *call) itemHistory(id string) []domain.WatchRecord {
	if records, ok := c.history[id]; ok {
		return records
	}
	records := c.r.server.GetWatchHistory(c.ctx, id)
	c.history[id] = records
	return records
}

// watchers returns the distinct ids of users who watched the item or any episode below it
func (c *call) watchers() ([]string, error) {
	subjects, err := c.subjects()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	ids := []string{}
	for _, s := range subjects {
		for _, id := range c.itemSeenBy(s.ID) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (c *call) viewCount() (Result, error) {
	subjects, err := c.subjects()
	if err != nil {
		return Result{}, err
	}
	total := 0
	for _, s := range subjects {
		total += c.r.server.GetTotalPlayCount(c.ctx, s.ID)
	}
	return Ok(total), nil
}

func (c *call) lastViewed() (Result, error) {
	subjects, err := c.subjects()
	if err != nil {
		return Result{}, err
	}
	var last time.Time
	for _, s := range subjects {
		for _, rec := range c.itemHistory(s.ID) {
			if rec.WatchedAt != nil && rec.WatchedAt.After(last) {
				last = *rec.WatchedAt
			}
		}
	}
	return okOrNA(last, !last.IsZero()), nil
}

func (c *call) fileSize() (Result, error) {
	subjects, err := c.subjects()
	if err != nil {
		return Result{}, err
	}
	var total int64
	found := false
	for _, s := range subjects {
		if src, ok := s.CanonicalSource(); ok {
			total += src.SizeBytes
			found = true
		}
	}
	return okOrNA(total, found), nil
}

// hierarchy resolves the sw_ aggregations. They are not applicable to movies.
func (c *call) hierarchy(name string) (Result, error) {
	episodes, applicable, err := c.episodeList()
	if err != nil {
		return Result{}, err
	}
	if !applicable {
		return NotApplicable(), nil
	}

	switch name {
	case PropEpisodes:
		return Ok(len(episodes)), nil

	case PropViewedEpisodes:
		viewed := 0
		for _, ep := range episodes {
			if len(c.itemSeenBy(ep.ID)) > 0 {
				viewed++
			}
		}
		return Ok(viewed), nil

	case PropAmountOfViews:
		views := 0
		for _, ep := range episodes {
			views += len(c.itemHistory(ep.ID))
		}
		return Ok(views), nil

	case PropAllEpisodesSeenBy:
		return Ok(c.allSeenBy(episodes)), nil

	case PropLastEpisodeAddedAt:
		var last time.Time
		for _, ep := range episodes {
			if ep.AddedAt.After(last) {
				last = ep.AddedAt
			}
		}
		return okOrNA(last, !last.IsZero()), nil

	case PropLastEpisodeAiredAt:
		var last time.Time
		for _, ep := range episodes {
			if ep.OriginallyAvailableAt != nil && ep.OriginallyAvailableAt.After(last) {
				last = *ep.OriginallyAvailableAt
			}
		}
		return okOrNA(last, !last.IsZero()), nil
	}

	return Result{}, fmt.Errorf("property %q is not a hierarchy aggregation", name)
}

// allSeenBy returns the names of known users who watched every episode.
// No episodes means nobody qualifies.
func (c *call) allSeenBy(episodes []domain.MediaItem) []string {
	if len(episodes) == 0 {
		return []string{}
	}

	counts := map[string]int{}
	for _, ep := range episodes {
		for _, id := range dedupe(c.itemSeenBy(ep.ID)) {
			counts[id]++
		}
	}

	var ids []string
	for _, u := range c.r.server.GetUsers(c.ctx) {
		if counts[u.ID] == len(episodes) {
			ids = append(ids, u.ID)
		}
	}
	return c.userNames(ids, true)
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
