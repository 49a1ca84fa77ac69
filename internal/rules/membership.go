package rules

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/domain"
)

// collectionRef is the cached form of one membership
type collectionRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// memberships returns every collection of the item's library that holds itemID.
// The unfiltered list is cached per item so rule groups with different
// exclusions share one entry.
func (c *call) memberships(itemID string) ([]collectionRef, error) {
	if refs, ok := cache.Get[[]collectionRef](c.r.cache, cache.KindCollectionMembership, itemID); ok {
		return refs, nil
	}

	refs := []collectionRef{}
	for _, col := range c.r.server.GetCollections(c.ctx, c.item.Library.ID) {
		children, err := c.collectionChildren(col.ID)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if child.ID == itemID {
				refs = append(refs, collectionRef{ID: col.ID, Title: col.Title})
				break
			}
		}
	}

	cache.Set(c.r.cache, cache.KindCollectionMembership, itemID, refs)
	return refs, nil
}

func (c *call) collectionChildren(collectionID string) ([]domain.MediaItem, error) {
	if kids, ok := c.collectionKids[collectionID]; ok {
		return kids, nil
	}
	kids, err := c.r.server.GetCollectionChildren(c.ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("children of collection %s: %w", collectionID, err)
	}
	c.collectionKids[collectionID] = kids
	return kids, nil
}

// collectionNames returns the distinct titles of collections holding any of
// itemIDs, minus the group's excluded collections.
func (c *call) collectionNames(itemIDs []string) ([]string, error) {
	excluded := c.excludedCollections()
	seen := map[string]bool{}
	names := []string{}

	for _, id := range itemIDs {
		refs, err := c.memberships(id)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			if seen[ref.ID] || excluded[foldName(ref.Title)] {
				continue
			}
			seen[ref.ID] = true
			names = append(names, ref.Title)
		}
	}
	return names, nil
}

func (c *call) excludedCollections() map[string]bool {
	excluded := map[string]bool{}
	if c.group == nil {
		return excluded
	}
	for _, name := range c.group.ExcludedCollections {
		if key := foldName(name); key != "" {
			excluded[key] = true
		}
	}
	return excluded
}

// foldName normalizes a collection name for comparison
func foldName(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// playlistNames returns the titles of playlists holding the item. For shows
// and seasons a playlist counts when it holds any of their episodes.
func (c *call) playlistNames() ([]string, error) {
	subjects, err := c.subjects()
	if err != nil {
		return nil, err
	}
	targets := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		targets[s.ID] = true
	}

	names := []string{}
	if len(targets) == 0 {
		return names, nil
	}
	for _, pl := range c.r.server.GetPlaylists(c.ctx, c.item.Library.ID) {
		items, err := c.r.server.GetPlaylistItems(c.ctx, pl.ID)
		if err != nil {
			return nil, fmt.Errorf("items of playlist %s: %w", pl.ID, err)
		}
		for _, it := range items {
			if targets[it.ID] {
				names = append(names, pl.Title)
				break
			}
		}
	}
	return names, nil
}
