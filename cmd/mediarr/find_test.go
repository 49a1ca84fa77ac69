package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/rules"
)

func TestLookupProperty(t *testing.T) {
	p, err := lookupProperty("sw_amountOfViews")
	require.NoError(t, err)
	assert.Equal(t, 17, p.ID)

	p, err = lookupProperty("12")
	require.NoError(t, err)
	assert.Equal(t, rules.PropAllEpisodesSeenBy, p.Name)

	_, err = lookupProperty("99")
	assert.ErrorContains(t, err, "unknown property id 99")
}

func TestLookupPropertySuggests(t *testing.T) {
	_, err := lookupProperty("seenby")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean")
	assert.Contains(t, err.Error(), "seenBy")
}

func TestSuggestPropertiesLimit(t *testing.T) {
	assert.LessOrEqual(t, len(suggestProperties("rating")), maxSuggestions)
	assert.Empty(t, suggestProperties("zzzzqqq"))
}

func TestMatchLibraries(t *testing.T) {
	libs := []domain.MediaLibrary{
		{ID: "1", Title: "Movies", Type: domain.MediaItemTypeMovie},
		{ID: "2", Title: "TV Shows", Type: domain.MediaItemTypeShow},
		{ID: "3", Title: "4K Movies", Type: domain.MediaItemTypeMovie},
	}

	assert.Equal(t, libs, matchLibraries(libs, ""))

	got := matchLibraries(libs, "movies")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID, "exact title ranks first")
	assert.Equal(t, "3", got[1].ID)

	assert.Empty(t, matchLibraries(libs, "music"))
}

func TestParseSelection(t *testing.T) {
	sel, err := parseSelection("season:200")
	require.NoError(t, err)
	assert.Equal(t, domain.ContextSelection{Type: domain.MediaItemTypeSeason, ID: "200"}, sel)

	sel, err = parseSelection("show")
	require.NoError(t, err)
	assert.Equal(t, domain.AllContextID, sel.ID)

	sel, err = parseSelection("")
	require.NoError(t, err)
	assert.Equal(t, domain.ContextSelection{}, sel)

	_, err = parseSelection("album:1")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Leaving Soon", "Kids"}, splitList(" Leaving Soon, ,Kids "))
	assert.Nil(t, splitList(""))
}

func TestFormatResult(t *testing.T) {
	assert.Equal(t, "alice, bob", formatResult(rules.Ok([]string{"alice", "bob"})))
	assert.Equal(t, "3", formatResult(rules.Ok(3)))
	assert.Contains(t, formatResult(rules.NotApplicable()), "n/a")
	assert.Contains(t, formatResult(rules.Failed()), "failed")

	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.Local)
	assert.Equal(t, "2024-03-01 12:30", formatResult(rules.Ok(at)))
}

type countingGetter struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	seen     []int
}

func (g *countingGetter) Get(_ context.Context, propertyID int, _ domain.MediaItem, _ *domain.MediaItemType, _ *rules.RuleGroupContext) rules.Result {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	if n > g.peak.Load() {
		g.peak.Store(n)
	}
	time.Sleep(time.Millisecond)
	g.seen = append(g.seen, propertyID)
	return rules.Ok(propertyID)
}

func TestResolveAllIsSequential(t *testing.T) {
	g := &countingGetter{}
	results := resolveAll(context.Background(), g, rules.Properties, domain.MediaItem{ID: "10"}, nil, nil)

	require.Len(t, results, len(rules.Properties))
	assert.Equal(t, int32(1), g.peak.Load())
	for i, p := range rules.Properties {
		v, ok := results[i].Value()
		require.True(t, ok)
		assert.Equal(t, p.ID, v)
	}
}

func TestResolveAllStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := &countingGetter{}
	results := resolveAll(ctx, g, rules.Properties[:3], domain.MediaItem{ID: "10"}, nil, nil)
	assert.Empty(t, g.seen)
	for _, res := range results {
		assert.True(t, res.IsFailed())
	}
}
