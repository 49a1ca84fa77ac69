package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	fuzzysearch "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/rules"
)

const maxSuggestions = 3

// lookupProperty accepts a catalog name or a numeric id
func lookupProperty(arg string) (rules.Property, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		if p, ok := rules.PropertyByID(id); ok {
			return p, nil
		}
		return rules.Property{}, fmt.Errorf("unknown property id %d", id)
	}
	if p, ok := rules.PropertyByName(arg); ok {
		return p, nil
	}

	err := fmt.Errorf("unknown property %q", arg)
	if s := suggestProperties(arg); len(s) > 0 {
		err = fmt.Errorf("%w, did you mean %s?", err, strings.Join(s, ", "))
	}
	return rules.Property{}, err
}

// suggestProperties returns the catalog names closest to name, best first
func suggestProperties(name string) []string {
	matches := fuzzy.Find(name, rules.PropertyNames())
	var out []string
	for i, m := range matches {
		if i == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// matchLibraries keeps libraries whose title fuzzy-matches query, closest first.
// An empty query keeps all.
func matchLibraries(libs []domain.MediaLibrary, query string) []domain.MediaLibrary {
	if query == "" {
		return libs
	}

	titles := make([]string, len(libs))
	for i, lib := range libs {
		titles[i] = lib.Title
	}
	ranks := fuzzysearch.RankFindNormalizedFold(query, titles)
	sort.Sort(ranks)

	out := make([]domain.MediaLibrary, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, libs[r.OriginalIndex])
	}
	return out
}

// parseSelection reads TYPE:ID. A bare TYPE selects the whole item.
func parseSelection(s string) (domain.ContextSelection, error) {
	if s == "" {
		return domain.ContextSelection{}, nil
	}
	typ, id, found := strings.Cut(s, ":")
	t, ok := domain.ParseMediaItemType(typ)
	if !ok {
		return domain.ContextSelection{}, fmt.Errorf("invalid selection type %q", typ)
	}
	if !found || id == "" {
		id = domain.AllContextID
	}
	return domain.ContextSelection{Type: t, ID: id}, nil
}

// splitList splits a comma-separated flag value, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
