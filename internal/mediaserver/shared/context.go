package shared

import (
	"context"
	"log/slog"

	"github.com/mmcdole/mediarr/internal/domain"
)

// ChildrenFetcher lists the direct children of a show or season
type ChildrenFetcher interface {
	GetChildrenMetadata(ctx context.Context, parentID string, childType domain.MediaItemType) ([]domain.MediaItem, error)
}

// ExpandContext turns a selection in a show/season/episode tree into the ids an
// action applies to.
//
// With a collection granularity, ids at that level are returned:
//
//	granularity  show            season              episode
//	season       every season    that season         rejected
//	episode      every episode   its episodes        that episode
//	other        mediaID         mediaID             mediaID
//
// Without one, the node itself and everything below it is returned.
func ExpandContext(ctx context.Context, fetcher ChildrenFetcher, collectionType *domain.MediaItemType, selection domain.ContextSelection, mediaID string, logger *slog.Logger) ([]string, error) {
	node := selection.ID
	if node == "" || node == domain.AllContextID || selection.Type == domain.MediaItemTypeShow {
		node = mediaID
	}

	if collectionType != nil {
		switch *collectionType {
		case domain.MediaItemTypeSeason:
			switch selection.Type {
			case domain.MediaItemTypeShow:
				seasons, err := fetcher.GetChildrenMetadata(ctx, node, domain.MediaItemTypeSeason)
				if err != nil {
					return nil, err
				}
				return ids(seasons), nil
			case domain.MediaItemTypeSeason:
				return []string{node}, nil
			default:
				logger.Warn("episode selection ignored for season collection", "media", mediaID, "selection", selection.ID)
				return []string{}, nil
			}

		case domain.MediaItemTypeEpisode:
			switch selection.Type {
			case domain.MediaItemTypeShow:
				return episodesOfShow(ctx, fetcher, node)
			case domain.MediaItemTypeSeason:
				episodes, err := fetcher.GetChildrenMetadata(ctx, node, domain.MediaItemTypeEpisode)
				if err != nil {
					return nil, err
				}
				return ids(episodes), nil
			default:
				return []string{node}, nil
			}

		default:
			return []string{mediaID}, nil
		}
	}

	switch selection.Type {
	case domain.MediaItemTypeShow:
		result := []string{node}
		seasons, err := fetcher.GetChildrenMetadata(ctx, node, domain.MediaItemTypeSeason)
		if err != nil {
			return nil, err
		}
		for _, season := range seasons {
			result = append(result, season.ID)
			episodes, err := fetcher.GetChildrenMetadata(ctx, season.ID, domain.MediaItemTypeEpisode)
			if err != nil {
				return nil, err
			}
			result = append(result, ids(episodes)...)
		}
		return result, nil
	case domain.MediaItemTypeSeason:
		episodes, err := fetcher.GetChildrenMetadata(ctx, node, domain.MediaItemTypeEpisode)
		if err != nil {
			return nil, err
		}
		return append([]string{node}, ids(episodes)...), nil
	case domain.MediaItemTypeEpisode:
		return []string{node}, nil
	default:
		return []string{mediaID}, nil
	}
}

func episodesOfShow(ctx context.Context, fetcher ChildrenFetcher, showID string) ([]string, error) {
	seasons, err := fetcher.GetChildrenMetadata(ctx, showID, domain.MediaItemTypeSeason)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, season := range seasons {
		episodes, err := fetcher.GetChildrenMetadata(ctx, season.ID, domain.MediaItemTypeEpisode)
		if err != nil {
			return nil, err
		}
		result = append(result, ids(episodes)...)
	}
	return result, nil
}

func ids(items []domain.MediaItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
