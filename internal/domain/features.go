package domain

// Feature is a backend capability that callers check before using a backend-specific path
type Feature string

const (
	FeatureCollectionVisibility Feature = "collection_visibility"
	FeatureWatchlist            Feature = "watchlist"
	FeatureCentralRatings       Feature = "central_ratings"
	FeatureSmartCollections     Feature = "smart_collections"
	FeatureServerHistory        Feature = "server_history"
	FeatureLabels               Feature = "labels"
)

var featureTable = map[ServerType]map[Feature]bool{
	ServerTypePlex: {
		FeatureCollectionVisibility: true,
		FeatureWatchlist:            true,
		FeatureCentralRatings:       true,
		FeatureSmartCollections:     true,
		FeatureServerHistory:        true,
		FeatureLabels:               true,
	},
	ServerTypeJellyfin: {
		FeatureLabels: true,
	},
}

// SupportsFeature is a static lookup with no I/O. Unknown backends support nothing.
func SupportsFeature(serverType ServerType, feature Feature) bool {
	return featureTable[serverType][feature]
}
