package buttonmap

import (
	"log/slog"
	"slices"
)

// MergeFeature applies one edit to a profile's features and returns the
// sanitized result. The input vector is not modified.
//
// If a feature with the same name exists it is replaced, and the first
// feature already bound to exactly the new primitives inherits the
// primitives being vacated, so two features trade bindings instead of one
// losing its binding. The new feature is placed first so it wins every
// remaining conflict.
func MergeFeature(features FeatureVector, feature Feature, profileID string, logger *slog.Logger) FeatureVector {
	updating := features.index(feature.Name)
	conflicting := -1
	if updating >= 0 {
		conflicting = slices.IndexFunc(features, func(f Feature) bool {
			return PrimitivesEqual(f, feature)
		})
	}

	merged := make(FeatureVector, 0, len(features)+1)
	merged = append(merged, feature)
	for i, f := range features {
		switch i {
		case updating:
			continue
		case conflicting:
			f.Primitives = features[updating].Primitives
		}
		merged = append(merged, f)
	}

	return Sanitize(merged, profileID, logger)
}
