package buttonmap

import (
	"log/slog"
	"slices"
)

// Sanitize resolves primitives claimed more than once. A primitive is kept by
// the earliest feature that uses it, and by the earliest slot within a
// feature; later copies become Unknown. Features left with no primitive are
// dropped. Conflicts are logged and never reported as errors.
//
// The input vector is not modified.
func Sanitize(features FeatureVector, profileID string, logger *slog.Logger) FeatureVector {
	if logger == nil {
		logger = slog.Default()
	}

	swept := make(FeatureVector, 0, len(features))
	for _, feature := range features {
		for slot, primitive := range feature.Primitives {
			if primitive.IsUnknown() {
				continue
			}

			owner, found := ownerOf(swept, primitive)
			if !found && slices.Contains(feature.Primitives[:slot], primitive) {
				owner, found = feature.Name, true
			}
			if !found {
				continue
			}

			logger.Warn("primitive conflicts with an earlier feature",
				"controller", profileID,
				"primitive", primitive.String(),
				"kept", owner,
				"superseded", feature.Name)
			feature.Primitives[slot] = Primitive{}
		}
		swept = append(swept, feature)
	}

	out := make(FeatureVector, 0, len(swept))
	for _, feature := range swept {
		if feature.IsEmpty() {
			logger.Info("removed from button map", "controller", profileID, "feature", feature.Name)
			continue
		}
		out = append(out, feature)
	}
	return out
}

func ownerOf(features FeatureVector, p Primitive) (string, bool) {
	for _, f := range features {
		if slices.Contains(f.Primitives[:], p) {
			return f.Name, true
		}
	}
	return "", false
}
