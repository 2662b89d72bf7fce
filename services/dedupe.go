package services

import (
	"github.com/sirupsen/logrus"
)

// Deduplicate returns one candidate per distinct signature key, preserving
// first-seen order. Direct links and embedded posts are deduplicated
// independently: the two kinds take different action paths, so a shared
// status id across kinds is not treated as a duplicate (known limitation).
// Candidates with an empty signature key are kept unconditionally.
func Deduplicate(logger *logrus.Logger, candidates []captured) []captured {
	seen := make(map[string]bool, len(candidates))
	out := make([]captured, 0, len(candidates))

	for _, c := range candidates {
		key := c.Signature.Key
		if key == "" {
			out = append(out, c)
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}

	if removed := len(candidates) - len(out); removed > 0 {
		logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(out),
		}).Info("removed duplicate candidates")
	}
	return out
}
