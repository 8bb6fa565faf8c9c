// Package rules encodes the per-network media constraints the composer and
// the publish orchestrator both enforce. Everything here is pure: the same
// inputs always give the same verdict, whether media is checked one item at a
// time or as a final set.
package rules

import (
	"fmt"
	"strings"

	"github.com/unipost/unipost-api/internal/models"
)

type Constraints struct {
	MaxImages int
	MaxVideos int
	AllowMix  bool
	MinMedia  int
}

type Decision struct {
	OK     bool
	Reason string
}

func allow() Decision {
	return Decision{OK: true}
}

func reject(format string, args ...any) Decision {
	return Decision{OK: false, Reason: fmt.Sprintf(format, args...)}
}

// EvaluateConstraints combines the per-network overrides for the selected
// networks, always keeping the most restrictive value. Order of the input
// does not matter.
func EvaluateConstraints(networks []string) Constraints {
	c := Constraints{
		MaxImages: 10,
		MaxVideos: 1,
		AllowMix:  true,
		MinMedia:  0,
	}

	for _, n := range networks {
		switch n {
		case models.NetworkTiktok:
			c.MaxImages = 0
			if c.MinMedia < 1 {
				c.MinMedia = 1
			}
			c.AllowMix = false
		case models.NetworkBluesky:
			if c.MaxImages > 4 {
				c.MaxImages = 4
			}
			c.AllowMix = false
		case models.NetworkInstagram:
			if c.MinMedia < 1 {
				c.MinMedia = 1
			}
		}
		// Facebook and X impose nothing at this layer; their adapters
		// enforce their own limits at publish time.
	}

	return c
}

// MediaKind is the coarse media classification the rules operate on.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// KindOfMime maps a MIME string to a MediaKind by its top-level type.
func KindOfMime(mime string) (MediaKind, bool) {
	lower := strings.ToLower(mime)
	switch {
	case strings.HasPrefix(lower, "image/"):
		return KindImage, true
	case strings.HasPrefix(lower, "video/"):
		return KindVideo, true
	default:
		return "", false
	}
}

// CanAddMedia decides whether one more media item may join the current set.
// It is a pure reducer over (constraints, existing set, candidate) so the
// composer can call it on every upload and get the same verdict bulk
// evaluation would give for the final set.
func CanAddMedia(candidateMime string, current []MediaKind, c Constraints) Decision {
	kind, ok := KindOfMime(candidateMime)
	if !ok {
		return reject("unsupported media type %q: only images and videos are accepted", candidateMime)
	}

	images, videos := countKinds(current)

	switch kind {
	case KindImage:
		if images+1 > c.MaxImages {
			if c.MaxImages == 0 {
				return reject("no images allowed for the selected networks")
			}
			return reject("image limit exceeded (%d)", c.MaxImages)
		}
	case KindVideo:
		if videos+1 > c.MaxVideos {
			return reject("video limit exceeded (%d)", c.MaxVideos)
		}
	}

	if !c.AllowMix {
		mixed := (kind == KindImage && videos > 0) || (kind == KindVideo && images > 0)
		if mixed {
			return reject("mixing images and videos is not allowed for the selected networks")
		}
	}

	return allow()
}

// CheckMediaSet is the bulk form of CanAddMedia: it validates a complete set
// against the constraints, including the minimum-media floor that only makes
// sense once the set is final.
func CheckMediaSet(set []MediaKind, c Constraints) Decision {
	images, videos := countKinds(set)

	if images > c.MaxImages {
		if c.MaxImages == 0 {
			return reject("no images allowed for the selected networks")
		}
		return reject("image limit exceeded (%d)", c.MaxImages)
	}
	if videos > c.MaxVideos {
		return reject("video limit exceeded (%d)", c.MaxVideos)
	}
	if !c.AllowMix && images > 0 && videos > 0 {
		return reject("mixing images and videos is not allowed for the selected networks")
	}
	if len(set) < c.MinMedia {
		return reject("at least %d media item(s) required for the selected networks", c.MinMedia)
	}

	return allow()
}

// KindsOfMedias projects stored media rows onto the rule domain.
func KindsOfMedias(medias []*models.Media) []MediaKind {
	kinds := make([]MediaKind, 0, len(medias))
	for _, m := range medias {
		if m.IsVideo() {
			kinds = append(kinds, KindVideo)
			continue
		}
		kinds = append(kinds, KindImage)
	}
	return kinds
}

func countKinds(set []MediaKind) (images, videos int) {
	for _, k := range set {
		switch k {
		case KindImage:
			images++
		case KindVideo:
			videos++
		}
	}
	return images, videos
}
