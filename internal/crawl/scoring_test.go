package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// S4 image relevance scoring (spec.md §8).
func TestScoreScenarioS4(t *testing.T) {
	img := Image{Src: "/img/logo.png", Alt: "University X logo", Width: 120, Height: 80, DOMLocationTag: "header"}

	scored := Score(img, "University X")

	assert.InDelta(t, 1.0, scored.LogoConfidence, 1e-9)
	assert.Equal(t, 6, scored.RelevanceScore)
	assert.True(t, scored.IsLogoCandidate)
}

func TestLogoConfidenceClampedAndIndependent(t *testing.T) {
	img := Image{Src: "plain.jpg", Alt: "a photo", Width: 10, Height: 10, DOMLocationTag: "body"}
	assert.Equal(t, 0.0, LogoConfidence(img, "Acme"))
}

func TestImageRelevanceDecorativeBand(t *testing.T) {
	img := Image{Width: 50, Height: 50, Alt: "decorative divider"}
	assert.Equal(t, 2, ImageRelevance(img, 0))
}

func TestImageRelevanceAdvertisementBand(t *testing.T) {
	img := Image{Width: 300, Height: 300, Alt: "sponsored tracker pixel.gif", DOMLocationTag: "aside"}
	assert.Equal(t, 0, ImageRelevance(img, 0))
}

// A small ad/tracker image also satisfies the decorative (isSmall) and icon
// (isIcon) dimension predicates; the more conservative advertisement band
// must still win (spec.md §8's "ties favor the lower, more conservative
// score" rule).
func TestImageRelevanceAdvertisementBandBeatsSmallDimensionOverlap(t *testing.T) {
	img := Image{Width: 50, Height: 50, Alt: "sponsored tracker"}
	assert.Equal(t, 0, ImageRelevance(img, 0))
}
