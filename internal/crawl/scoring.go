package crawl

import "strings"

// decorativeKeywords and uiAffordance terms back the low image-relevance
// bands (spec.md §4.6 scores 1–2).
var decorativeKeywords = []string{"decoration", "decorative", "divider", "spacer", "background pattern"}
var uiAffordanceTerms = []string{"icon", "button", "arrow", "menu", "chevron", "hamburger"}
var advertisementTerms = []string{"advertisement", "sponsored", "tracker", "pixel.gif", "share-icon", "social-share"}

// campusTerms and activityTerms back the mid-high bands (spec.md §4.6
// scores 4–5).
var campusTerms = []string{"campus", "facility", "facilities", "building", "branding"}
var activityTerms = []string{"program", "event", "staff", "student", "faculty", "team"}

// LogoConfidence implements spec.md §4.6's logo-detection heuristic: start
// at 0, accumulate four independent signals, clamp to [0,1].
func LogoConfidence(img Image, institutionName string) float64 {
	score := 0.0

	srcLower := strings.ToLower(img.Src)
	if strings.Contains(srcLower, "logo") || strings.Contains(srcLower, "brand") {
		score += 0.4
	}

	altLower := strings.ToLower(img.Alt)
	if strings.Contains(altLower, "logo") || containsAnyNameToken(altLower, institutionName) {
		score += 0.3
	}

	if img.Width >= 50 && img.Width <= 400 && img.Height >= 50 && img.Height <= 200 {
		score += 0.2
	}

	loc := strings.ToLower(img.DOMLocationTag)
	if loc == "header" || loc == "near-title" {
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func containsAnyNameToken(haystack, name string) bool {
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		if len(tok) >= 3 && strings.Contains(haystack, tok) {
			return true
		}
	}
	return false
}

// LogoThreshold is the minimum confidence classifying an image as a logo
// candidate (spec.md §4.6).
const LogoThreshold = 0.5

// ImageRelevance implements spec.md §4.6's 0–6 integer relevance scale.
// Bands are checked in the fixed order 6, 5, 4, 3, 0, 2, 1 and the first
// match wins (DESIGN.md Open Question 2's decision). The advertisement band
// (0) is checked ahead of the decorative (2) and icon (1) bands, since their
// dimension predicates (isSmall, isIcon) are strict supersets of an
// ad/tracker image's usual size and would otherwise shadow the explicit
// ad-terms signal. The decorative band is checked ahead of the icon band, so
// an image of 64 px or less scores 2 (isSmall already holds for it); band 1
// is reached only by images at least 200 px on both sides that carry a
// UI-affordance term or match no other band.
func ImageRelevance(img Image, logoConfidence float64) int {
	altLower := strings.ToLower(img.Alt)
	contextLower := strings.ToLower(img.SurroundingTextSnippet)
	combined := altLower + " " + contextLower

	if logoConfidence >= 0.8 {
		return 6
	}

	isPhotoDims := img.Width >= 300 && img.Height >= 300
	if containsAny(combined, campusTerms) && isPhotoDims {
		return 5
	}

	isMidDims := img.Width >= 200 && img.Height >= 200
	if containsAny(combined, activityTerms) && isMidDims {
		return 4
	}

	loc := strings.ToLower(img.DOMLocationTag)
	if loc == "main-content" || loc == "main" {
		return 3
	}

	if containsAny(combined, advertisementTerms) {
		return 0
	}

	isSmall := img.Width < 200 || img.Height < 200
	if isSmall || containsAny(combined, decorativeKeywords) {
		return 2
	}

	isIcon := img.Width <= 64 && img.Height <= 64
	if isIcon || containsAny(combined, uiAffordanceTerms) {
		return 1
	}

	// No band matched explicitly: conservative default is the lowest
	// non-zero band rather than guessing relevance upward.
	return 1
}

func containsAny(haystack string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

// Score applies both heuristics to img, returning the combined
// spec.md §3 "Scored media" record.
func Score(img Image, institutionName string) ScoredImage {
	conf := LogoConfidence(img, institutionName)
	return ScoredImage{
		Image:           img,
		LogoConfidence:  conf,
		RelevanceScore:  ImageRelevance(img, conf),
		IsLogoCandidate: conf >= LogoThreshold,
	}
}
