// Package crawl implements the CrawlPhase of spec.md §4.6: turning
// prioritized URLs into rich per-page artifacts, scored media, and an
// aggregated text payload, through the narrow crawler engine capability of
// §6.2 (backed by go-rod in production).
package crawl

import "time"

// Image is one per-page image record (spec.md §3).
type Image struct {
	Src                   string
	Alt                    string
	Width                  int
	Height                 int
	SurroundingTextSnippet string
	DOMLocationTag         string
}

// Artifact is the crawler engine's per-URL result (spec.md §3
// "Crawl artifact").
type Artifact struct {
	URL                string
	Status             int
	RawHTML            string
	CleanedHTML        string
	Markdown           Markdown
	StructuredDataList []map[string]interface{}
	Images             []Image
	Videos             []string
	Audio              []string
	InternalLinks      []string
	ExternalLinks      []string
	Metadata           map[string]string
	FetchedAt          time.Time
	SizeBytes          int64
}

// Markdown is the crawler engine's markdown rendering, split into the
// section ContentPreparer reads (spec.md §4.7's "markdown.primary_content").
type Markdown struct {
	PrimaryContent string
	PageTitle      string
}

// ScoredImage is an Image with the two media-relevance heuristics applied
// (spec.md §3 "Scored media").
type ScoredImage struct {
	Image
	LogoConfidence  float64
	RelevanceScore  int
	IsLogoCandidate bool
}
