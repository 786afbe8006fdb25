// Package scoring implements the QualityScorer of spec.md §4.10: a pure,
// deterministic 0–100 score for a finished institution record, derived from
// weighted field-class presence plus bonus points for visual content,
// richness, data-source quality, and processing success.
package scoring

import "github.com/yourorg/institution-profiler/internal/institution"

// Rating is the named band a numeric score maps onto (spec.md §4.10 step 5).
type Rating string

const (
	RatingExceptional Rating = "Exceptional"
	RatingExcellent   Rating = "Excellent"
	RatingVeryGood    Rating = "Very Good"
	RatingGood        Rating = "Good"
	RatingFair        Rating = "Fair"
	RatingPoor        Rating = "Poor"
	RatingVeryPoor    Rating = "Very Poor"
	RatingMinimal     Rating = "Minimal"
)

// RatingFor maps a clamped 0–100 score onto its named band.
func RatingFor(score float64) Rating {
	switch {
	case score >= 90:
		return RatingExceptional
	case score >= 80:
		return RatingExcellent
	case score >= 70:
		return RatingVeryGood
	case score >= 60:
		return RatingGood
	case score >= 50:
		return RatingFair
	case score >= 35:
		return RatingPoor
	case score >= 20:
		return RatingVeryPoor
	default:
		return RatingMinimal
	}
}

// MediaSignals carries the visual/richness/data-source facts the scorer
// needs beyond the record's own fields (spec.md §4.10 step 4). All counts
// are of the crawl- and extract-derived media already merged into the
// result by the time scoring runs.
type MediaSignals struct {
	HasLogo           bool
	ImageCount        int
	FacilityImageCount int
	CampusImageCount  int
	SocialLinkCount   int
	DocumentCount     int
	SourceCount       int

	CrawlSuccessRate float64 // fraction of attempted URLs that crawled successfully
	TotalBytes       int64   // total bytes captured across crawl artifacts
	CacheHitRate     float64 // fraction of cache lookups this request that were hits

	PhasesOK int // number of phases (search, crawl, extract) that completed without degradation
}

// Breakdown exposes the intermediate components of a Score call, useful
// for benchmarking and for the S6 worked example in spec.md §8.
type Breakdown struct {
	ClassRatios   map[institution.FieldClass]float64
	BaseScore     float64 // 0..1
	BaseComponent float64 // 0..75
	VisualBonus   float64 // 0..8
	RichnessBonus float64 // 0..7
	DataSourceBonus float64 // 0..10
	ProcessBonus  float64 // 0..5
	Total         float64 // 0..100, clamped
	Rating        Rating
}

// Score computes the 0–100 quality score for rec given media and crawl
// signals not carried on the record itself. The function is pure: given the
// same inputs it always returns the same result (spec.md §4.10's closing
// sentence).
func Score(rec *institution.Record, media MediaSignals) Breakdown {
	byClass := institution.FieldsByClass(rec.Type)

	ratios := make(map[institution.FieldClass]float64, 5)
	base := 0.0
	for class, weight := range institution.BaseWeight {
		fields := byClass[class]
		if len(fields) == 0 {
			ratios[class] = 0
			continue
		}
		present := 0
		for _, f := range fields {
			if rec.Has(f.Name) {
				present++
			}
		}
		ratio := float64(present) / float64(len(fields))
		ratios[class] = ratio
		base += weight * ratio
	}

	baseComponent := base * 75

	visual := 0.0
	if media.HasLogo {
		visual += 3
	}
	if media.ImageCount >= 1 {
		visual += 2
	}
	if media.FacilityImageCount >= 1 {
		visual += 2
	}
	if media.CampusImageCount >= 1 {
		visual += 1
	}

	richness := 0.0
	if media.SocialLinkCount >= 1 {
		richness += 2
	}
	if media.DocumentCount >= 1 {
		richness += 2
	}
	if media.SourceCount >= 3 {
		richness += 3
	}

	dataSource := 0.0
	if media.CrawlSuccessRate >= 0.8 {
		dataSource += 3
	}
	if media.TotalBytes > 1<<20 {
		dataSource += 2
	}
	// a low cache-hit rate only counts when at least one source was fetched
	if media.SourceCount > 0 && media.CacheHitRate < 0.3 {
		dataSource += 2
	}
	if media.SourceCount >= 2 {
		dataSource += 3
	}

	// spec.md §4.10 step 4 names only two tiers for this component (all
	// phases ok +3, two ok +2); its "up to 5" cap is the component budget,
	// not a third tier to chase.
	process := 0.0
	switch {
	case media.PhasesOK >= 3:
		process = 3
	case media.PhasesOK == 2:
		process = 2
	}

	total := baseComponent + visual + richness + dataSource + process
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	return Breakdown{
		ClassRatios:     ratios,
		BaseScore:       base,
		BaseComponent:   baseComponent,
		VisualBonus:     visual,
		RichnessBonus:   richness,
		DataSourceBonus: dataSource,
		ProcessBonus:    process,
		Total:           total,
		Rating:          RatingFor(total),
	}
}
