package crawl

import "github.com/yourorg/institution-profiler/internal/search"

// TierBudget is the per-tier (max depth, max pages) resource allocation
// (spec.md §4.6's table).
type TierBudget struct {
	MaxDepth int
	MaxPages int
}

// DefaultTierBudgets is the spec's default table, keyed by search.Tier.
var DefaultTierBudgets = map[search.Tier]TierBudget{
	search.TierHigh:   {MaxDepth: 3, MaxPages: 25},
	search.TierMedium: {MaxDepth: 2, MaxPages: 15},
	search.TierLow:    {MaxDepth: 1, MaxPages: 8},
}

// Strategy is the crawl-tier strategy selector (spec.md §6.4 "strategy").
type Strategy string

const (
	StrategyEqual        Strategy = "equal"
	StrategyPriorityBased Strategy = "priority_based"
	StrategyHighLinks     Strategy = "high_links"
	StrategyHighDepth     Strategy = "high_depth"
)

// ResolveTierBudgets modulates DefaultTierBudgets by strategy
// (spec.md §4.6: "the strategy modulates the tier table").
func ResolveTierBudgets(strategy Strategy) map[search.Tier]TierBudget {
	base := map[search.Tier]TierBudget{}
	for k, v := range DefaultTierBudgets {
		base[k] = v
	}

	switch strategy {
	case StrategyEqual:
		mid := base[search.TierMedium]
		for k := range base {
			base[k] = mid
		}
	case StrategyHighLinks:
		for k, v := range base {
			v.MaxPages = v.MaxPages + v.MaxPages/2
			base[k] = v
		}
	case StrategyHighDepth:
		for k, v := range base {
			v.MaxDepth++
			base[k] = v
		}
	case StrategyPriorityBased, "":
		// default table as-is
	}
	return base
}

// applyGlobalCap shrinks each tier's MaxPages proportionally so the sum
// across tiers never exceeds maxPages (spec.md §6.4 "max_pages").
func applyGlobalCap(budgets map[search.Tier]TierBudget, maxPages int) map[search.Tier]TierBudget {
	if maxPages <= 0 {
		return budgets
	}
	total := 0
	for _, b := range budgets {
		total += b.MaxPages
	}
	if total <= maxPages {
		return budgets
	}
	out := map[search.Tier]TierBudget{}
	remaining := maxPages
	order := []search.Tier{search.TierHigh, search.TierMedium, search.TierLow}
	for i, tier := range order {
		b := budgets[tier]
		var allotted int
		if i == len(order)-1 {
			allotted = remaining
		} else {
			allotted = b.MaxPages * maxPages / total
			if allotted > remaining {
				allotted = remaining
			}
		}
		b.MaxPages = allotted
		out[tier] = b
		remaining -= allotted
	}
	return out
}
