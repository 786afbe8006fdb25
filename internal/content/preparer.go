// Package content implements the ContentPreparer of spec.md §4.7: it
// assembles a single bounded text payload for the extractor from whatever
// upstream phases produced, in priority order, truncating at a sentence or
// paragraph boundary within 10% of the budget.
package content

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/yourorg/institution-profiler/internal/crawl"
)

// Budgets are the spec's four priority-branch hard caps (spec.md §4.7).
const (
	CrawlBudget       = 12000
	CrawlPerPageBudget = 2000
	SearchDescriptionBudget = 8000
	SearchSnippetBudget     = 4000
	DirectTextBudget        = 6000
)

// Branch records which priority branch produced the prepared text, for
// benchmarking and tests.
type Branch string

const (
	BranchCrawl           Branch = "crawl"
	BranchSearchDescription Branch = "search_description"
	BranchSearchSnippet     Branch = "search_snippet"
	BranchDirectText        Branch = "direct_text"
	BranchEmpty             Branch = "empty"
)

// Inputs bundles everything the preparer may draw from, per spec.md §4.7's
// priority order.
type Inputs struct {
	CrawlPages          []crawl.PageResult
	SearchDescription   string // multi-paragraph description, if the provider returned one
	SearchSnippet       string // short single-line snippet
	DirectText          string // caller-supplied text (spec.md §6.4 direct input)
}

// Prepared is the preparer's output.
type Prepared struct {
	Text   string
	Branch Branch
}

// Prepare implements spec.md §4.7's four-branch priority order and
// truncation policy. Output length never exceeds the selected branch's
// hard cap (spec.md §8 property 6); multi-page output preserves
// `[page N: url]` source-attribution headers between sections.
func Prepare(in Inputs) Prepared {
	if pages := successfulPages(in.CrawlPages); len(pages) > 0 {
		return Prepared{Text: assembleCrawl(pages), Branch: BranchCrawl}
	}
	if isMultiParagraph(in.SearchDescription) {
		return Prepared{Text: truncate(in.SearchDescription, SearchDescriptionBudget), Branch: BranchSearchDescription}
	}
	if strings.TrimSpace(in.SearchSnippet) != "" {
		return Prepared{Text: truncate(in.SearchSnippet, SearchSnippetBudget), Branch: BranchSearchSnippet}
	}
	if strings.TrimSpace(in.DirectText) != "" {
		return Prepared{Text: truncate(in.DirectText, DirectTextBudget), Branch: BranchDirectText}
	}
	return Prepared{Text: "", Branch: BranchEmpty}
}

func successfulPages(pages []crawl.PageResult) []crawl.PageResult {
	var out []crawl.PageResult
	for _, p := range pages {
		if p.Err == nil && p.Artifact.URL != "" {
			out = append(out, p)
		}
	}
	return out
}

// assembleCrawl concatenates {page_title, cleaned markdown, compact
// JSON-LD} per page, each capped at CrawlPerPageBudget, with
// `[page N: url]` attribution headers, total capped at CrawlBudget
// (spec.md §4.7 branch 1).
func assembleCrawl(pages []crawl.PageResult) string {
	var sections []string
	for i, p := range pages {
		var sb strings.Builder
		if p.Artifact.Markdown.PageTitle != "" {
			sb.WriteString(p.Artifact.Markdown.PageTitle)
			sb.WriteString("\n\n")
		}
		sb.WriteString(p.Artifact.Markdown.PrimaryContent)
		if jsonLD := compactJSONLD(p.Artifact.StructuredDataList); jsonLD != "" {
			sb.WriteString("\n\n")
			sb.WriteString(jsonLD)
		}
		section := truncate(sb.String(), CrawlPerPageBudget)

		header := "[page " + strconv.Itoa(i+1) + ": " + p.Artifact.URL + "]"
		sections = append(sections, header+"\n"+section)
	}
	joined := strings.Join(sections, "\n\n")
	return truncate(joined, CrawlBudget)
}

func compactJSONLD(list []map[string]interface{}) string {
	if len(list) == 0 {
		return ""
	}
	data, err := json.Marshal(list)
	if err != nil {
		return ""
	}
	return string(data)
}

// isMultiParagraph reports whether s contains more than one paragraph,
// per spec.md §4.7 branch 2's "multi-paragraph description" gate.
func isMultiParagraph(s string) bool {
	return strings.Count(strings.TrimSpace(s), "\n\n") >= 1
}

// truncate enforces budget, preferring a sentence or paragraph boundary
// within 10% of the budget; falling back to a whitespace boundary
// (spec.md §4.7 "Truncation policy").
func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	window := s[:budget]
	tolerance := budget / 10

	for _, boundary := range []string{"\n\n", ". ", "\n"} {
		if idx := strings.LastIndex(window, boundary); idx >= budget-tolerance {
			return window[:idx+len(boundary)]
		}
	}
	if idx := strings.LastIndexByte(window, ' '); idx > 0 {
		return window[:idx]
	}
	return window
}
