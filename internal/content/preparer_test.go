package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/institution-profiler/internal/crawl"
)

func TestPrepareCrawlBranch(t *testing.T) {
	pages := []crawl.PageResult{
		{Artifact: crawl.Artifact{URL: "https://a.edu", Markdown: crawl.Markdown{PageTitle: "A University", PrimaryContent: "About A University."}}},
	}
	p := Prepare(Inputs{CrawlPages: pages})

	assert.Equal(t, BranchCrawl, p.Branch)
	assert.Contains(t, p.Text, "[page 1: https://a.edu]")
	assert.Contains(t, p.Text, "About A University.")
}

func TestPrepareFallsBackThroughBranches(t *testing.T) {
	multiPara := "First paragraph about the org.\n\nSecond paragraph with more detail."
	p := Prepare(Inputs{SearchDescription: multiPara})
	assert.Equal(t, BranchSearchDescription, p.Branch)

	p = Prepare(Inputs{SearchSnippet: "a short one-liner"})
	assert.Equal(t, BranchSearchSnippet, p.Branch)

	p = Prepare(Inputs{DirectText: "caller supplied text"})
	assert.Equal(t, BranchDirectText, p.Branch)
}

// S5 degraded pipeline: every upstream input empty (spec.md §8).
func TestPrepareScenarioS5Empty(t *testing.T) {
	p := Prepare(Inputs{})
	assert.Equal(t, BranchEmpty, p.Branch)
	assert.Equal(t, "", p.Text)
}

// Property 6: output length never exceeds the selected branch's hard cap.
func TestPrepareSizeBound(t *testing.T) {
	long := strings.Repeat("word ", 5000)
	p := Prepare(Inputs{DirectText: long})
	assert.LessOrEqual(t, len(p.Text), DirectTextBudget)

	p = Prepare(Inputs{SearchSnippet: long})
	assert.LessOrEqual(t, len(p.Text), SearchSnippetBudget)
}

func TestPrepareCrawlCapsPerPageAndTotal(t *testing.T) {
	var pages []crawl.PageResult
	for i := 0; i < 10; i++ {
		pages = append(pages, crawl.PageResult{
			Artifact: crawl.Artifact{
				URL:      "https://example.com/p",
				Markdown: crawl.Markdown{PrimaryContent: strings.Repeat("x", 3000)},
			},
		})
	}
	p := Prepare(Inputs{CrawlPages: pages})
	assert.LessOrEqual(t, len(p.Text), CrawlBudget)
}
