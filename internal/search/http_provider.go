package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SerpAPIProvider implements Provider against SerpAPI's JSON search
// endpoint via plain net/http — justified stdlib use: no search-engine API
// client appears anywhere in the example pack, so there is no ecosystem
// library to adopt in its place.
type SerpAPIProvider struct {
	apiKey string
	client *http.Client
}

// NewSerpAPIProvider builds a provider against https://serpapi.com/search.
func NewSerpAPIProvider(apiKey string) *SerpAPIProvider {
	return &SerpAPIProvider{apiKey: apiKey, client: &http.Client{Timeout: 15 * time.Second}}
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search issues one query against SerpAPI and maps its organic results
// onto Result (spec.md §6.1).
func (p *SerpAPIProvider) Search(ctx context.Context, query string, numResults int, language, country string, safeSearch bool) ([]Result, error) {
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("num", strconv.Itoa(numResults))
	q.Set("hl", language)
	q.Set("gl", country)
	if safeSearch {
		q.Set("safe", "active")
	}
	q.Set("api_key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://serpapi.com/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	var parsed serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	out := make([]Result, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		out = append(out, Result{URL: r.Link, Title: r.Title, Snippet: r.Snippet, Domain: hostOf(r.Link)})
	}
	return out, nil
}

func hostOf(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
