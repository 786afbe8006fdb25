package crawl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodEngine implements Engine (spec.md §6.2) against a headless Chrome
// instance via go-rod, grounded on the teacher pack's browser-automation
// usage: one shared *rod.Browser, per-fetch *rod.Page contexts, and
// Elements()/Attribute() DOM walks for link and image extraction.
type RodEngine struct {
	mu      sync.Mutex
	browser *rod.Browser
	headless bool
}

// NewRodEngine returns an engine whose browser runs headless when headless
// is true. It neither launches nor connects the browser: both happen lazily
// on first Fetch, so constructing a Phase never blocks on a browser launch
// that a cache-hit-only run would never need.
func NewRodEngine(headless bool) *RodEngine {
	return &RodEngine{headless: headless}
}

func (e *RodEngine) ensureBrowser() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browser != nil {
		return e.browser, nil
	}
	l := launcher.New().Headless(e.headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("crawl: launch browser: %w", err)
	}
	e.browser = rod.New().ControlURL(controlURL)
	if err := e.browser.Connect(); err != nil {
		return nil, fmt.Errorf("crawl: connect browser: %w", err)
	}
	return e.browser, nil
}

// Close releases the shared browser instance.
func (e *RodEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browser == nil {
		return nil
	}
	err := e.browser.Close()
	e.browser = nil
	return err
}

// Fetch loads url, waits for load, and extracts the full artifact bundle
// (spec.md §6.2). followDepth and maxPagesFromThis are accepted for the
// Engine interface but not used: this engine only fetches the single given
// URL per call and follows no links, matching the Engine interface's
// one-URL-per-call contract used by Phase's worker pool.
func (e *RodEngine) Fetch(ctx context.Context, url string, jsEnabled bool, followDepth, maxPagesFromThis int) (Artifact, error) {
	browser, err := e.ensureBrowser()
	if err != nil {
		return Artifact{}, err
	}

	timeout := 20 * time.Second
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := browser.Context(fetchCtx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return Artifact{}, fmt.Errorf("crawl: open page: %w", err)
	}
	defer page.Close()

	navURL := url
	if !strings.HasPrefix(navURL, "http://") && !strings.HasPrefix(navURL, "https://") {
		navURL = "https://" + navURL
	}
	if err := page.Navigate(navURL); err != nil {
		return Artifact{}, fmt.Errorf("crawl: navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return Artifact{}, fmt.Errorf("crawl: wait load: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return Artifact{}, fmt.Errorf("crawl: read html: %w", err)
	}
	info, err := page.Info()
	if err != nil {
		return Artifact{}, fmt.Errorf("crawl: read info: %w", err)
	}

	images := extractImages(page)
	internal, external := extractLinks(page, navURL)
	structured := extractJSONLD(page)

	return Artifact{
		URL:                navURL,
		Status:             200,
		RawHTML:            html,
		CleanedHTML:        cleanHTML(html),
		Markdown:           Markdown{PrimaryContent: toMarkdown(html), PageTitle: info.Title},
		StructuredDataList: structured,
		Images:             images,
		InternalLinks:      internal,
		ExternalLinks:      external,
		Metadata:           map[string]string{"title": info.Title},
		FetchedAt:          time.Now(),
		SizeBytes:          int64(len(html)),
	}, nil
}

func extractImages(page *rod.Page) []Image {
	elements, err := page.Elements("img")
	if err != nil {
		return nil
	}
	var out []Image
	for _, el := range elements {
		src, _ := el.Attribute("src")
		alt, _ := el.Attribute("alt")
		w, _ := el.Attribute("width")
		h, _ := el.Attribute("height")
		out = append(out, Image{
			Src:            deref(src),
			Alt:            deref(alt),
			Width:          parseIntOr(deref(w), 0),
			Height:         parseIntOr(deref(h), 0),
			DOMLocationTag: domLocationTag(el),
		})
	}
	return out
}

func domLocationTag(el *rod.Element) string {
	inHeader, _ := el.Eval(`() => !!this.closest('header')`)
	if inHeader != nil && inHeader.Value.Bool() {
		return "header"
	}
	inNav, _ := el.Eval(`() => !!this.closest('nav')`)
	if inNav != nil && inNav.Value.Bool() {
		return "nav"
	}
	inMain, _ := el.Eval(`() => !!this.closest('main, article, .content')`)
	if inMain != nil && inMain.Value.Bool() {
		return "main-content"
	}
	return "body"
}

func extractLinks(page *rod.Page, baseURL string) (internal, external []string) {
	elements, err := page.Elements("a[href]")
	if err != nil {
		return nil, nil
	}
	host := hostOf(baseURL)
	for _, el := range elements {
		href, err := el.Attribute("href")
		if err != nil || href == nil || *href == "" {
			continue
		}
		if strings.Contains(*href, hostForMatch(host)) || strings.HasPrefix(*href, "/") {
			internal = append(internal, *href)
		} else if strings.HasPrefix(*href, "http") {
			external = append(external, *href)
		}
	}
	return internal, external
}

func hostOf(u string) string {
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	if idx := strings.Index(u, "/"); idx >= 0 {
		u = u[:idx]
	}
	return u
}

func hostForMatch(host string) string {
	return strings.TrimPrefix(host, "www.")
}

func extractJSONLD(page *rod.Page) []map[string]interface{} {
	elements, err := page.Elements(`script[type="application/ld+json"]`)
	if err != nil {
		return nil
	}
	var out []map[string]interface{}
	for _, el := range elements {
		text, err := el.Text()
		if err != nil || text == "" {
			continue
		}
		out = append(out, map[string]interface{}{"raw": text})
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseIntOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}
