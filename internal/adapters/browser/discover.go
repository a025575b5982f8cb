package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/snapwatch/worker/internal/ports"
)

const (
	// DefaultDiscoverPages applies when the caller sends no limit.
	DefaultDiscoverPages = 10
	// MaxDiscoverPages is the hard ceiling on one discovery run.
	MaxDiscoverPages = 50
)

// htmlRenderer is the rendering capability discovery needs.
type htmlRenderer interface {
	RenderHTML(ctx context.Context, url string) (string, error)
}

// Discoverer implements ports.PageDiscoverer by rendering the domain's
// landing page in a pooled browser and extracting same-host anchors.
type Discoverer struct {
	renderer htmlRenderer
}

func NewDiscoverer(renderer htmlRenderer) *Discoverer {
	return &Discoverer{renderer: renderer}
}

// Discover renders https://{domain} and returns up to maxPages unique
// same-host links in document order, plus the total found before the cap.
func (d *Discoverer) Discover(ctx context.Context, domain string, maxPages int) ([]ports.DiscoveredPage, int, error) {
	if maxPages <= 0 {
		maxPages = DefaultDiscoverPages
	}
	if maxPages > MaxDiscoverPages {
		maxPages = MaxDiscoverPages
	}

	base := domain
	if !strings.Contains(base, "://") {
		base = "https://" + domain
	}
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return nil, 0, fmt.Errorf("invalid domain %q", domain)
	}

	html, err := d.renderer.RenderHTML(ctx, baseURL.String())
	if err != nil {
		return nil, 0, err
	}
	return extractSameHostLinks(html, baseURL, maxPages)
}

// extractSameHostLinks parses rendered markup and collects unique
// same-host links in document order. The returned total counts every
// unique same-host link, including those beyond the cap.
func extractSameHostLinks(html string, baseURL *url.URL, maxPages int) ([]ports.DiscoveredPage, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var pages []ports.DiscoveredPage
	seen := make(map[string]bool)
	total := 0

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" || href == "#" {
			return
		}
		linkURL, err := baseURL.Parse(href)
		if err != nil {
			return
		}
		if linkURL.Scheme != "http" && linkURL.Scheme != "https" {
			return
		}
		if linkURL.Host != baseURL.Host {
			return
		}
		linkURL.Fragment = ""

		abs := linkURL.String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		total++

		if len(pages) >= maxPages {
			return
		}
		pages = append(pages, ports.DiscoveredPage{
			URL:   abs,
			Title: strings.TrimSpace(s.Text()),
		})
	})
	return pages, total, nil
}
