package usecases

import (
	"context"
	"strings"

	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/ports"
)

const (
	defaultDiscoveryPages = 10
	maxDiscoveryPages     = 50
)

// DiscoverPages finds candidate pages on a domain, preferring the
// configured discovery service and falling back to local crawling.
type DiscoverPages struct {
	remote ports.PageDiscoverer
	local  ports.PageDiscoverer
}

// NewDiscoverPages accepts a nil remote discoverer; the local one is
// required.
func NewDiscoverPages(remote, local ports.PageDiscoverer) *DiscoverPages {
	return &DiscoverPages{remote: remote, local: local}
}

type DiscoverPagesInput struct {
	Domain   string
	MaxPages int
}

type DiscoverPagesOutput struct {
	Pages      []ports.DiscoveredPage
	TotalFound int
}

func (uc *DiscoverPages) Execute(ctx context.Context, input DiscoverPagesInput) (*DiscoverPagesOutput, error) {
	host, err := normalizeDomain(input.Domain)
	if err != nil {
		return nil, err
	}

	maxPages := input.MaxPages
	if maxPages <= 0 {
		maxPages = defaultDiscoveryPages
	}
	if maxPages > maxDiscoveryPages {
		maxPages = maxDiscoveryPages
	}

	discoverer := uc.local
	if uc.remote != nil {
		discoverer = uc.remote
	}

	pages, total, err := discoverer.Discover(ctx, host, maxPages)
	if err != nil {
		return nil, err
	}
	return &DiscoverPagesOutput{Pages: pages, TotalFound: total}, nil
}

// normalizeDomain reduces user input to a bare hostname, tolerating a
// pasted URL but rejecting anything with a path or whitespace.
func normalizeDomain(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimSuffix(host, "/")
	if host == "" {
		return "", domain.NewDomainError(domain.ErrInvalidDomain, "domain is required")
	}
	if strings.ContainsAny(host, "/ \t") {
		return "", domain.NewDomainError(domain.ErrInvalidDomain, "domain must be a bare hostname")
	}
	return host, nil
}
