package models

import (
	"time"
)

// DefaultScreenshotIntervalMinutes is the hardcoded fallback when no
// page, site or user override applies.
const DefaultScreenshotIntervalMinutes = 1440

// MinScreenshotIntervalMinutes is the smallest accepted capture interval.
const MinScreenshotIntervalMinutes = 5

// Page is a single monitored URL within a Site
type Page struct {
	ID     string `json:"id"`
	SiteID string `json:"site_id"`
	URL    string `json:"url"`
	Name   string `json:"name"`

	// Optional overrides; nil means inherit from the site
	ScreenshotInterval *int  `json:"screenshot_interval,omitempty"`
	Viewports          []int `json:"viewports,omitempty"`

	IsActive         bool       `json:"is_active"`
	LastScreenshotAt *time.Time `json:"last_screenshot_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewPage(id, siteID, url, name string) *Page {
	now := time.Now().UTC()
	return &Page{
		ID:        id,
		SiteID:    siteID,
		URL:       url,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkCaptured records a successful capture time.
func (p *Page) MarkCaptured(at time.Time) {
	t := at.UTC()
	p.LastScreenshotAt = &t
	p.UpdatedAt = time.Now().UTC()
}

// EffectiveInterval resolves the capture interval in minutes through the
// page, site, user-settings, default chain.
func EffectiveInterval(page *Page, site *Site, settings *UserSettings) int {
	if page != nil && page.ScreenshotInterval != nil && *page.ScreenshotInterval > 0 {
		return *page.ScreenshotInterval
	}
	if site != nil && site.ScreenshotInterval != nil && *site.ScreenshotInterval > 0 {
		return *site.ScreenshotInterval
	}
	if settings != nil && settings.ScreenshotInterval > 0 {
		return settings.ScreenshotInterval
	}
	return DefaultScreenshotIntervalMinutes
}

// EffectiveViewports resolves the viewport width list through the same
// chain as EffectiveInterval. The result is never empty.
func EffectiveViewports(page *Page, site *Site, settings *UserSettings) []int {
	if page != nil && len(page.Viewports) > 0 {
		return page.Viewports
	}
	if site != nil && len(site.Viewports) > 0 {
		return site.Viewports
	}
	if settings != nil && len(settings.Viewports) > 0 {
		return settings.Viewports
	}
	return DefaultViewportWidths
}

// IsDue reports whether a page needs a scheduled capture at the given
// time for the given effective interval. Pending jobs and retry cooldown
// are handled by the scheduler, not here.
func (p *Page) IsDue(now time.Time, intervalMinutes int) bool {
	if !p.IsActive {
		return false
	}
	if p.LastScreenshotAt == nil {
		return true
	}
	return now.Sub(*p.LastScreenshotAt) >= time.Duration(intervalMinutes)*time.Minute
}
