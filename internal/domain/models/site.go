package models

import (
	"time"
)

// Site groups the pages of one monitored domain
type Site struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Domain string `json:"domain"`
	Name   string `json:"name"`

	// Optional overrides; nil means inherit from user settings
	ScreenshotInterval *int  `json:"screenshot_interval,omitempty"`
	Viewports          []int `json:"viewports,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSite(id, userID, domain, name string) *Site {
	now := time.Now().UTC()
	return &Site{
		ID:        id,
		UserID:    userID,
		Domain:    domain,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Site) Deactivate() {
	s.IsActive = false
	s.UpdatedAt = time.Now().UTC()
}

func (s *Site) Activate() {
	s.IsActive = true
	s.UpdatedAt = time.Now().UTC()
}
