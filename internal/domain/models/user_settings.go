package models

import (
	"time"
)

// Default GFS retention tier limits
const (
	DefaultKeepPerDay   = 4
	DefaultKeepPerWeek  = 2
	DefaultKeepPerMonth = 1
	DefaultKeepPerYear  = 1
)

// UserSettings holds per-user capture defaults and the retention policy
type UserSettings struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// Capture defaults applied when pages and sites carry no override
	ScreenshotInterval int   `json:"screenshot_interval"`
	Viewports          []int `json:"viewports"`

	// Retention policy
	RetentionEnabled      bool `json:"retention_enabled"`
	MaxScreenshotsPerPage *int `json:"max_screenshots_per_page,omitempty"`
	MaxAgeDays            *int `json:"max_age_days,omitempty"`
	KeepPerDay            int  `json:"keep_per_day"`
	KeepPerWeek           int  `json:"keep_per_week"`
	KeepPerMonth          int  `json:"keep_per_month"`
	KeepPerYear           int  `json:"keep_per_year"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserSettings(id, userID string) *UserSettings {
	now := time.Now().UTC()
	return &UserSettings{
		ID:                 id,
		UserID:             userID,
		ScreenshotInterval: DefaultScreenshotIntervalMinutes,
		Viewports:          append([]int(nil), DefaultViewportWidths...),
		RetentionEnabled:   false,
		KeepPerDay:         DefaultKeepPerDay,
		KeepPerWeek:        DefaultKeepPerWeek,
		KeepPerMonth:       DefaultKeepPerMonth,
		KeepPerYear:        DefaultKeepPerYear,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// RetentionSettings is the subset of UserSettings the retention engine
// consumes, detached so sweeps can pass it around by value.
type RetentionSettings struct {
	MaxScreenshotsPerPage *int
	MaxAgeDays            *int
	KeepPerDay            int
	KeepPerWeek           int
	KeepPerMonth          int
	KeepPerYear           int
}

func (s *UserSettings) Retention() RetentionSettings {
	return RetentionSettings{
		MaxScreenshotsPerPage: s.MaxScreenshotsPerPage,
		MaxAgeDays:            s.MaxAgeDays,
		KeepPerDay:            s.KeepPerDay,
		KeepPerWeek:           s.KeepPerWeek,
		KeepPerMonth:          s.KeepPerMonth,
		KeepPerYear:           s.KeepPerYear,
	}
}
