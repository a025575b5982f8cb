package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSite(t *testing.T) {
	site := NewSite("sws_abc123", "user-1", "example.com", "Example")

	assert.Equal(t, "sws_abc123", site.ID)
	assert.Equal(t, "user-1", site.UserID)
	assert.Equal(t, "example.com", site.Domain)
	assert.Equal(t, "Example", site.Name)
	assert.True(t, site.IsActive, "new sites should start active")
	assert.Nil(t, site.ScreenshotInterval, "interval should inherit until overridden")
	assert.Nil(t, site.Viewports, "viewports should inherit until overridden")
	assert.Equal(t, site.CreatedAt, site.UpdatedAt)
	assert.Equal(t, "UTC", site.CreatedAt.Location().String())
}

func TestSite_DeactivateActivate(t *testing.T) {
	site := NewSite("sws_abc123", "user-1", "example.com", "Example")
	created := site.UpdatedAt

	site.Deactivate()
	assert.False(t, site.IsActive)
	assert.False(t, site.UpdatedAt.Before(created), "UpdatedAt should move forward on deactivate")

	site.Activate()
	assert.True(t, site.IsActive)
}
