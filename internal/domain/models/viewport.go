package models

import "sort"

// Viewport tags derived from capture width
const (
	ViewportTagMobile  = "mobile"
	ViewportTagTablet  = "tablet"
	ViewportTagDesktop = "desktop"
)

// Width breakpoints separating the tags
const (
	MobileMaxWidth = 480
	TabletMaxWidth = 1024
)

// Bounds accepted for configured viewport widths
const (
	MinViewportWidth = 320
	MaxViewportWidth = 3840
)

// Initial capture heights per tag, before the full-page resize
const (
	MobileHeight  = 812
	TabletHeight  = 1024
	DesktopHeight = 1080
)

// Viewport is a concrete width/height pair used for capture.
type Viewport struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tag    string `json:"tag"`
}

// NamedViewports maps tag names to their standard dimensions.
var NamedViewports = map[string]Viewport{
	ViewportTagMobile:  {Width: 375, Height: 812, Tag: ViewportTagMobile},
	ViewportTagTablet:  {Width: 768, Height: 1024, Tag: ViewportTagTablet},
	ViewportTagDesktop: {Width: 1920, Height: 1080, Tag: ViewportTagDesktop},
}

// DefaultViewportWidths applies when neither page, site nor user settings
// configure viewports.
var DefaultViewportWidths = []int{1920, 768, 375}

// ViewportTagForWidth classifies a pixel width into mobile, tablet or desktop.
func ViewportTagForWidth(width int) string {
	switch {
	case width <= MobileMaxWidth:
		return ViewportTagMobile
	case width <= TabletMaxWidth:
		return ViewportTagTablet
	default:
		return ViewportTagDesktop
	}
}

// ViewportForWidth builds the capture viewport for a configured width.
func ViewportForWidth(width int) Viewport {
	tag := ViewportTagForWidth(width)
	height := DesktopHeight
	switch tag {
	case ViewportTagMobile:
		height = MobileHeight
	case ViewportTagTablet:
		height = TabletHeight
	}
	return Viewport{Width: width, Height: height, Tag: tag}
}

// IsValidViewportWidth reports whether a configured width is within bounds.
func IsValidViewportWidth(width int) bool {
	return width >= MinViewportWidth && width <= MaxViewportWidth
}

// SortWidthsDescending returns a copy of widths ordered widest first,
// the order viewports are captured in.
func SortWidthsDescending(widths []int) []int {
	sorted := make([]int, len(widths))
	copy(sorted, widths)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	return sorted
}
