package models

import (
	"testing"
)

func TestViewportTagForWidth(t *testing.T) {
	tests := []struct {
		name  string
		width int
		want  string
	}{
		{name: "narrow phone", width: 320, want: ViewportTagMobile},
		{name: "standard phone", width: 375, want: ViewportTagMobile},
		{name: "mobile boundary", width: 480, want: ViewportTagMobile},
		{name: "just above mobile", width: 481, want: ViewportTagTablet},
		{name: "standard tablet", width: 768, want: ViewportTagTablet},
		{name: "tablet boundary", width: 1024, want: ViewportTagTablet},
		{name: "just above tablet", width: 1025, want: ViewportTagDesktop},
		{name: "full hd", width: 1920, want: ViewportTagDesktop},
		{name: "4k", width: 3840, want: ViewportTagDesktop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ViewportTagForWidth(tt.width); got != tt.want {
				t.Errorf("ViewportTagForWidth(%d) = %s, want %s", tt.width, got, tt.want)
			}
		})
	}
}

func TestViewportForWidth_Heights(t *testing.T) {
	tests := []struct {
		width      int
		wantHeight int
	}{
		{width: 375, wantHeight: 812},
		{width: 768, wantHeight: 1024},
		{width: 1920, wantHeight: 1080},
		{width: 480, wantHeight: 812},
		{width: 1024, wantHeight: 1024},
		{width: 2560, wantHeight: 1080},
	}

	for _, tt := range tests {
		vp := ViewportForWidth(tt.width)
		if vp.Height != tt.wantHeight {
			t.Errorf("ViewportForWidth(%d).Height = %d, want %d", tt.width, vp.Height, tt.wantHeight)
		}
		if vp.Width != tt.width {
			t.Errorf("ViewportForWidth(%d).Width = %d", tt.width, vp.Width)
		}
	}
}

func TestIsValidViewportWidth(t *testing.T) {
	if !IsValidViewportWidth(320) {
		t.Error("expected 320 to be valid")
	}
	if !IsValidViewportWidth(3840) {
		t.Error("expected 3840 to be valid")
	}
	if IsValidViewportWidth(319) {
		t.Error("expected 319 to be rejected")
	}
	if IsValidViewportWidth(3841) {
		t.Error("expected 3841 to be rejected")
	}
	if IsValidViewportWidth(0) {
		t.Error("expected 0 to be rejected")
	}
}

func TestSortWidthsDescending(t *testing.T) {
	in := []int{375, 1920, 768}
	got := SortWidthsDescending(in)

	want := []int{1920, 768, 375}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortWidthsDescending(%v) = %v, want %v", in, got, want)
		}
	}

	// Input must not be mutated
	if in[0] != 375 {
		t.Errorf("input slice was mutated: %v", in)
	}
}

func TestNamedViewports(t *testing.T) {
	if NamedViewports[ViewportTagMobile].Width != 375 || NamedViewports[ViewportTagMobile].Height != 812 {
		t.Errorf("unexpected mobile viewport: %+v", NamedViewports[ViewportTagMobile])
	}
	if NamedViewports[ViewportTagTablet].Width != 768 || NamedViewports[ViewportTagTablet].Height != 1024 {
		t.Errorf("unexpected tablet viewport: %+v", NamedViewports[ViewportTagTablet])
	}
	if NamedViewports[ViewportTagDesktop].Width != 1920 || NamedViewports[ViewportTagDesktop].Height != 1080 {
		t.Errorf("unexpected desktop viewport: %+v", NamedViewports[ViewportTagDesktop])
	}
}
