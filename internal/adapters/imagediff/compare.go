package imagediff

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/orisano/pixelmatch"

	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/ports"
)

// Fixed pixelmatch parameters so results stay comparable across runs.
const (
	matchThreshold = 0.1
	matchAlpha     = 0.1
)

var (
	diffColor = color.RGBA{R: 255, G: 0, B: 128, A: 255}
	aaColor   = color.RGBA{R: 0, G: 255, B: 128, A: 255}
)

// Differ implements ports.ImageDiffer with pixelmatch over
// dimension-reconciled inputs.
type Differ struct{}

func New() *Differ {
	return &Differ{}
}

// Compare diffs two PNG buffers. Differing dimensions are reconciled to
// the shared minimum with a cover fit anchored at the top, never an
// error. With renderDiff a PNG highlighting changed pixels is returned
// alongside the stats.
func (d *Differ) Compare(before, after []byte, renderDiff bool) (*ports.DiffStats, []byte, error) {
	first, err := png.Decode(bytes.NewReader(before))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: first image: %v", domain.ErrDecodeImage, err)
	}
	second, err := png.Decode(bytes.NewReader(after))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: second image: %v", domain.ErrDecodeImage, err)
	}

	width := min(first.Bounds().Dx(), second.Bounds().Dx())
	height := min(first.Bounds().Dy(), second.Bounds().Dy())
	a := reconcile(first, width, height)
	b := reconcile(second, width, height)

	opts := []pixelmatch.MatchOption{
		pixelmatch.Threshold(matchThreshold),
		pixelmatch.IncludeAntiAlias,
		pixelmatch.Alpha(matchAlpha),
		pixelmatch.DiffColor(diffColor),
		pixelmatch.AntiAliasedColor(aaColor),
	}
	var diffImg image.Image
	if renderDiff {
		opts = append(opts, pixelmatch.WriteTo(&diffImg))
	}

	diffPixels, err := pixelmatch.MatchPixel(a, b, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrComparisonFailed, err)
	}

	total := width * height
	stats := &ports.DiffStats{
		DiffPixels:     diffPixels,
		TotalPixels:    total,
		DiffPercentage: round2(100 * float64(diffPixels) / float64(total)),
		Width:          width,
		Height:         height,
	}

	if !renderDiff || diffImg == nil {
		return stats, nil, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, diffImg); err != nil {
		return nil, nil, fmt.Errorf("failed to encode diff image: %w", err)
	}
	return stats, buf.Bytes(), nil
}

// reconcile brings an image to the target dimensions with a cover fit
// anchored top, then normalizes to RGBA.
func reconcile(img image.Image, width, height int) *image.RGBA {
	if img.Bounds().Dx() != width || img.Bounds().Dy() != height {
		img = imaging.Fill(img, width, height, imaging.Top, imaging.Lanczos)
	}
	return toRGBA(img)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
