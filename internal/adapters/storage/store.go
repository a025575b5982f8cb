package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/ports"
)

// ThumbnailWidth is the fixed thumbnail width. Narrower screenshots
// keep their size; thumbnails are never enlarged.
const ThumbnailWidth = 400

// Store persists screenshot PNGs and thumbnails under a local root.
// Layout: {pageID}/{YYYY}/{MM}/{epochMs}_{tag}.png plus a _thumb
// sibling; all returned paths are relative to the root.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("screenshots root cannot be empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create screenshots root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

// Write stores the PNG and a thumbnail, reporting relative paths, byte
// size and pixel dimensions. A failed thumbnail is logged and dropped;
// the capture stays usable without it.
func (s *Store) Write(pageID string, takenAt time.Time, viewportTag string, data []byte) (*ports.StoredImage, error) {
	if len(data) == 0 {
		return nil, domain.ErrEmptyScreenshot
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecodeImage, err)
	}
	bounds := img.Bounds()

	dir := filepath.Join(pageID, takenAt.Format("2006"), takenAt.Format("01"))
	if err := os.MkdirAll(filepath.Join(s.root, dir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	base := fmt.Sprintf("%d_%s", takenAt.UnixMilli(), viewportTag)
	imagePath := filepath.Join(dir, base+".png")
	thumbPath := filepath.Join(dir, base+"_thumb.png")

	if err := os.WriteFile(filepath.Join(s.root, imagePath), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write screenshot: %w", err)
	}
	if err := writeThumbnail(img, filepath.Join(s.root, thumbPath)); err != nil {
		log.Printf("Failed to write thumbnail %s: %v", thumbPath, err)
		thumbPath = ""
	}

	return &ports.StoredImage{
		ImagePath:     imagePath,
		ThumbnailPath: thumbPath,
		FileSize:      int64(len(data)),
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
	}, nil
}

// Read returns the bytes of a stored file.
func (s *Store) Read(relPath string) ([]byte, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrScreenshotMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read screenshot: %w", err)
	}
	return data, nil
}

// Remove deletes a stored file. Missing files are not an error so
// retention can re-run over partially deleted state.
func (s *Store) Remove(relPath string) error {
	if relPath == "" {
		return nil
	}
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove screenshot file: %w", err)
	}
	return nil
}

// resolve joins a relative path under the root, rejecting escapes.
func (s *Store) resolve(relPath string) (string, error) {
	clean := filepath.Clean(relPath)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid screenshot path %q", relPath)
	}
	return filepath.Join(s.root, clean), nil
}

func writeThumbnail(img image.Image, path string) error {
	thumb := img
	if img.Bounds().Dx() > ThumbnailWidth {
		thumb = imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	}
	return imaging.Save(thumb, path)
}
