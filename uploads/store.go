// Package uploads normalizes and stores report images on local disk.
// Every stored file is a JPEG bounded to 1200×1200, named by a generated
// id that doubles as the deletion key, and served from /uploads.
package uploads

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // webp decode support for imaging.Decode

	"github.com/Adnan2208/EcoTech/models"
)

const (
	MaxFileSize = 5 << 20 // 5 MB per image
	MaxFiles    = 5

	maxDimension = 1200
	jpegQuality  = 80
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

func AllowedType(contentType string) bool {
	return allowedTypes[contentType]
}

type Store struct {
	Dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// Process validates, normalizes and stores one multipart image.
func (s *Store) Process(fh *multipart.FileHeader) (models.Image, error) {
	if fh.Size > MaxFileSize {
		return models.Image{}, fmt.Errorf("image %s exceeds the 5MB limit", fh.Filename)
	}
	if ct := fh.Header.Get("Content-Type"); !AllowedType(ct) {
		return models.Image{}, fmt.Errorf("only JPEG, PNG, and WebP images are allowed")
	}

	src, err := fh.Open()
	if err != nil {
		return models.Image{}, err
	}
	defer src.Close()

	processed, err := Normalize(src)
	if err != nil {
		return models.Image{}, fmt.Errorf("image processing failed: %w", err)
	}

	name := uuid.NewString() + ".jpg"
	if err := os.WriteFile(filepath.Join(s.Dir, name), processed, 0o644); err != nil {
		return models.Image{}, err
	}
	return models.Image{URL: "/uploads/" + name, PublicID: name}, nil
}

// Remove deletes a stored file by its public id. A missing file is not an
// error.
func (s *Store) Remove(publicID string) error {
	err := os.Remove(filepath.Join(s.Dir, filepath.Base(publicID)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Normalize decodes an image, scales it to fit 1200×1200 without
// upscaling, and re-encodes it as JPEG.
func Normalize(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	// Fit only ever scales down; smaller images pass through unchanged.
	img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
