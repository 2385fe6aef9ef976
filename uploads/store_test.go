package uploads

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeScalesDownLargeImages(t *testing.T) {
	out, err := Normalize(bytes.NewReader(pngBytes(t, 2000, 1000)))
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	bounds := decoded.Bounds()
	require.Equal(t, 1200, bounds.Dx())
	require.Equal(t, 600, bounds.Dy()) // aspect preserved
}

func TestNormalizeDoesNotUpscale(t *testing.T) {
	out, err := Normalize(bytes.NewReader(pngBytes(t, 300, 200)))
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 300, decoded.Bounds().Dx())
	require.Equal(t, 200, decoded.Bounds().Dy())
}

func TestNormalizeRejectsNonImage(t *testing.T) {
	_, err := Normalize(strings.NewReader("definitely not an image"))
	require.Error(t, err)
}

// formFile builds a real multipart.FileHeader carrying the given bytes.
func formFile(t *testing.T, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="images"; filename="photo.png"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	files := form.File["images"]
	require.Len(t, files, 1)
	return files[0]
}

func TestStoreProcessSavesJPEG(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	img, err := store.Process(formFile(t, "image/png", pngBytes(t, 100, 80)))
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(img.URL, "/uploads/"))
	require.True(t, strings.HasSuffix(img.PublicID, ".jpg"))
	require.Equal(t, "/uploads/"+img.PublicID, img.URL)

	saved, err := os.ReadFile(filepath.Join(store.Dir, img.PublicID))
	require.NoError(t, err)
	decoded, err := jpeg.Decode(bytes.NewReader(saved))
	require.NoError(t, err)
	require.Equal(t, 100, decoded.Bounds().Dx())
}

func TestStoreProcessRejectsBadType(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Process(formFile(t, "application/pdf", []byte("%PDF-1.4")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "JPEG, PNG, and WebP")
}

func TestStoreRemove(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	img, err := store.Process(formFile(t, "image/png", pngBytes(t, 50, 50)))
	require.NoError(t, err)

	require.NoError(t, store.Remove(img.PublicID))
	_, err = os.Stat(filepath.Join(store.Dir, img.PublicID))
	require.True(t, os.IsNotExist(err))

	// Removing a missing file is not an error.
	require.NoError(t, store.Remove("gone.jpg"))
}
