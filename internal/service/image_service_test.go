package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"pawhaven/internal/config"
	"pawhaven/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"Plain", "photo.jpg", "photo.jpg"},
		{"Spaces", "my photo.jpg", "my_photo.jpg"},
		{"Path Traversal", "../../etc/passwd", "passwd"},
		{"Leading Dots", "..hidden.png", "hidden.png"},
		{"Unicode", "фото.png", "png"},
		{"Empty", "", "upload"},
		{"Only Unsafe", "..", "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.in))
		})
	}
}

func TestDefaultImageIDByPetType(t *testing.T) {
	assert.Equal(t, uint(models.DefaultDogImageID), DefaultImageID("dog"))
	assert.Equal(t, uint(models.DefaultDogImageID), DefaultImageID("Dog"))
	assert.Equal(t, uint(models.DefaultDogImageID), DefaultImageID("bulldog"))
	assert.Equal(t, uint(models.DefaultImageID), DefaultImageID("cat"))
	assert.Equal(t, uint(models.DefaultImageID), DefaultImageID(""))
}

func TestPath(t *testing.T) {
	svc := NewImageService(&stubImageRepo{}, &config.Config{UploadDir: t.TempDir()})

	assert.Equal(t, "", svc.Path(nil))
	assert.Equal(t, "/static/pic/default_image.jpeg",
		svc.Path(&models.Image{ID: models.DefaultImageID, Filename: "default_image.jpeg"}))
	assert.Equal(t, "/static/pic/upload_folder/abc_photo.jpg",
		svc.Path(&models.Image{ID: 9, Filename: "abc_photo.jpg"}))
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUpload_RejectsEmptyAndNonImage(t *testing.T) {
	svc := NewImageService(&stubImageRepo{}, &config.Config{UploadDir: t.TempDir()})
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{})
	assert.Error(t, err)

	_, err = svc.Upload(ctx, UploadInput{Filename: "nope.txt", Content: []byte("just text, not pixels")})
	assert.Error(t, err)

	// valid MIME prefix but undecodable payload
	_, err = svc.Upload(ctx, UploadInput{Filename: "broken.png", Content: append([]byte("\x89PNG\r\n\x1a\n"), []byte("garbage")...)})
	assert.Error(t, err)
}

func TestUpload_StoresFileAndMetadata(t *testing.T) {
	dir := t.TempDir()
	repo := &stubImageRepo{}
	svc := NewImageService(repo, &config.Config{UploadDir: dir})

	img, err := svc.Upload(context.Background(), UploadInput{
		Filename: "my photo.png",
		Content:  testPNG(t),
	})
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.NotEmpty(t, img.FileHash)
	assert.Contains(t, img.Filename, "my_photo.png")

	stored, err := os.ReadFile(filepath.Join(dir, img.Filename))
	require.NoError(t, err)
	assert.Equal(t, testPNG(t), stored)

	// the webp variant is written next to the original
	_, err = os.Stat(filepath.Join(dir, img.Filename+".webp"))
	assert.NoError(t, err)
}
