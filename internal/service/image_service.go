package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"pawhaven/internal/config"
	"pawhaven/internal/middleware"
	"pawhaven/internal/models"
	"pawhaven/internal/repository"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 10
	WebPQuality                 = 70

	// StaticImagePrefix is where the seeded default images are served from.
	StaticImagePrefix = "/static/pic"
	// UploadImagePrefix is where stored uploads are served from.
	UploadImagePrefix = "/static/pic/upload_folder"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// UploadInput carries one uploaded file through the image pipeline.
type UploadInput struct {
	Filename string
	Content  []byte
}

// ImageService validates uploads, records their metadata and writes the file
// (plus a webp variant) under the configured upload directory.
type ImageService struct {
	repo               repository.ImageRepository
	uploadDir          string
	maxUploadSizeBytes int64
}

// NewImageService builds an ImageService from configuration.
func NewImageService(repo repository.ImageRepository, cfg *config.Config) *ImageService {
	uploadDir := ""
	if cfg != nil {
		uploadDir = cfg.UploadDir
	}
	return &ImageService{
		repo:               repo,
		uploadDir:          uploadDir,
		maxUploadSizeBytes: int64(DefaultImageMaxUploadSizeMB) * 1024 * 1024,
	}
}

// Upload validates and stores one uploaded image. The metadata row is written
// first, then the bytes; a crash in between can orphan the row (known,
// undocumented-recovery risk carried over from the storage design).
func (s *ImageService) Upload(ctx context.Context, in UploadInput) (*models.Image, error) {
	if len(in.Content) == 0 || in.Filename == "" {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !strings.HasPrefix(detectedType, "image/") {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	sum := sha256.Sum256(in.Content)
	storedName := uuid.New().String() + "_" + SanitizeFilename(in.Filename)

	img := &models.Image{
		Filename: storedName,
		FileHash: hex.EncodeToString(sum[:]),
	}
	if err := s.repo.Create(ctx, img); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, models.NewInternalError(err)
	}
	path := filepath.Join(s.uploadDir, storedName)
	if err := os.WriteFile(path, in.Content, 0o644); err != nil {
		return nil, models.NewInternalError(err)
	}

	// Best-effort webp variant next to the original; browsers that prefer it
	// save bandwidth, everyone else gets the stored bytes.
	if variant, encErr := webp.EncodeRGBA(toRGBA(decoded), WebPQuality); encErr == nil {
		if writeErr := os.WriteFile(path+".webp", variant, 0o644); writeErr != nil {
			middleware.Logger.Warn("failed to write webp variant: " + writeErr.Error())
		}
	}

	return img, nil
}

// DefaultImageID picks the seeded default for listings without an upload:
// the dog picture for dog listings, the generic picture otherwise.
func DefaultImageID(petType string) uint {
	if strings.Contains(strings.ToLower(petType), "dog") {
		return models.DefaultDogImageID
	}
	return models.DefaultImageID
}

// Path resolves the public URL path of an image. Seeded defaults live under
// the static prefix, uploads under the upload prefix.
func (s *ImageService) Path(img *models.Image) string {
	if img == nil {
		return ""
	}
	if img.IsDefault() {
		return StaticImagePrefix + "/" + img.Filename
	}
	return UploadImagePrefix + "/" + img.Filename
}

// SanitizeFilename strips path components and replaces anything outside
// [A-Za-z0-9._-] so the name is safe to join into the upload directory.
func SanitizeFilename(name string) string {
	base := filepath.Base(filepath.ToSlash(name))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = strings.TrimLeft(base, "._")
	if base == "" {
		base = "upload"
	}
	return base
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x, y, src.At(x, y))
		}
	}
	return dst
}
