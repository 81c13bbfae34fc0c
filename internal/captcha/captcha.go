// Package captcha generates image/text challenge pairs used to gate
// state-changing auth requests. The expected text is never persisted here;
// callers hold it in the request session and compare on the next submit.
package captcha

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultLength is the number of characters in a generated challenge.
	DefaultLength = 5
	// JPEGQuality matches the quality used elsewhere in the image pipeline.
	JPEGQuality = 82

	charWidth    = 30
	canvasHeight = 40
	strikeLines  = 8
)

const charset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Generator produces challenge images. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a Generator seeded from the current time.
func NewGenerator() *Generator {
	return &Generator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewGeneratorWithSeed returns a deterministic Generator for tests.
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate renders a challenge of DefaultLength characters.
func (g *Generator) Generate() (image.Image, string) {
	return g.GenerateN(DefaultLength)
}

// GenerateN renders a challenge of n random alphanumeric characters on a
// 30px-per-char by 40px canvas, crosses it with random strike lines and runs
// an edge-detection filter so the glyphs resist trivial OCR.
func (g *Generator) GenerateN(n int) (image.Image, string) {
	if n <= 0 {
		n = DefaultLength
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	width := n * charWidth
	text := make([]byte, n)
	for i := range text {
		text[i] = charset[g.rng.Intn(len(charset))]
	}

	// Glyphs are drawn at half scale with the fixed 7x13 face and then
	// scaled up, which thickens and roughens the strokes.
	small := image.NewRGBA(image.Rect(0, 0, width/2, canvasHeight/2))
	fill(small, color.White)

	drawer := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	for i := range text {
		x := 4 + g.rng.Intn(3) + (charWidth/2)*i
		y := 12 + g.rng.Intn(3)
		drawer.Dot = fixed.P(x, y)
		drawer.DrawString(string(text[i]))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, canvasHeight))
	xdraw.NearestNeighbor.Scale(img, img.Bounds(), small, small.Bounds(), xdraw.Over, nil)

	for i := 0; i < strikeLines; i++ {
		x1 := g.rng.Intn(width / 2)
		y1 := g.rng.Intn(canvasHeight / 2)
		x2 := g.rng.Intn(width)
		y2 := canvasHeight/2 + g.rng.Intn(canvasHeight/2)
		drawLine(img, x1, y1, x2, y2, color.Black)
	}

	return edgeFilter(img), string(text)
}

// EncodeJPEG serializes a generated challenge image for the HTTP response.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fill(img *image.RGBA, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

// drawLine rasterizes a 1px line segment with Bresenham's algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy
	for {
		img.Set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

// edgeFilter applies a 3x3 edge-detection convolution (center 8, neighbors
// -1) per channel, leaving thin bright outlines on a dark field.
func edgeFilter(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var sumR, sumG, sumB int
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					px := clampInt(x+kx, b.Min.X, b.Max.X-1)
					py := clampInt(y+ky, b.Min.Y, b.Max.Y-1)
					r, gr, bl, _ := src.At(px, py).RGBA()
					w := -1
					if kx == 0 && ky == 0 {
						w = 8
					}
					sumR += w * int(r>>8)
					sumG += w * int(gr>>8)
					sumB += w * int(bl>>8)
				}
			}
			dst.Set(x, y, color.RGBA{
				R: clampByte(sumR),
				G: clampByte(sumG),
				B: clampByte(sumB),
				A: 255,
			})
		}
	}
	return dst
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
