// Package render writes recompressed or annotated JPEG copies of captures.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

// DefaultQuality is the JPEG quality of every written copy.
const DefaultQuality = 25

var (
	ErrDecode = errors.New("decode image")
	ErrEncode = errors.New("encode image")
)

var (
	boxColor   = color.RGBA{R: 255, A: 255}
	fillColor  = color.NRGBA{R: 255, A: 50}
	labelColor = color.RGBA{R: 255, G: 255, A: 255}
)

var regular = mustParseFont()

func mustParseFont() *truetype.Font {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
	return f
}

// Renderer encodes captures as JPEG at a fixed quality.
type Renderer struct {
	quality  int
	fontSize float64
}

func New(quality int) *Renderer {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Renderer{quality: quality, fontSize: 12}
}

// Render decodes source and writes it to destination as JPEG, drawing the
// detections first when annotate is set. The destination is replaced
// atomically; a failed render leaves any existing destination untouched.
func (r *Renderer) Render(source, destination string, detections []models.Detection, annotate, fill bool) error {
	img, err := imaging.Open(source)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrDecode, source, err)
	}

	if annotate {
		img = r.Annotate(img, detections, fill)
	}

	return r.write(destination, img)
}

// Annotate draws every detection box with its label and confidence.
func (r *Renderer) Annotate(img image.Image, detections []models.Detection, fill bool) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetFontFace(truetype.NewFace(regular, &truetype.Options{Size: r.fontSize}))

	for _, d := range detections {
		if !d.Valid() {
			continue
		}
		box := d.Rectangle()
		x, y := float64(box.Min.X), float64(box.Min.Y)
		w, h := float64(box.Dx()), float64(box.Dy())

		dc.SetColor(boxColor)
		dc.SetLineWidth(1)
		dc.DrawRectangle(x, y, w, h)
		dc.Stroke()

		if fill {
			dc.SetColor(fillColor)
			dc.DrawRectangle(x, y, w, h)
			dc.Fill()
		}

		dc.SetColor(labelColor)
		dc.DrawStringAnchored(Caption(d), x, y, 0, 1)
	}

	return dc.Image()
}

// Caption is the overlay text for a detection.
func Caption(d models.Detection) string {
	return fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
}

// write encodes into a staging file beside destination and renames it into place.
func (r *Renderer) write(destination string, img image.Image) (err error) {
	dir := filepath.Dir(destination)
	staging := filepath.Join(dir, "."+filepath.Base(destination)+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(staging, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create staging file in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(staging)
		}
	}()

	if err = imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(r.quality)); err != nil {
		f.Close()
		return fmt.Errorf("%w %s: %v", ErrEncode, destination, err)
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", staging, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", staging, err)
	}

	if err = os.Rename(staging, destination); err != nil {
		return fmt.Errorf("move %s into place: %w", destination, err)
	}
	return nil
}

// Dimensions reads only the image header.
func Dimensions(path string) (image.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Point{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, fmt.Errorf("%w %s: %v", ErrDecode, path, err)
	}
	return image.Point{X: cfg.Width, Y: cfg.Height}, nil
}
