package render

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"go.viam.com/test"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 20, G: 120, B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	test.That(t, png.Encode(f, img), test.ShouldBeNil)
}

func stagingLeftovers(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	test.That(t, err, test.ShouldBeNil)
	return matches
}

func TestRenderRecompress(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "capture.png")
	dst := filepath.Join(dir, "kept.jpg")
	writePNG(t, src, 320, 240)

	r := New(DefaultQuality)
	test.That(t, r.Render(src, dst, nil, false, false), test.ShouldBeNil)

	out, err := imaging.Open(dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Bounds().Dx(), test.ShouldEqual, 320)
	test.That(t, out.Bounds().Dy(), test.ShouldEqual, 240)

	// source is only read
	_, err = os.Stat(src)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stagingLeftovers(t, dir), test.ShouldBeEmpty)
}

func TestRenderOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "capture.png")
	dst := filepath.Join(dir, "kept.jpg")
	writePNG(t, src, 64, 48)
	test.That(t, os.WriteFile(dst, []byte("stale contents that are not a jpeg"), 0o644), test.ShouldBeNil)

	test.That(t, New(DefaultQuality).Render(src, dst, nil, false, false), test.ShouldBeNil)

	size, err := Dimensions(dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, size, test.ShouldResemble, image.Point{X: 64, Y: 48})
}

func TestRenderAnnotated(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "capture.png")
	plain := filepath.Join(dir, "plain.jpg")
	annotated := filepath.Join(dir, "annotated.jpg")
	writePNG(t, src, 200, 200)

	dets := []models.Detection{
		{ClassID: 0, Label: "person", Confidence: 0.87, Box: [4]float64{20, 20, 150, 180}},
		{ClassID: 0, Label: "person", Confidence: 0.5, Box: [4]float64{50, 50, 10, 10}},
	}

	r := New(100)
	test.That(t, r.Render(src, plain, dets, false, false), test.ShouldBeNil)
	test.That(t, r.Render(src, annotated, dets, true, true), test.ShouldBeNil)

	p, err := imaging.Open(plain)
	test.That(t, err, test.ShouldBeNil)
	a, err := imaging.Open(annotated)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Bounds(), test.ShouldResemble, p.Bounds())

	// the filled box tints its interior towards red
	pr, _, _, _ := p.At(100, 120).RGBA()
	ar, _, _, _ := a.At(100, 120).RGBA()
	test.That(t, ar, test.ShouldBeGreaterThan, pr)

	// outside every box the image is untouched
	pr, pg, pb, _ := p.At(190, 190).RGBA()
	ar, ag, ab, _ := a.At(190, 190).RGBA()
	test.That(t, []uint32{ar, ag, ab}, test.ShouldResemble, []uint32{pr, pg, pb})
}

func TestRenderDecodeFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jpg")
	dst := filepath.Join(dir, "out.jpg")
	test.That(t, os.WriteFile(src, []byte("definitely not an image"), 0o644), test.ShouldBeNil)

	err := New(DefaultQuality).Render(src, dst, nil, false, false)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrDecode), test.ShouldBeTrue)

	_, err = os.Stat(dst)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
	test.That(t, stagingLeftovers(t, dir), test.ShouldBeEmpty)
}

func TestRenderFailureKeepsExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jpg")
	dst := filepath.Join(dir, "out.jpg")
	test.That(t, os.WriteFile(src, []byte("definitely not an image"), 0o644), test.ShouldBeNil)
	test.That(t, os.WriteFile(dst, []byte("previous frame"), 0o644), test.ShouldBeNil)

	err := New(DefaultQuality).Render(src, dst, nil, true, false)
	test.That(t, errors.Is(err, ErrDecode), test.ShouldBeTrue)

	data, err := os.ReadFile(dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "previous frame")
	test.That(t, stagingLeftovers(t, dir), test.ShouldBeEmpty)
}

func TestRenderMissingDestinationDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "capture.png")
	writePNG(t, src, 16, 16)

	err := New(DefaultQuality).Render(src, filepath.Join(dir, "missing", "out.jpg"), nil, false, false)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, stagingLeftovers(t, dir), test.ShouldBeEmpty)
}

func TestCaption(t *testing.T) {
	test.That(t, Caption(models.Detection{Label: "person", Confidence: 0.876}), test.ShouldEqual, "person 0.88")
	test.That(t, Caption(models.Detection{Label: "car", Confidence: 1}), test.ShouldEqual, "car 1.00")
}

func TestDimensions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "capture.png")
	writePNG(t, src, 33, 17)

	size, err := Dimensions(src)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, size, test.ShouldResemble, image.Point{X: 33, Y: 17})

	_, err = Dimensions(filepath.Join(dir, "nope.png"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewQualityDefault(t *testing.T) {
	test.That(t, New(0).quality, test.ShouldEqual, DefaultQuality)
	test.That(t, New(101).quality, test.ShouldEqual, DefaultQuality)
	test.That(t, New(80).quality, test.ShouldEqual, 80)
}
