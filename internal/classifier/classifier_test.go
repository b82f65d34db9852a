package classifier

import (
	"image"
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

const (
	classPerson = 0
	classCar    = 2
)

func defaultThresholds() models.ThresholdConfig {
	return models.ThresholdConfig{
		ForbiddenClassIDs: map[int]struct{}{classCar: {}},
		MinHeightPercent:  13.1,
		MinWidthPercent:   3.7,
		MinHeightPixels:   200,
		MinWidthPixels:    100,
	}
}

func box(classID int, x1, y1, x2, y2 float64) models.Detection {
	return models.Detection{ClassID: classID, Label: "obj", Confidence: 0.9, Box: [4]float64{x1, y1, x2, y2}}
}

func TestThresholds(t *testing.T) {
	cfg := defaultThresholds()

	w, h := Thresholds(&image.Point{X: 1000, Y: 1000}, cfg)
	test.That(t, w, test.ShouldEqual, 37)
	test.That(t, h, test.ShouldEqual, 131)

	w, h = Thresholds(nil, cfg)
	test.That(t, w, test.ShouldEqual, 100)
	test.That(t, h, test.ShouldEqual, 200)

	// percentages win even when they are below the pixel floor
	w, h = Thresholds(&image.Point{X: 100, Y: 100}, cfg)
	test.That(t, w, test.ShouldEqual, 4)
	test.That(t, h, test.ShouldEqual, 13)
}

func TestClassifyEmpty(t *testing.T) {
	test.That(t, Classify(nil, nil, defaultThresholds()), test.ShouldEqual, models.VerdictNoPersonDetected)
	test.That(t, Classify([]models.Detection{}, &image.Point{X: 10, Y: 10}, models.ThresholdConfig{}),
		test.ShouldEqual, models.VerdictNoPersonDetected)
}

func TestClassifyPercentages(t *testing.T) {
	dets := []models.Detection{box(classPerson, 10, 10, 210, 310)}
	size := &image.Point{X: 1000, Y: 1000}

	test.That(t, Classify(dets, size, defaultThresholds()), test.ShouldEqual, models.VerdictPersonPresent)

	tall := &image.Point{X: 1000, Y: 4000}
	test.That(t, Classify(dets, tall, defaultThresholds()), test.ShouldEqual, models.VerdictNoPersonDetected)
}

func TestClassifyPixelFloor(t *testing.T) {
	cfg := defaultThresholds()
	dets := []models.Detection{box(classPerson, 0, 0, 120, 250)}
	test.That(t, Classify(dets, nil, cfg), test.ShouldEqual, models.VerdictPersonPresent)

	short := []models.Detection{box(classPerson, 0, 0, 120, 199)}
	test.That(t, Classify(short, nil, cfg), test.ShouldEqual, models.VerdictNoPersonDetected)

	narrow := []models.Detection{box(classPerson, 0, 0, 99, 400)}
	test.That(t, Classify(narrow, nil, cfg), test.ShouldEqual, models.VerdictNoPersonDetected)
}

func TestClassifyForbidden(t *testing.T) {
	dets := []models.Detection{box(classCar, 0, 0, 500, 500)}
	test.That(t, Classify(dets, &image.Point{X: 1000, Y: 1000}, defaultThresholds()),
		test.ShouldEqual, models.VerdictNoPersonDetected)
	test.That(t, Classify(dets, nil, defaultThresholds()), test.ShouldEqual, models.VerdictNoPersonDetected)

	allowed := defaultThresholds()
	allowed.ForbiddenClassIDs = nil
	test.That(t, Classify(dets, nil, allowed), test.ShouldEqual, models.VerdictPersonPresent)
}

func TestClassifyMixed(t *testing.T) {
	dets := []models.Detection{
		box(classCar, 0, 0, 900, 900),
		box(classPerson, 0, 0, 5, 5),
		box(classPerson, 100, 100, 300, 600),
	}
	test.That(t, Classify(dets, &image.Point{X: 1000, Y: 1000}, defaultThresholds()),
		test.ShouldEqual, models.VerdictPersonPresent)

	people := People(dets, &image.Point{X: 1000, Y: 1000}, defaultThresholds())
	test.That(t, people, test.ShouldHaveLength, 1)
	test.That(t, people[0].Box, test.ShouldResemble, [4]float64{100, 100, 300, 600})
}

func TestClassifyMalformedBoxes(t *testing.T) {
	cfg := models.ThresholdConfig{}
	dets := []models.Detection{
		box(classPerson, 300, 10, 100, 400),
		box(classPerson, 10, 400, 300, 10),
		box(classPerson, math.NaN(), 0, 10, 10),
		box(classPerson, 0, 0, math.Inf(1), 10),
	}
	test.That(t, Classify(dets, nil, cfg), test.ShouldEqual, models.VerdictNoPersonDetected)
	test.That(t, Classify(dets, &image.Point{X: 640, Y: 480}, cfg), test.ShouldEqual, models.VerdictNoPersonDetected)
}

func TestClassifyZeroThresholds(t *testing.T) {
	dets := []models.Detection{box(classPerson, 10, 10, 10, 10)}
	test.That(t, Classify(dets, nil, models.ThresholdConfig{}), test.ShouldEqual, models.VerdictPersonPresent)
}
