// Package classifier decides whether a detection list contains a person large
// enough to keep the capture.
package classifier

import (
	"image"
	"math"

	"github.com/samber/lo"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

// Thresholds returns the minimum width and height a detection must reach.
// Percentages of the image size win when size is known; otherwise the pixel
// floor applies.
func Thresholds(size *image.Point, cfg models.ThresholdConfig) (minWidth, minHeight int) {
	if size == nil {
		return cfg.MinWidthPixels, cfg.MinHeightPixels
	}
	minWidth = int(math.Round(float64(size.X) * cfg.MinWidthPercent / 100))
	minHeight = int(math.Round(float64(size.Y) * cfg.MinHeightPercent / 100))
	return minWidth, minHeight
}

// IsPerson reports whether a detection qualifies against resolved thresholds.
func IsPerson(d models.Detection, minWidth, minHeight int, cfg models.ThresholdConfig) bool {
	if !d.Valid() || cfg.IsForbidden(d.ClassID) {
		return false
	}
	return d.Height() >= float64(minHeight) && d.Width() >= float64(minWidth)
}

// People returns the detections that qualify as a person.
func People(detections []models.Detection, size *image.Point, cfg models.ThresholdConfig) []models.Detection {
	minWidth, minHeight := Thresholds(size, cfg)
	return lo.Filter(detections, func(d models.Detection, _ int) bool {
		return IsPerson(d, minWidth, minHeight, cfg)
	})
}

// Classify maps detections to a verdict. It is total: any list, including an
// empty one, yields a verdict.
func Classify(detections []models.Detection, size *image.Point, cfg models.ThresholdConfig) models.Verdict {
	if len(detections) == 0 {
		return models.VerdictNoPersonDetected
	}

	minWidth, minHeight := Thresholds(size, cfg)
	if lo.SomeBy(detections, func(d models.Detection) bool {
		return IsPerson(d, minWidth, minHeight, cfg)
	}) {
		return models.VerdictPersonPresent
	}
	return models.VerdictNoPersonDetected
}
