package models

import (
	"image"
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDetectionRectangle(t *testing.T) {
	d := Detection{Box: [4]float64{10.7, 20.2, 110.9, 220.5}}
	test.That(t, d.Rectangle(), test.ShouldResemble, image.Rect(10, 20, 110, 220))

	inverted := Detection{Box: [4]float64{50, 50, 10, 10}}
	test.That(t, inverted.Rectangle(), test.ShouldResemble, image.Rectangle{})
	test.That(t, inverted.Width(), test.ShouldEqual, 0.0)

	nan := Detection{Box: [4]float64{0, 0, math.NaN(), 10}}
	test.That(t, nan.Valid(), test.ShouldBeFalse)
	test.That(t, nan.Rectangle(), test.ShouldResemble, image.Rectangle{})
}
