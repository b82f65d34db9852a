package models

import (
	"image"
	"math"
	"time"
)

// Notification is the payload published when a new capture lands on disk.
// Field names follow the producer's wire format.
type Notification struct {
	DeleteJunk   bool   `json:"DeleteJunk"`
	JunkFilePath string `json:"JunkFilePath"`
	NewFileName  string `json:"NewFileName"`
	NewFilePath  string `json:"NewFilePath"`
	OldFilePath  string `json:"OldFilePath"`
	UniqueID     string `json:"UniqueId"`
}

// Request converts the notification into a unit of work.
func (n Notification) Request() TriageRequest {
	return TriageRequest{
		SourcePath:      n.OldFilePath,
		DestinationPath: n.NewFilePath,
		JunkPath:        n.JunkFilePath,
		DeleteJunk:      n.DeleteJunk,
		CorrelationID:   n.UniqueID,
	}
}

// TriageRequest is one image to evaluate and route.
type TriageRequest struct {
	SourcePath      string
	DestinationPath string
	JunkPath        string
	DeleteJunk      bool
	CorrelationID   string
}

// Detection is one object reported by the detector.
type Detection struct {
	ClassID    int        `json:"class_id"`
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"` // [x1, y1, x2, y2]
}

// Valid reports whether the box is finite and not inverted.
func (d Detection) Valid() bool {
	for _, v := range d.Box {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return d.Box[2] >= d.Box[0] && d.Box[3] >= d.Box[1]
}

// Width is zero for malformed boxes.
func (d Detection) Width() float64 {
	if !d.Valid() {
		return 0
	}
	return d.Box[2] - d.Box[0]
}

// Height is zero for malformed boxes.
func (d Detection) Height() float64 {
	if !d.Valid() {
		return 0
	}
	return d.Box[3] - d.Box[1]
}

// Rectangle returns the box truncated to pixel coordinates.
func (d Detection) Rectangle() image.Rectangle {
	if !d.Valid() {
		return image.Rectangle{}
	}
	return image.Rect(int(d.Box[0]), int(d.Box[1]), int(d.Box[2]), int(d.Box[3]))
}

// ThresholdConfig holds the operator decision parameters. It is built once at
// startup and only read afterwards.
type ThresholdConfig struct {
	ForbiddenClassIDs map[int]struct{}
	MinHeightPercent  float64
	MinWidthPercent   float64
	MinHeightPixels   int
	MinWidthPixels    int
	DrawJunkObjects   bool
	DrawKeptObjects   bool
	FillRectangles    bool
}

// IsForbidden reports whether detections of classID never count as a person.
func (c ThresholdConfig) IsForbidden(classID int) bool {
	_, ok := c.ForbiddenClassIDs[classID]
	return ok
}

type Verdict string

const (
	VerdictPersonPresent    Verdict = "person_present"
	VerdictNoPersonDetected Verdict = "no_person_detected"
)

type Outcome string

const (
	OutcomeKept          Outcome = "kept"
	OutcomeKeptAnnotated Outcome = "kept_annotated"
	OutcomeJunkArchived  Outcome = "junk_archived"
	OutcomeJunkAnnotated Outcome = "junk_annotated"
	OutcomeJunkDeleted   Outcome = "junk_deleted"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeFailed        Outcome = "failed"
)

// Outcomes lists every terminal outcome in reporting order.
var Outcomes = []Outcome{
	OutcomeKept,
	OutcomeKeptAnnotated,
	OutcomeJunkArchived,
	OutcomeJunkAnnotated,
	OutcomeJunkDeleted,
	OutcomeSkipped,
	OutcomeFailed,
}

// OutcomeEvent describes how a single request ended.
type OutcomeEvent struct {
	UniqueID    string      `json:"UniqueId"`
	Source      string      `json:"Source"`
	Destination string      `json:"Destination,omitempty"`
	Verdict     Verdict     `json:"Verdict,omitempty"`
	Outcome     Outcome     `json:"Outcome"`
	Detections  []Detection `json:"Detections"`
	ElapsedMs   int64       `json:"ElapsedMs"`
	Error       string      `json:"Error,omitempty"`
	TimeStamp   time.Time   `json:"TimeStamp"`
}
