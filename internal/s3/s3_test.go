package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.viam.com/test"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

type objectStore struct {
	mu      sync.Mutex
	methods []string
	paths   []string
	bodies  []string
}

func (s *objectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.methods = append(s.methods, r.Method)
	s.paths = append(s.paths, r.URL.Path)
	s.bodies = append(s.bodies, string(body))
	s.mu.Unlock()

	w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	w.WriteHeader(http.StatusOK)
}

func newTestClient(t *testing.T) (*Client, *objectStore) {
	t.Helper()
	store := &objectStore{}
	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)

	c, err := NewMinioClient(strings.TrimPrefix(srv.URL, "http://"), "key", "secret", "detections")
	test.That(t, err, test.ShouldBeNil)
	return c, store
}

func TestRecordUploadsReport(t *testing.T) {
	c, store := newTestClient(t)

	err := c.Record(context.Background(), models.OutcomeEvent{
		UniqueID: "abc",
		Source:   "/in/a.jpg",
		Outcome:  models.OutcomeJunkArchived,
		Detections: []models.Detection{
			{ClassID: 2, Label: "car", Confidence: 0.8, Box: [4]float64{0, 0, 10, 10}},
		},
	})
	test.That(t, err, test.ShouldBeNil)

	store.mu.Lock()
	defer store.mu.Unlock()
	test.That(t, store.methods, test.ShouldResemble, []string{http.MethodPut})
	test.That(t, store.paths, test.ShouldResemble, []string{"/detections/abc.json"})
	test.That(t, store.bodies[0], test.ShouldContainSubstring, `"UniqueId":"abc"`)
	test.That(t, store.bodies[0], test.ShouldContainSubstring, `"label":"car"`)
}

func TestRecordSkipsSkippedOutcomes(t *testing.T) {
	c, store := newTestClient(t)

	err := c.Record(context.Background(), models.OutcomeEvent{UniqueID: "gone", Outcome: models.OutcomeSkipped})
	test.That(t, err, test.ShouldBeNil)

	store.mu.Lock()
	defer store.mu.Unlock()
	test.That(t, store.methods, test.ShouldBeEmpty)
}

func TestReportKey(t *testing.T) {
	test.That(t, ReportKey("abc-1"), test.ShouldEqual, "abc-1.json")
}
