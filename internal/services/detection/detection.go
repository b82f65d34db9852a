package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Capitan-Parrot/detect-people/internal/labels"
	"github.com/Capitan-Parrot/detect-people/internal/models"
)

// ErrDetector wraps every failure of the inference service.
var ErrDetector = errors.New("detector")

type Client struct {
	URL        string
	httpClient *http.Client
}

// NewClient creates a client for the inference server at baseURL. A zero
// timeout means no client-side limit.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		URL:        strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type predictResponse struct {
	Detections []models.Detection `json:"detections"`
}

// DetectObjects uploads the image at path to /predict as multipart "file" and returns the
// detected objects. Nothing detected is an empty slice, not an error.
func (c *Client) DetectObjects(ctx context.Context, path string) ([]models.Detection, error) {
	imageData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %v", ErrDetector, err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("%w: create form part: %v", ErrDetector, err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("%w: write image data: %v", ErrDetector, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: close writer: %v", ErrDetector, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/predict", &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrDetector, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", ErrDetector, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: bad status: %s, error: %s", ErrDetector, resp.Status, bodyBytes)
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrDetector, err)
	}

	for i := range result.Detections {
		if result.Detections[i].Label == "" {
			result.Detections[i].Label = labels.Name(result.Detections[i].ClassID)
		}
	}
	if result.Detections == nil {
		result.Detections = []models.Detection{}
	}
	return result.Detections, nil
}

// CheckHealth probes the inference service health endpoint.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDetector, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unhealthy: %d", ErrDetector, resp.StatusCode)
	}
	return nil
}
