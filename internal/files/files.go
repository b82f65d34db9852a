// Package files owns the side effects on capture files: writing the routed copy
// and removing the source.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

// Renderer writes a JPEG copy of source at destination.
type Renderer interface {
	Render(source, destination string, detections []models.Detection, annotate, fill bool) error
}

// Manager moves capture content to its destination and cleans up sources.
type Manager struct {
	renderer Renderer
	logger   *zap.Logger
	remove   func(path string) error
}

func NewManager(renderer Renderer, logger *zap.Logger) *Manager {
	return &Manager{renderer: renderer, logger: logger, remove: os.Remove}
}

// Relocate renders source to destination and then removes source. When the
// render fails the source is left for the caller to clean up. Once the
// destination is written the move counts as done: a source that cannot be
// removed is only logged, and a destination that is the source is kept.
func (m *Manager) Relocate(source, destination string, detections []models.Detection, annotate, fill bool) error {
	// checked before the render, the rename below replaces the inode
	same := samePath(source, destination)

	if err := m.renderer.Render(source, destination, detections, annotate, fill); err != nil {
		return fmt.Errorf("relocate %s to %s: %w", source, destination, err)
	}
	if same {
		return nil
	}

	if err := m.remove(source); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn("remove relocated source failed",
			zap.String("path", source), zap.String("destination", destination), zap.Error(err))
	}
	return nil
}

func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// Delete removes path. It never fails: a missing file is a no-op and other
// errors are only logged.
func (m *Manager) Delete(path string) {
	err := m.remove(path)
	switch {
	case err == nil:
		m.logger.Debug("deleted file", zap.String("path", path))
	case errors.Is(err, fs.ErrNotExist):
	default:
		m.logger.Debug("delete failed", zap.String("path", path), zap.Error(err))
	}
}

// Exists reports whether path is present. Errors other than not-exist count as
// present so the caller proceeds and fails loudly later.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
