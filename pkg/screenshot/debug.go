package screenshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DebugSink writes a PNG copy of decoded images into a directory.
// A nil sink or an empty directory disables it.
type DebugSink struct {
	Dir string
}

// Save persists img and returns the written path. Errors are logged, never returned.
func (s *DebugSink) Save(requestID string, img *Image) string {
	if s == nil || s.Dir == "" || img == nil {
		return ""
	}

	if requestID == "" {
		requestID = uuid.NewString()
	}
	// chi request ids look like "host/prefix-000001"
	requestID = strings.NewReplacer("/", "-", `\`, "-").Replace(requestID)

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		slog.Warn("Unable to create debug image directory", "dir", s.Dir, "err", err)
		return ""
	}

	data, err := img.PNG()
	if err != nil {
		slog.Warn("Unable to encode debug image", "request_id", requestID, "err", err)
		return ""
	}

	path := filepath.Join(s.Dir, fmt.Sprintf("%s.png", requestID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Warn("Unable to write debug image", "path", path, "err", err)
		return ""
	}

	slog.Debug("Saved debug image", "path", path, "width", img.Width, "height", img.Height)
	return path
}
