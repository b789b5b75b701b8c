package bridge

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const momentTimestamp = "20060102_150405"

// MomentStore persists screenshots and page snapshots under
// <dir>/<slug>/<timestamp>/.
type MomentStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewMomentStore creates a store rooted at dir.
func NewMomentStore(dir string, logger *slog.Logger) *MomentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MomentStore{dir: dir, logger: logger, now: time.Now}
}

// SaveScreenshot writes a bare screenshot under the "screenshot" slug.
// dataURL is a base64 PNG data URL as carried on the wire.
func (s *MomentStore) SaveScreenshot(dataURL string) (string, error) {
	return s.save(defaultScreenshotSlug, dataURL, nil)
}

const defaultScreenshotSlug = "screenshot"

// SaveMoment writes a screenshot plus page metadata, named after the
// page title.
func (s *MomentStore) SaveMoment(title, dataURL string, page any) (string, error) {
	return s.save(slugify(title), dataURL, page)
}

func (s *MomentStore) save(slug, dataURL string, page any) (string, error) {
	raw, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.dir, slug, s.now().Format(momentTimestamp))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create moment dir: %w", err)
	}

	imgPath := filepath.Join(dir, "screenshot.png")
	if err := os.WriteFile(imgPath, raw, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}

	if page != nil {
		meta, err := json.MarshalIndent(page, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode metadata: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "metadata.json"), meta, 0o644); err != nil {
			return "", fmt.Errorf("write metadata: %w", err)
		}
	}

	s.logger.Info("moment saved", "path", imgPath)
	return dir, nil
}

// decodeDataURL strips an optional data:...;base64, prefix and decodes
// the remainder.
func decodeDataURL(dataURL string) ([]byte, error) {
	b64 := dataURL
	if i := strings.Index(dataURL, ","); i >= 0 {
		b64 = dataURL[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot payload: %w", err)
	}
	return raw, nil
}
