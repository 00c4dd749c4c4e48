// Package recording supplies the finished captures that get uploaded. Capture
// and encoding happen elsewhere; a Source is just a payload and its MIME type.
package recording

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"reclink/internal/httputil"
	"reclink/internal/media"
)

// Source is a finished recording.
type Source interface {
	Open() (io.ReadCloser, error)
	MIME() string
	Size() int64
}

// FileSource is a recording already written to disk.
type FileSource struct {
	path string
	mime string
	size int64
}

// NewFileSource stats path and detects its MIME type from the content.
func NewFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("recording %s is a directory", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("recording %s is empty", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detecting recording type: %w", err)
	}

	return &FileSource{path: path, mime: baseMIME(mt.String()), size: info.Size()}, nil
}

func (f *FileSource) Open() (io.ReadCloser, error) { return os.Open(f.path) }
func (f *FileSource) MIME() string                 { return f.mime }
func (f *FileSource) Size() int64                  { return f.size }
func (f *FileSource) Path() string                 { return f.path }

// Filename names an upload: recording-<label>-<timestamp>.<ext>. The timestamp
// is UTC ISO-8601 with ':' and '.' replaced so it is safe on every filesystem.
func Filename(label string, t time.Time, mime string) string {
	label = strings.Join(strings.Fields(label), "-")
	if label == "" {
		label = "unknown"
	}
	label = httputil.SanitizeFilename(label)
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return fmt.Sprintf("recording-%s-%s.%s", label, ts, media.ExtensionForMIME(mime))
}

func baseMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}
