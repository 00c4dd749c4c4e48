// Package download fetches resolved media from the file host. The same
// stream backs the HTTP download proxy and the download command; files are
// only ever written inside the configured directory.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"reclink/internal/httputil"
	"reclink/internal/media"
	"reclink/internal/resolve"
)

// FallbackFilename is used when the media URL has no usable last segment.
const FallbackFilename = "downloaded_file"

// Stream is an open media response.
type Stream struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
	Size        int64 // -1 when unknown
}

// Open requests res.MediaURL with the share page as Referer. The caller must
// close Body. Non-2xx answers are classified like resolution failures.
func Open(ctx context.Context, client *http.Client, res media.Resolved, referer string) (*Stream, error) {
	req, err := httputil.NewMediaRequest(ctx, res.MediaURL, referer)
	if err != nil {
		return nil, &resolve.Error{Kind: resolve.KindInvalidInput, Msg: "invalid media URL", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, resolve.NetworkError("media server", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, resolve.StatusError("media file", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Stream{
		Body:        resp.Body,
		ContentType: contentType,
		Filename:    httputil.FilenameFromURL(res.MediaURL, FallbackFilename),
		Size:        resp.ContentLength,
	}, nil
}

// Fetch downloads res into dir and returns the written path. A partial file
// is removed on failure.
func Fetch(ctx context.Context, client *http.Client, res media.Resolved, referer, dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	stream, err := Open(ctx, client, res, referer)
	if err != nil {
		return "", err
	}
	defer stream.Body.Close()

	outputPath, err := httputil.SafeDownloadPath(absDir, stream.Filename)
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}

	f, err := os.CreateTemp(absDir, ".reclink-*.part")
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := io.Copy(f, stream.Body); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", resolve.NetworkError("media server", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing output file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming output file: %w", err)
	}

	return outputPath, nil
}

// ContentDisposition builds an attachment header for filename.
func ContentDisposition(filename string) string {
	filename = strings.NewReplacer(`"`, "_", "\r", "", "\n", "").Replace(filename)
	return fmt.Sprintf(`attachment; filename="%s"`, filename)
}
