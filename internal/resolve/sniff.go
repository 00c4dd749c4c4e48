package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"reclink/internal/httputil"
	"reclink/internal/media"
)

// sniffLen is how much of the media is fetched for magic-byte detection.
const sniffLen = 4096

// defaultMediaMIME is assumed when neither sniffing nor the extension helps.
const defaultMediaMIME = "video/mp4"

var extensionMIME = map[string]string{
	".webm": "video/webm",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// mimeFromExtension infers a MIME type from the media URL's file extension.
func mimeFromExtension(mediaURL string) string {
	p := mediaURL
	if u, err := url.Parse(mediaURL); err == nil {
		p = u.Path
	}
	if mime, ok := extensionMIME[strings.ToLower(path.Ext(p))]; ok {
		return mime
	}
	return defaultMediaMIME
}

// sniffMIME fetches the first bytes of the media with a range request and
// detects the type from its magic bytes.
func sniffMIME(ctx context.Context, client *http.Client, mediaURL, referer string) (string, error) {
	req, err := httputil.NewMediaRequest(ctx, mediaURL, referer)
	if err != nil {
		return "", err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", sniffLen-1))

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("range request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return "", fmt.Errorf("range request: unexpected status %d", resp.StatusCode)
	}

	head, err := httputil.ReadLimited(resp.Body, sniffLen)
	if err != nil {
		return "", err
	}
	if len(head) == 0 {
		return "", fmt.Errorf("range request: empty body")
	}

	mime, _, _ := strings.Cut(mimetype.Detect(head).String(), ";")
	return strings.TrimSpace(mime), nil
}

// detectMIME sniffs the media type and falls back to the URL extension when
// sniffing fails or yields something that is not media.
func (s *Scraper) detectMIME(ctx context.Context, mediaURL, referer string) string {
	ctx, cancel := context.WithTimeout(ctx, s.sniffTimeout)
	defer cancel()

	mime, err := sniffMIME(ctx, s.client, mediaURL, referer)
	if err == nil && media.Classify(mime) != media.Unsupported {
		s.log.Debug().Str("mime", mime).Msg("sniffed media type")
		return mime
	}

	guess := mimeFromExtension(mediaURL)
	s.log.Debug().Err(err).Str("sniffed", mime).Str("mime", guess).Msg("sniffing inconclusive, using extension")
	return guess
}
