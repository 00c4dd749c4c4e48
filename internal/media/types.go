// Package media defines shared types for the reclink application.
package media

import "strings"

// MediaType is the coarse kind of a hosted file, used to pick a preview element.
type MediaType int

const (
	Unsupported MediaType = iota
	Image
	Video
	Audio
)

func (m MediaType) String() string {
	switch m {
	case Image:
		return "image"
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return "unsupported"
	}
}

// MarshalText encodes the type as its lowercase name.
func (m MediaType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText. Anything else
// decodes as Unsupported.
func (m *MediaType) UnmarshalText(text []byte) error {
	*m = ParseMediaType(string(text))
	return nil
}

// ParseMediaType is the inverse of String.
func ParseMediaType(s string) MediaType {
	switch strings.ToLower(s) {
	case "image":
		return Image
	case "video":
		return Video
	case "audio":
		return Audio
	default:
		return Unsupported
	}
}

// Classify derives the media type from a MIME string by prefix.
func Classify(mime string) MediaType {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return Image
	case strings.HasPrefix(mime, "video/"):
		return Video
	case strings.HasPrefix(mime, "audio/"):
		return Audio
	default:
		return Unsupported
	}
}

// Resolved is a direct, fetchable media reference for a share page.
type Resolved struct {
	MediaURL  string    `json:"downloadLink"`
	MediaType MediaType `json:"mediaType"`
	MIME      string    `json:"mime"`
}

// NewResolved builds a Resolved whose MediaType is always derived from mime.
func NewResolved(mediaURL, mime string) *Resolved {
	return &Resolved{
		MediaURL:  mediaURL,
		MediaType: Classify(mime),
		MIME:      mime,
	}
}

// ShareLink is one entry in the local upload history.
type ShareLink struct {
	URL       string    `json:"url"`                     // Share page URL, unique within the history
	Timestamp int64     `json:"timestamp"`               // Upload time in Unix milliseconds
	Filename  string    `json:"filename"`                // Name the recording was uploaded under
	Resolved  *Resolved `json:"resolvedMedia,omitempty"` // Cached preview resolution, nil until first preview
}

// ExtensionForMIME returns the file extension used when naming a recording
// captured with the given MIME type.
func ExtensionForMIME(mime string) string {
	switch {
	case mime == "":
		return "webm"
	case strings.Contains(mime, "mp4"):
		return "mp4"
	case strings.Contains(mime, "webm"):
		return "webm"
	case strings.Contains(mime, "opus"):
		return "opus"
	case strings.Contains(mime, "ogg"):
		return "ogg"
	default:
		return "bin"
	}
}
