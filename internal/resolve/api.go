package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reclink/internal/httputil"
	"reclink/internal/media"
)

const (
	maxAPIBody   = 4 << 20
	fallbackMIME = "application/octet-stream"
)

// ContentAPI resolves a share page through the provider's getContent API.
type ContentAPI struct {
	base    string
	token   string
	client  *http.Client
	timeout time.Duration
	log     zerolog.Logger
}

// NewContentAPI creates a ContentAPI client. token must be non-empty.
func NewContentAPI(base, token string, client *http.Client, timeout time.Duration, logger zerolog.Logger) *ContentAPI {
	return &ContentAPI{
		base:    strings.TrimRight(base, "/"),
		token:   token,
		client:  client,
		timeout: timeout,
		log:     logger,
	}
}

func (a *ContentAPI) Name() string { return "api" }

type contentResponse struct {
	Status string `json:"status"`
	Data   *struct {
		Contents orderedContents `json:"contents"`
	} `json:"data"`
}

type contentFile struct {
	Link     string `json:"link"`
	Mimetype string `json:"mimetype"`
	MimeType string `json:"mimeType"`
	Name     string `json:"name"`
}

// mime returns whichever MIME field the provider filled in.
func (f contentFile) mime() string {
	switch {
	case f.Mimetype != "":
		return f.Mimetype
	case f.MimeType != "":
		return f.MimeType
	default:
		return fallbackMIME
	}
}

type contentEntry struct {
	ID   string
	File contentFile
}

// orderedContents is the provider's {fileId: file} object decoded in the
// order the provider wrote it.
type orderedContents []contentEntry

func (o *orderedContents) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("contents: expected object, got %v", tok)
	}

	var entries orderedContents
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var f contentFile
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("contents[%q]: %w", key, err)
		}
		entries = append(entries, contentEntry{ID: key, File: f})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*o = entries
	return nil
}

// Resolve looks up the share page's content ID and returns its first file.
func (a *ContentAPI) Resolve(ctx context.Context, shareURL string) (*media.Resolved, error) {
	id, err := ContentID(shareURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("contentId", id)
	q.Set("token", a.token)
	req, err := httputil.NewJSONRequest(ctx, a.base+"/getContent?"+q.Encode())
	if err != nil {
		return nil, &Error{Kind: KindConfig, Msg: "content API base URL is invalid", Err: err}
	}

	a.log.Debug().Str("content_id", id).Msg("looking up content")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, networkError("content API", err)
	}
	defer resp.Body.Close()

	body, err := httputil.ReadLimited(resp.Body, maxAPIBody)
	if err != nil {
		return nil, networkError("content API", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError("content API", resp.StatusCode)
	}

	var result contentResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, parseError("decoding content API response", err)
	}

	if err := contentStatusError(result.Status); err != nil {
		a.log.Warn().Str("content_id", id).Str("status", result.Status).Msg("content API returned non-ok status")
		return nil, err
	}

	if result.Data == nil || len(result.Data.Contents) == 0 {
		return nil, &Error{Kind: KindNotFound, Reason: ReasonEmptyFolder, Msg: "no files found in this share link"}
	}

	// Folders with several files resolve to the first one the provider lists.
	first := result.Data.Contents[0]
	if first.File.Link == "" {
		return nil, parseError(fmt.Sprintf("file %q has no direct link", first.ID), nil)
	}

	return media.NewResolved(first.File.Link, first.File.mime()), nil
}

// contentStatusError maps the provider's status vocabulary onto error kinds.
func contentStatusError(status string) error {
	switch status {
	case "ok":
		return nil
	case "error-notFound":
		return &Error{Kind: KindNotFound, Msg: "content not found or invalid"}
	case "error-passwordRequired":
		return &Error{Kind: KindAccessDenied, Reason: ReasonPassworded, Msg: "content is password protected"}
	case "error-permissionDenied":
		return &Error{Kind: KindAccessDenied, Msg: "permission denied to access this content"}
	case "error-rateLimit":
		return &Error{Kind: KindUpstream, Reason: ReasonRateLimited, Msg: "content API is rate limiting requests"}
	default:
		return &Error{Kind: KindUpstream, Msg: fmt.Sprintf("content API error: %s", status)}
	}
}
