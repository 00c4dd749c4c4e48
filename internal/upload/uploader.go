// Package upload sends finished recordings to the file host: it picks an
// upload server from the provider's directory and streams a multipart
// transfer to it. Nothing is retried.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reclink/internal/httputil"
)

const (
	maxDirectoryBody = 1 << 20
	maxResponseBody  = 64 << 10
)

// Options configures an Uploader.
type Options struct {
	APIBase         string // e.g. "https://api.gofile.io"
	UploadURL       string // transfer URL template containing "{server}"
	Client          *http.Client
	LookupTimeout   time.Duration
	TransferTimeout time.Duration
	Logger          zerolog.Logger
}

// Uploader performs server selection and the file transfer.
type Uploader struct {
	apiBase         string
	uploadURL       string
	client          *http.Client
	lookupTimeout   time.Duration
	transferTimeout time.Duration
	log             zerolog.Logger
}

// New creates an Uploader. A nil client gets a hardened default.
func New(opts Options) *Uploader {
	client := opts.Client
	if client == nil {
		client = httputil.NewClient(0)
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 15 * time.Second
	}
	if opts.TransferTimeout <= 0 {
		opts.TransferTimeout = 60 * time.Second
	}
	return &Uploader{
		apiBase:         strings.TrimRight(opts.APIBase, "/"),
		uploadURL:       opts.UploadURL,
		client:          client,
		lookupTimeout:   opts.LookupTimeout,
		transferTimeout: opts.TransferTimeout,
		log:             opts.Logger,
	}
}

// directoryResponse is the body of GET {api}/servers. Server entries are kept
// raw so a malformed first entry can be told apart from a malformed body.
type directoryResponse struct {
	Status string `json:"status"`
	Data   *struct {
		Servers []json.RawMessage `json:"servers"`
	} `json:"data"`
}

type serverEntry struct {
	Name *string `json:"name"`
}

// SelectServer asks the provider for its upload servers and returns the first
// one. The provider lists servers in preference order.
func (u *Uploader) SelectServer(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, u.lookupTimeout)
	defer cancel()

	req, err := httputil.NewJSONRequest(ctx, u.apiBase+"/servers")
	if err != nil {
		return "", &ServerDirectoryError{Kind: DirectoryTransport, Err: err}
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", &ServerDirectoryError{Kind: DirectoryTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := httputil.ReadLimited(resp.Body, maxDirectoryBody)
	if err != nil {
		return "", &ServerDirectoryError{Kind: DirectoryTransport, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		u.log.Warn().Int("status", resp.StatusCode).Str("body", snippet(body)).Msg("server directory request failed")
		return "", &ServerDirectoryError{Kind: DirectoryTransport, StatusCode: resp.StatusCode}
	}

	var dir directoryResponse
	if err := json.Unmarshal(body, &dir); err != nil {
		return "", &ServerDirectoryError{Kind: DirectoryMalformedBody, Err: err}
	}
	if dir.Status != "ok" {
		return "", &ServerDirectoryError{Kind: DirectoryMalformedBody, Err: fmt.Errorf("status %q", dir.Status)}
	}
	if dir.Data == nil || len(dir.Data.Servers) == 0 {
		return "", &ServerDirectoryError{Kind: DirectoryEmptyPool}
	}

	var first serverEntry
	if err := json.Unmarshal(dir.Data.Servers[0], &first); err != nil {
		return "", &ServerDirectoryError{Kind: DirectoryMalformedEntry, Err: err}
	}
	if first.Name == nil {
		return "", &ServerDirectoryError{Kind: DirectoryMalformedEntry, Err: fmt.Errorf("server entry has no name")}
	}
	if err := httputil.ValidateHostname(*first.Name); err != nil {
		return "", &ServerDirectoryError{Kind: DirectoryMalformedEntry, Err: err}
	}

	u.log.Debug().Str("server", *first.Name).Int("pool", len(dir.Data.Servers)).Msg("selected upload server")
	return *first.Name, nil
}

// uploadResponse is the body of a successful POST /uploadFile.
type uploadResponse struct {
	Status string `json:"status"`
	Data   *struct {
		DownloadPage *string `json:"downloadPage"`
		Message      string  `json:"message"`
	} `json:"data"`
}

// Upload sends content as filename and returns the share page URL. token is
// optional. The server is selected fresh on every call.
func (u *Uploader) Upload(ctx context.Context, content io.Reader, filename, token string) (string, error) {
	server, err := u.SelectServer(ctx)
	if err != nil {
		return "", err
	}

	target := strings.ReplaceAll(u.uploadURL, "{server}", server)
	if err := httputil.ValidateURL(target); err != nil {
		return "", &TransportError{Err: fmt.Errorf("upload URL: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, u.transferTimeout)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, content, httputil.SanitizeFilename(filename), token))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, pr)
	if err != nil {
		pr.CloseWithError(err)
		return "", &TransportError{Err: err}
	}
	// Content-Type carries the boundary chosen by the multipart writer.
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", httputil.UserAgent)

	u.log.Debug().Str("url", target).Str("filename", filename).Msg("uploading")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := httputil.ReadLimited(resp.Body, maxResponseBody)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := errorDetail(body)
		u.log.Warn().Int("status", resp.StatusCode).Str("detail", detail).Msg("upload rejected")
		return "", &TransportError{StatusCode: resp.StatusCode, Detail: detail}
	}

	return parseUploadResponse(body)
}

func writeForm(mw *multipart.Writer, content io.Reader, filename, token string) error {
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("writing file part: %w", err)
	}
	if token != "" {
		if err := mw.WriteField("token", token); err != nil {
			return fmt.Errorf("writing token field: %w", err)
		}
	}
	return mw.Close()
}

func parseUploadResponse(body []byte) (string, error) {
	var result uploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &ResponseError{Reason: "body is not JSON", Err: err}
	}

	if result.Status != "ok" {
		msg := "no message"
		if result.Data != nil && result.Data.Message != "" {
			msg = result.Data.Message
		}
		return "", &ResponseError{Reason: fmt.Sprintf("status %q: %s", result.Status, msg)}
	}

	if result.Data == nil || result.Data.DownloadPage == nil || *result.Data.DownloadPage == "" {
		return "", &ResponseError{Reason: "missing downloadPage"}
	}

	page := *result.Data.DownloadPage
	if u, err := url.Parse(page); err != nil || !u.IsAbs() || u.Host == "" {
		return "", &ResponseError{Reason: fmt.Sprintf("downloadPage %q is not an absolute URL", page)}
	}

	return page, nil
}

// errorDetail extracts the most useful description from a failed upload
// body: the JSON status field, the JSON itself, or the raw text.
func errorDetail(body []byte) string {
	var structured struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		if structured.Status != "" {
			return structured.Status
		}
		var compact bytes.Buffer
		if json.Compact(&compact, body) == nil {
			return snippet(compact.Bytes())
		}
	}
	return snippet(body)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
