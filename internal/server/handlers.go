package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"reclink/internal/download"
	"reclink/internal/media"
	"reclink/internal/resolve"
	"reclink/internal/upload"
)

type resolveRequest struct {
	URL string `json:"url"`
}

// handleResolve answers {url} with {downloadLink, mediaType, mime}.
func (s *Server) handleResolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be JSON with a url field"})
		return
	}

	res, err := s.resolve(c.Request.Context(), req.URL)
	if err != nil {
		s.resolveFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleDownload resolves ?url= and streams the media back as an attachment.
func (s *Server) handleDownload(c *gin.Context) {
	shareURL := c.Query("url")
	res, err := s.resolve(c.Request.Context(), shareURL)
	if err != nil {
		s.resolveFailed(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.downloadTimeout)
	defer cancel()

	stream, err := download.Open(ctx, s.client, *res, strings.TrimSpace(shareURL))
	if err != nil {
		s.resolveFailed(c, err)
		return
	}
	defer stream.Body.Close()

	c.DataFromReader(http.StatusOK, stream.Size, stream.ContentType, stream.Body, map[string]string{
		"Content-Disposition": download.ContentDisposition(stream.Filename),
		"Cache-Control":       "no-cache, no-store, must-revalidate",
		"Pragma":              "no-cache",
		"Expires":             "0",
	})
}

// handleUpload takes a multipart recording, uploads it and records the link.
func (s *Server) handleUpload(c *gin.Context) {
	start := time.Now()
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading uploaded file failed"})
		return
	}
	defer f.Close()

	page, err := s.uploader.Upload(c.Request.Context(), f, fh.Filename, c.PostForm("token"))
	if err != nil {
		status, outcome := uploadStatus(err)
		s.metrics.ObserveUpload(outcome, start, fh.Size)
		s.log.Warn().Err(err).Str("filename", fh.Filename).Int("status", status).Msg("upload failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	s.metrics.ObserveUpload("ok", start, fh.Size)

	if _, err := s.book.Add(c.Request.Context(), page, fh.Filename); err != nil {
		s.log.Warn().Err(err).Str("url", page).Msg("recording upload in history failed")
	}
	c.JSON(http.StatusOK, gin.H{"downloadPage": page})
}

func (s *Server) handleListHistory(c *gin.Context) {
	links, err := s.book.Store().Load(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("loading history failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading history failed"})
		return
	}
	if links == nil {
		links = []media.ShareLink{}
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

func (s *Server) handleRemoveHistory(c *gin.Context) {
	shareURL := strings.TrimSpace(c.Query("url"))
	if shareURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}
	if err := s.book.Store().Remove(c.Request.Context(), shareURL); err != nil {
		s.log.Error().Err(err).Msg("removing history entry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "removing history entry failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// resolve goes through the history so a preview of a recorded link is only
// resolved once.
func (s *Server) resolve(ctx context.Context, shareURL string) (*media.Resolved, error) {
	start := time.Now()
	res, err := s.book.Resolve(ctx, shareURL, s.resolver)
	outcome := "ok"
	if err != nil {
		outcome = resolve.KindOf(err).String()
	}
	s.metrics.ObserveResolve(outcome, start)
	return res, err
}

func (s *Server) resolveFailed(c *gin.Context, err error) {
	var rerr *resolve.Error
	if !errors.As(err, &rerr) {
		s.log.Error().Err(err).Msg("resolution failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	s.log.Warn().Err(err).Str("kind", rerr.Kind.String()).Msg("resolution failed")
	c.JSON(rerr.HTTPStatus(), gin.H{"error": rerr.Msg})
}

// uploadStatus maps an Uploader failure onto a status and a metrics outcome.
func uploadStatus(err error) (int, string) {
	var (
		dirErr  *upload.ServerDirectoryError
		tErr    *upload.TransportError
		respErr *upload.ResponseError
	)
	switch {
	case errors.As(err, &dirErr):
		return http.StatusBadGateway, "directory"
	case errors.As(err, &tErr):
		switch {
		case tErr.StatusCode == 0:
			return http.StatusGatewayTimeout, "transport"
		case tErr.StatusCode >= 400:
			return tErr.StatusCode, "transport"
		}
		return http.StatusBadGateway, "transport"
	case errors.As(err, &respErr):
		return http.StatusBadGateway, "response"
	case errors.Is(err, context.Canceled), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, "aborted"
	default:
		return http.StatusInternalServerError, "error"
	}
}
