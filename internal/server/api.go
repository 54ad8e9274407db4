package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guiyumin/reelget/internal/core/extractor"
	"github.com/guiyumin/reelget/internal/core/version"
	"github.com/guiyumin/reelget/internal/metrics"
)

// User-facing messages
const (
	msgInvalidURL      = "Please provide a valid Instagram reel/post URL."
	msgInfoFailed      = "Failed to fetch video information."
	msgNoFormats       = "No downloadable formats found."
	msgInvalidDownload = "Missing or invalid url/formatId."
	msgFormatNotFound  = "Requested format was not found."
	msgDownloadFailed  = "Download failed."
)

const streamBufferSize = 32 * 1024

// InfoRequest is the request body for POST /api/info
type InfoRequest struct {
	URL string `json:"url"`
}

// InfoResponse describes a post and its downloadable formats
type InfoResponse struct {
	Title         string                   `json:"title"`
	Author        string                   `json:"author"`
	LengthSeconds float64                  `json:"lengthSeconds"`
	Thumbnail     *string                  `json:"thumbnail"`
	Options       []extractor.FormatOption `json:"options"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NewInfoResponse shapes metadata and ranked options for the client
func NewInfoResponse(info *extractor.MediaInfo, options []extractor.FormatOption) InfoResponse {
	resp := InfoResponse{
		Title:         info.DisplayTitle(),
		Author:        info.Author(),
		LengthSeconds: info.Duration,
		Options:       options,
	}
	if info.Thumbnail != "" {
		thumbnail := info.Thumbnail
		resp.Thumbnail = &thumbnail
	}
	return resp
}

// invalidInput and notFound are gateway-side failures with no diagnostics
func invalidInput(message string) *extractor.Error {
	return &extractor.Error{Code: extractor.ErrInvalidInput, Message: message}
}

func notFound(message string) *extractor.Error {
	return &extractor.Error{Code: extractor.ErrNotFound, Message: message}
}

// resolveFailed replaces the resolver's message with a user-facing one.
// The code and diagnostic text of err are kept.
func resolveFailed(message string, err error) *extractor.Error {
	code := extractor.ErrExtractionFailed
	var e *extractor.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return &extractor.Error{
		Code:    code,
		Message: message,
		Details: extractor.DetailsOf(err),
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *extractor.Error) {
	c.AbortWithStatusJSON(err.HTTPStatus(), ErrorResponse{
		Error:   err.Message,
		Details: err.Details,
	})
}

// logResolveError logs yt-dlp refusals as warnings; anything else
// (unparsable output, a cancelled wait for a slot) is an error on our side.
func logResolveError(logger *zerolog.Logger, err error, msg string) {
	event := logger.Error()
	if extractor.IsCode(err, extractor.ErrExtractionFailed) {
		event = logger.Warn()
	}
	event.Err(err).Msg(msg)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"version":             version.Version,
		"extractor_available": extractor.Available(s.cfg.Extractor.Python),
	})
}

func (s *Server) handleInfo(c *gin.Context) {
	var req InfoRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" || !extractor.IsSupportedURL(req.URL) {
		abortWithError(c, invalidInput(msgInvalidURL))
		return
	}

	logger := zerolog.Ctx(c.Request.Context()).With().Str("url", req.URL).Logger()

	info, err := s.resolver.FetchMetadata(s.extractorContext(c), req.URL)
	if err != nil {
		logResolveError(&logger, err, "Could not fetch metadata")
		abortWithError(c, resolveFailed(msgInfoFailed, err))
		return
	}

	options := extractor.SelectOptions(info.Formats)
	if len(options) == 0 {
		logger.Info().Int("formats", len(info.Formats)).Msg("No muxed formats")
		abortWithError(c, notFound(msgNoFormats))
		return
	}

	c.JSON(http.StatusOK, NewInfoResponse(info, options))
}

func (s *Server) handleDownload(c *gin.Context) {
	url := c.Query("url")
	formatID := c.Query("formatId")
	if url == "" || formatID == "" || !extractor.IsSupportedURL(url) {
		abortWithError(c, invalidInput(msgInvalidDownload))
		return
	}

	logger := zerolog.Ctx(c.Request.Context()).With().Str("url", url).Str("format_id", formatID).Logger()
	ctx := s.extractorContext(c)

	// Format ids are not stable across requests, so resolve again
	info, err := s.resolver.FetchMetadata(ctx, url)
	if err != nil {
		logResolveError(&logger, err, "Could not fetch metadata")
		abortWithError(c, resolveFailed(msgDownloadFailed, err))
		return
	}

	record, ok := extractor.FindFormat(info.Formats, formatID)
	if !ok {
		abortWithError(c, notFound(msgFormatNotFound))
		return
	}

	stream, err := s.resolver.OpenDownloadStream(ctx, url, formatID)
	if err != nil {
		logResolveError(&logger, err, "Could not start download")
		abortWithError(c, resolveFailed(msgDownloadFailed, err))
		return
	}

	filename := extractor.DownloadFilename(info.Title, record)
	s.streamDownload(c, stream, filename, logger)
}

// streamDownload copies the extractor output to the response. Headers are
// committed with the first byte; a failure before that becomes a 500, a
// failure after it truncates the body.
func (s *Server) streamDownload(c *gin.Context, stream io.ReadCloser, filename string, logger zerolog.Logger) {
	buf := make([]byte, streamBufferSize)

	n, readErr := readSome(stream, buf)
	if n == 0 {
		closeErr := stream.Close()
		if closeErr == nil && readErr != nil && !errors.Is(readErr, io.EOF) {
			closeErr = readErr
		}
		if closeErr != nil {
			logResolveError(&logger, closeErr, "Download failed before first byte")
			abortWithError(c, resolveFailed(msgDownloadFailed, closeErr))
			return
		}
	}

	c.Header("Content-Disposition", contentDisposition(filename))
	c.Header("Content-Type", "video/mp4")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()

	if n == 0 {
		logger.Info().Str("filename", filename).Msg("Download completed with empty body")
		return
	}

	var written int64
	for {
		if n > 0 {
			if _, err := c.Writer.Write(buf[:n]); err != nil {
				stream.Close()
				metrics.DownloadsClientGoneTotal.Inc()
				logger.Warn().Err(err).Int64("bytes", written).Str("filename", filename).Msg("Client went away during download")
				return
			}
			c.Writer.Flush()
			written += int64(n)
			metrics.DownloadBytesTotal.Add(float64(n))
		}
		if readErr != nil {
			break
		}
		n, readErr = stream.Read(buf)
	}

	err := stream.Close()
	if err == nil && !errors.Is(readErr, io.EOF) {
		err = readErr
	}
	if err != nil {
		metrics.DownloadsTruncatedTotal.Inc()
		logger.Warn().Err(err).Int64("bytes", written).Str("filename", filename).Msg("Download truncated")
		return
	}

	logger.Info().Int64("bytes", written).Str("filename", filename).Msg("Download completed")
}

// readSome reads until at least one byte or an error
func readSome(r io.Reader, buf []byte) (int, error) {
	for {
		n, err := r.Read(buf)
		if n > 0 || err != nil {
			return n, err
		}
	}
}
