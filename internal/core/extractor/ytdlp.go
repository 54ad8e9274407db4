package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guiyumin/reelget/internal/metrics"
)

// maxStderr bounds how much diagnostic output is kept per subprocess
const maxStderr = 64 * 1024

// Resolver is the narrow contract between the HTTP layer and yt-dlp
type Resolver interface {
	// FetchMetadata returns the media info for a single item (no playlist expansion)
	FetchMetadata(ctx context.Context, url string) (*MediaInfo, error)

	// OpenDownloadStream starts streaming the muxed bytes of one format.
	// Close waits for the extractor and reports its failure, if any.
	OpenDownloadStream(ctx context.Context, url, formatID string) (io.ReadCloser, error)
}

// YtDlp runs yt-dlp as a subprocess: <Bin> <Args...> <yt-dlp options> -- <url>
type YtDlp struct {
	// Bin is the interpreter or executable to run (e.g., .venv/bin/python)
	Bin string

	// Args precede the yt-dlp options (e.g., -m yt_dlp)
	Args []string

	// Env is appended to the current process environment
	Env []string
}

// NewYtDlp creates a resolver that invokes yt-dlp through bin
func NewYtDlp(bin string, args ...string) *YtDlp {
	return &YtDlp{Bin: bin, Args: args}
}

// Available checks if the extractor binary can be found (absolute, relative or in PATH)
func Available(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}

func (y *YtDlp) command(ctx context.Context, opts ...string) *exec.Cmd {
	args := make([]string, 0, len(y.Args)+len(opts))
	args = append(args, y.Args...)
	args = append(args, opts...)

	cmd := exec.CommandContext(ctx, y.Bin, args...)
	if len(y.Env) > 0 {
		cmd.Env = append(os.Environ(), y.Env...)
	}
	log.Debug().Str("bin", y.Bin).Strs("args", args).Msg("Running yt-dlp")
	return cmd
}

// MetadataArgs returns the yt-dlp options used to dump metadata
func MetadataArgs(url string) []string {
	return []string{"--dump-single-json", "--no-playlist", "--", url}
}

// DownloadArgs returns the yt-dlp options used to stream one format to stdout
func DownloadArgs(url, formatID string) []string {
	return []string{"--no-playlist", "-f", formatID, "-o", "-", "--", url}
}

// FetchMetadata runs yt-dlp --dump-single-json and decodes its stdout
func (y *YtDlp) FetchMetadata(ctx context.Context, url string) (*MediaInfo, error) {
	start := time.Now()
	cmd := y.command(ctx, MetadataArgs(url)...)

	var stdout bytes.Buffer
	stderr := newTailBuffer(maxStderr)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	metrics.ExtractorInFlight.Inc()
	runErr := cmd.Run()
	metrics.ExtractorInFlight.Dec()
	metrics.ExtractorDuration.WithLabelValues(metrics.ModeMetadata).Observe(time.Since(start).Seconds())
	if runErr != nil {
		metrics.ExtractorRunsTotal.WithLabelValues(metrics.ModeMetadata, metrics.StatusFailed).Inc()
		return nil, extractionError(runErr, stderr.String())
	}

	var info MediaInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		metrics.ExtractorRunsTotal.WithLabelValues(metrics.ModeMetadata, metrics.StatusMalformed).Inc()
		return nil, &Error{
			Code:    ErrMalformedOutput,
			Message: "failed to parse format metadata from yt-dlp",
			Err:     err,
		}
	}

	metrics.ExtractorRunsTotal.WithLabelValues(metrics.ModeMetadata, metrics.StatusOK).Inc()
	log.Debug().Str("url", url).Int("formats", len(info.Formats)).Dur("took", time.Since(start)).Msg("Fetched metadata")
	return &info, nil
}

// OpenDownloadStream starts yt-dlp -f <formatID> -o - and returns its stdout
func (y *YtDlp) OpenDownloadStream(ctx context.Context, url, formatID string) (io.ReadCloser, error) {
	cmd := y.command(ctx, DownloadArgs(url, formatID)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &Error{Code: ErrExtractionFailed, Message: "failed to run yt-dlp", Details: err.Error(), Err: err}
	}
	stderr := newTailBuffer(maxStderr)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		metrics.ExtractorRunsTotal.WithLabelValues(metrics.ModeDownload, metrics.StatusFailed).Inc()
		return nil, extractionError(err, "")
	}
	metrics.ExtractorInFlight.Inc()

	return &processStream{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		start:  time.Now(),
	}, nil
}

// processStream exposes a running yt-dlp's stdout as an io.ReadCloser
type processStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	start  time.Time

	once sync.Once
	err  error
}

func (s *processStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Close releases the pipe and waits for the process. A process that is
// still writing gets EPIPE once the read end is gone.
func (s *processStream) Close() error {
	s.once.Do(func() {
		s.stdout.Close()
		waitErr := s.cmd.Wait()
		metrics.ExtractorInFlight.Dec()
		metrics.ExtractorDuration.WithLabelValues(metrics.ModeDownload).Observe(time.Since(s.start).Seconds())
		if waitErr != nil {
			metrics.ExtractorRunsTotal.WithLabelValues(metrics.ModeDownload, metrics.StatusFailed).Inc()
			s.err = extractionError(waitErr, s.stderr.String())
			return
		}
		metrics.ExtractorRunsTotal.WithLabelValues(metrics.ModeDownload, metrics.StatusOK).Inc()
	})
	return s.err
}

// extractionError converts a failed run into an ErrExtractionFailed.
// The details are yt-dlp's stderr, or the exit status when stderr is empty.
func extractionError(err error, stderr string) *Error {
	details := strings.TrimSpace(stderr)
	if details == "" {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			details = fmt.Sprintf("yt-dlp exited with %d", exitErr.ExitCode())
		} else {
			details = err.Error()
		}
	}
	return &Error{
		Code:    ErrExtractionFailed,
		Message: "yt-dlp failed",
		Details: details,
		Err:     err,
	}
}

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
