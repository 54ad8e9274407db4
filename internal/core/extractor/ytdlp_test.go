package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiyumin/reelget/internal/metrics"
)

const testURL = "https://www.instagram.com/reel/C1a2b3c4d5/"

// helperYtDlp re-executes the test binary as a fake yt-dlp (see TestHelperProcess).
func helperYtDlp(mode string) *YtDlp {
	return &YtDlp{
		Bin:  os.Args[0],
		Args: []string{"-test.run=TestHelperProcess", "--"},
		Env:  []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=" + mode},
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}

	switch os.Getenv("HELPER_MODE") {
	case "metadata":
		fmt.Fprint(os.Stdout, `{"title":"Video by chef","uploader":"chef","duration":12,"formats":[`+
			`{"format_id":"8","ext":"mp4","vcodec":"avc1","acodec":"mp4a","height":720,"tbr":900}]}`)
	case "echo":
		out, _ := json.Marshal(map[string]any{"title": strings.Join(args, " ")})
		os.Stdout.Write(out)
	case "fail":
		fmt.Fprintln(os.Stderr, "ERROR: [Instagram] C1a2b3c4d5: Requested content is not available")
		os.Exit(1)
	case "fail-silent":
		os.Exit(2)
	case "garbage":
		fmt.Fprint(os.Stdout, "WARNING: not json")
	case "stream":
		fmt.Fprint(os.Stdout, strings.Join(args, " "))
	case "stream-fail":
		fmt.Fprint(os.Stdout, "partial")
		fmt.Fprintln(os.Stderr, "ERROR: fragment 3 not found")
		os.Exit(1)
	}
}

func TestFetchMetadata(t *testing.T) {
	info, err := helperYtDlp("metadata").FetchMetadata(context.Background(), testURL)
	require.NoError(t, err)

	assert.Equal(t, "Video by chef", info.Title)
	assert.Equal(t, "chef", info.Author())
	assert.Equal(t, 12.0, info.Duration)
	require.Len(t, info.Formats, 1)
	assert.Equal(t, "8", info.Formats[0].FormatID)
}

func TestFetchMetadataArgs(t *testing.T) {
	info, err := helperYtDlp("echo").FetchMetadata(context.Background(), testURL)
	require.NoError(t, err)
	assert.Equal(t, "--dump-single-json --no-playlist -- "+testURL, info.Title)
}

func TestFetchMetadataExtractionFailed(t *testing.T) {
	_, err := helperYtDlp("fail").FetchMetadata(context.Background(), testURL)
	require.Error(t, err)

	assert.True(t, IsCode(err, ErrExtractionFailed))
	assert.Equal(t, "ERROR: [Instagram] C1a2b3c4d5: Requested content is not available", DetailsOf(err))
}

func TestFetchMetadataExitCodeWithoutStderr(t *testing.T) {
	_, err := helperYtDlp("fail-silent").FetchMetadata(context.Background(), testURL)
	require.Error(t, err)

	assert.True(t, IsCode(err, ErrExtractionFailed))
	assert.Equal(t, "yt-dlp exited with 2", DetailsOf(err))
}

func TestFetchMetadataMalformedOutput(t *testing.T) {
	_, err := helperYtDlp("garbage").FetchMetadata(context.Background(), testURL)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrMalformedOutput))
}

func TestFetchMetadataMissingBinary(t *testing.T) {
	y := NewYtDlp("/nonexistent/python", "-m", "yt_dlp")
	_, err := y.FetchMetadata(context.Background(), testURL)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrExtractionFailed))
	assert.False(t, Available(y.Bin))
}

func TestOpenDownloadStream(t *testing.T) {
	stream, err := helperYtDlp("stream").OpenDownloadStream(context.Background(), testURL, "8")
	require.NoError(t, err)

	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.NoError(t, stream.Close())
	assert.Equal(t, "--no-playlist -f 8 -o - -- "+testURL, string(body))

	// Close is idempotent
	assert.NoError(t, stream.Close())
}

func TestOpenDownloadStreamLateFailure(t *testing.T) {
	stream, err := helperYtDlp("stream-fail").OpenDownloadStream(context.Background(), testURL, "8")
	require.NoError(t, err)

	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "partial", string(body))

	err = stream.Close()
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrExtractionFailed))
	assert.Equal(t, "ERROR: fragment 3 not found", DetailsOf(err))
}

func TestOpenDownloadStreamMissingBinary(t *testing.T) {
	_, err := NewYtDlp("/nonexistent/python").OpenDownloadStream(context.Background(), testURL, "8")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrExtractionFailed))
}

func TestInFlightTracksSubprocesses(t *testing.T) {
	before := testutil.ToFloat64(metrics.ExtractorInFlight)

	_, err := helperYtDlp("metadata").FetchMetadata(context.Background(), testURL)
	require.NoError(t, err)
	assert.Equal(t, before, testutil.ToFloat64(metrics.ExtractorInFlight))

	stream, err := helperYtDlp("stream").OpenDownloadStream(context.Background(), testURL, "8")
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ExtractorInFlight))

	io.Copy(io.Discard, stream)
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
	assert.Equal(t, before, testutil.ToFloat64(metrics.ExtractorInFlight))
}

func TestTailBufferKeepsEnd(t *testing.T) {
	b := newTailBuffer(8)
	b.Write([]byte("0123456789"))
	b.Write([]byte("ab"))
	assert.Equal(t, "456789ab", b.String())
}
