package extractor

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultTitle    = "Instagram Video"
	defaultAuthor   = "Unknown"
	defaultFilename = "instagram-video"
	defaultExt      = "mp4"
)

// MediaInfo is the subset of yt-dlp's --dump-single-json output we use
type MediaInfo struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Uploader  string         `json:"uploader"`
	Channel   string         `json:"channel"`
	Duration  float64        `json:"duration"` // seconds
	Thumbnail string         `json:"thumbnail"`
	Formats   []FormatRecord `json:"formats"`
}

// DisplayTitle returns the title shown to the user
func (m *MediaInfo) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return defaultTitle
}

// Author returns the uploader, falling back to the channel name
func (m *MediaInfo) Author() string {
	switch {
	case m.Uploader != "":
		return m.Uploader
	case m.Channel != "":
		return m.Channel
	default:
		return defaultAuthor
	}
}

// FormatRecord is one candidate stream as reported by yt-dlp
type FormatRecord struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	VCodec     string   `json:"vcodec"`
	ACodec     string   `json:"acodec"`
	Height     int      `json:"height"`
	FPS        *float64 `json:"fps"`
	TBR        float64  `json:"tbr"` // average bitrate in KBit/s
	FormatNote string   `json:"format_note"`

	Filesize       float64 `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
}

// Size returns the exact or estimated size in bytes, 0 when unknown
func (f *FormatRecord) Size() int64 {
	if f.Filesize > 0 {
		return int64(f.Filesize)
	}
	return int64(f.FilesizeApprox)
}

// HasVideo reports whether the record carries a video track
func (f *FormatRecord) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != "none"
}

// HasAudio reports whether the record carries an audio track
func (f *FormatRecord) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// QualityLabel returns a human-readable quality label for the options list
func (f *FormatRecord) QualityLabel() string {
	if f.Height > 0 {
		return fmt.Sprintf("%dp", f.Height)
	}
	if f.FormatNote != "" {
		return f.FormatNote
	}
	return "SD"
}

// FormatOption is a ranked, user-facing download choice
type FormatOption struct {
	FormatID     string   `json:"formatId"`
	QualityLabel string   `json:"qualityLabel"`
	FPS          *float64 `json:"fps"`
	Height       int      `json:"height"`
	TBR          float64  `json:"tbr"`
}

var (
	unsafeTitleChars = regexp.MustCompile(`[^\w\s.-]`)
	unsafeExtChars   = regexp.MustCompile(`[^\w.-]`)
	spaceRuns        = regexp.MustCompile(`\s+`)
)

// SanitizeTitle strips everything but word characters, whitespace, dots and dashes.
// Whitespace runs collapse to one space so the result is safe in a header.
func SanitizeTitle(title string) string {
	result := unsafeTitleChars.ReplaceAllString(title, "")
	result = strings.TrimSpace(spaceRuns.ReplaceAllString(result, " "))
	if result == "" {
		return defaultFilename
	}
	return result
}

// DownloadFilename builds "<title>-<quality>.<ext>" for Content-Disposition
func DownloadFilename(title string, f FormatRecord) string {
	if title == "" {
		title = defaultFilename
	}
	quality := "video"
	if f.Height > 0 {
		quality = fmt.Sprintf("%dp", f.Height)
	}
	ext := strings.Trim(unsafeExtChars.ReplaceAllString(f.Ext, ""), ".")
	if ext == "" {
		ext = defaultExt
	}
	return fmt.Sprintf("%s-%s.%s", SanitizeTitle(title), quality, ext)
}
