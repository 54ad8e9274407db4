package extractor

import (
	"sort"

	"github.com/samber/lo"
)

// playableExt is the only container the browser form offers
const playableExt = "mp4"

// IsMuxed reports whether f is a single playable file with both tracks
func IsMuxed(f FormatRecord) bool {
	return f.FormatID != "" && f.Ext == playableExt && f.HasVideo() && f.HasAudio()
}

// SelectOptions reduces yt-dlp's format list to the muxed mp4 streams,
// one per quality label, ordered by height then bitrate (both descending).
// When two records share a label the higher bitrate wins; on an exact tie
// the first one seen is kept. Returns an empty slice when nothing qualifies.
func SelectOptions(formats []FormatRecord) []FormatOption {
	options := make([]FormatOption, 0, len(formats))
	index := make(map[string]int, len(formats))

	for _, f := range formats {
		if !IsMuxed(f) {
			continue
		}
		opt := FormatOption{
			FormatID:     f.FormatID,
			QualityLabel: f.QualityLabel(),
			FPS:          f.FPS,
			Height:       f.Height,
			TBR:          f.TBR,
		}
		if i, ok := index[opt.QualityLabel]; ok {
			if opt.TBR > options[i].TBR {
				options[i] = opt
			}
			continue
		}
		index[opt.QualityLabel] = len(options)
		options = append(options, opt)
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Height != options[j].Height {
			return options[i].Height > options[j].Height
		}
		return options[i].TBR > options[j].TBR
	})

	return options
}

// FindFormat looks up a record by its exact format id
func FindFormat(formats []FormatRecord, formatID string) (FormatRecord, bool) {
	return lo.Find(formats, func(f FormatRecord) bool {
		return f.FormatID == formatID
	})
}
