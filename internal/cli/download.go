package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/guiyumin/reelget/internal/core/extractor"
	"github.com/guiyumin/reelget/internal/core/logging"
)

var (
	downloadFormat string
	downloadOutput string
)

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Download one format of a reel",
	Long: `Download one format of an Instagram reel or post. Without -f the
best muxed format is used.

Examples:
  reelget download https://www.instagram.com/reel/C1a2b3c4d5/
  reelget download -f 8 -o reel.mp4 https://www.instagram.com/reel/C1a2b3c4d5/
  reelget download -o - https://www.instagram.com/reel/C1a2b3c4d5/ | mpv -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		showProgress := downloadOutput != "-" && logging.IsTerminal(os.Stderr)
		return runDownload(ctx, newResolver(cfg), args[0], downloadFormat, downloadOutput, showProgress, cmd.OutOrStdout())
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadFormat, "format", "f", "", "format id from `reelget info` (default: best)")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file, or - for stdout")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(ctx context.Context, resolver extractor.Resolver, url, formatID, output string, showProgress bool, stdout io.Writer) error {
	if !extractor.IsSupportedURL(url) {
		return fmt.Errorf("not an Instagram reel/post URL: %s", url)
	}

	info, err := resolver.FetchMetadata(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to fetch video information: %w", err)
	}

	if formatID == "" {
		options := extractor.SelectOptions(info.Formats)
		if len(options) == 0 {
			return fmt.Errorf("no downloadable formats found")
		}
		formatID = options[0].FormatID
	}

	record, ok := extractor.FindFormat(info.Formats, formatID)
	if !ok {
		return fmt.Errorf("format %q was not found", formatID)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := resolver.OpenDownloadStream(ctx, url, formatID)
	if err != nil {
		return fmt.Errorf("failed to start download: %w", err)
	}

	if output == "-" {
		if _, err := io.Copy(stdout, stream); err != nil {
			stream.Close()
			return err
		}
		return stream.Close()
	}

	if output == "" {
		output = extractor.DownloadFilename(info.Title, record)
	}

	copyFn := func(onWrite func(int)) (int64, error) {
		return writeFile(output, stream, onWrite)
	}

	var written int64
	if showProgress {
		label := fmt.Sprintf("%s [%s]", output, record.QualityLabel())
		written, err = copyWithProgress(label, record.Size(), cancel, copyFn)
	} else {
		written, err = copyFn(nil)
	}
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	log.Debug().Str("file", output).Int64("bytes", written).Msg("Download completed")
	fmt.Fprintf(stdout, "%s %s (%s)\n", color.GreenString("Saved"), output, formatBytes(written))
	return nil
}

// writeFile copies stream into path. The stream is always closed, and a
// failed extractor exit fails the write even when the copy was clean.
// The partial file is removed on failure; a path that could not be
// created is left alone.
func writeFile(path string, stream io.ReadCloser, onWrite func(int)) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		stream.Close()
		return 0, err
	}

	written, copyErr := io.Copy(progressWriter{w: f, onWrite: onWrite}, stream)
	closeErr := stream.Close()
	fileErr := f.Close()

	if err := errors.Join(copyErr, closeErr, fileErr); err != nil {
		os.Remove(path)
		return written, err
	}
	return written, nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
