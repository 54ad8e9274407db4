package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/guiyumin/reelget/internal/core/extractor"
	"github.com/guiyumin/reelget/internal/server"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <url>",
	Short: "List the downloadable formats of a reel",
	Long: `List the downloadable formats of an Instagram reel or post,
best quality first.

Examples:
  reelget info https://www.instagram.com/reel/C1a2b3c4d5/
  reelget info --json https://www.instagram.com/p/C1a2b3c4d5/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		url := args[0]
		if !extractor.IsSupportedURL(url) {
			return fmt.Errorf("not an Instagram reel/post URL: %s", url)
		}

		info, err := newResolver(cfg).FetchMetadata(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("failed to fetch video information: %w", err)
		}

		options := extractor.SelectOptions(info.Formats)
		if len(options) == 0 {
			return fmt.Errorf("no downloadable formats found")
		}

		resp := server.NewInfoResponse(info, options)
		if infoJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}

		printInfo(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "print the result as JSON")

	rootCmd.AddCommand(infoCmd)
}

func printInfo(w io.Writer, resp server.InfoResponse) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	bold.Fprintf(w, "Title:  ")
	fmt.Fprintln(w, resp.Title)
	bold.Fprintf(w, "Author: ")
	fmt.Fprintln(w, resp.Author)
	if resp.LengthSeconds > 0 {
		bold.Fprintf(w, "Length: ")
		fmt.Fprintf(w, "%.0fs\n", resp.LengthSeconds)
	}

	fmt.Fprintln(w)
	bold.Fprintf(w, "%-12s %-10s %-8s %s\n", "FORMAT", "QUALITY", "FPS", "BITRATE")
	fmt.Fprintln(w, strings.Repeat("-", 44))

	for i, opt := range resp.Options {
		fps := "-"
		if opt.FPS != nil {
			fps = fmt.Sprintf("%.0f", *opt.FPS)
		}
		tbr := "-"
		if opt.TBR > 0 {
			tbr = fmt.Sprintf("%.0fk", opt.TBR)
		}

		id := cyan.Sprintf("%-12s", opt.FormatID)
		if i == 0 {
			id = green.Sprintf("%-12s", opt.FormatID)
		}
		fmt.Fprintf(w, "%s %-10s %-8s %s\n", id, opt.QualityLabel, fps, tbr)
	}
}
