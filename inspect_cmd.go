package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cpttripzz/Chatterblez/internal/ffmpeg"
	"github.com/cpttripzz/Chatterblez/internal/progress"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect AUDIOBOOK",
	Short:   "Show tags, chapters and cover of a finished audiobook",
	Example: paragraph("chatterblez inspect \"2024 - book.m4b\""),
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tools, err := ffmpeg.LookupTools(cmd.Context(), cfg.FFmpeg.FFmpeg, cfg.FFmpeg.FFprobe)
		if err != nil {
			return err
		}
		info, err := ffmpeg.NewProber(tools.FFprobe, nil).Inspect(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Print(mediaReport(info))
		return nil
	},
}

func mediaReport(info *ffmpeg.MediaInfo) string {
	label := lipgloss.NewStyle().Bold(true).Width(10).Render
	seconds := func(s float64) string {
		return progress.FormatDuration(time.Duration(s * float64(time.Second)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", label("File"), info.Path)
	fmt.Fprintf(&b, "%s %s\n", label("Format"), info.FormatName)
	fmt.Fprintf(&b, "%s %s\n", label("Length"), seconds(info.Duration))
	fmt.Fprintf(&b, "%s %s\n", label("Size"), humanize.Bytes(uint64(max(info.Size, 0)))) //nolint:gosec
	fmt.Fprintf(&b, "%s %s/s\n", label("Bitrate"), humanize.SI(float64(info.BitRate), "b"))
	cover := "no"
	if info.HasCover {
		cover = "yes"
	}
	fmt.Fprintf(&b, "%s %s\n", label("Cover"), cover)

	if len(info.Tags) > 0 {
		b.WriteString("\n" + keyword("Tags") + "\n")
		for _, k := range slices.Sorted(maps.Keys(info.Tags)) {
			fmt.Fprintf(&b, "  %s %s\n", label(k), info.Tags[k])
		}
	}

	if len(info.Chapters) > 0 {
		b.WriteString("\n" + keyword(fmt.Sprintf("Chapters (%d)", len(info.Chapters))) + "\n")
		for i, c := range info.Chapters {
			fmt.Fprintf(&b, "  %3d  %s  %s\n", i+1, seconds(c.Start), c.Title)
		}
	}
	return b.String()
}
