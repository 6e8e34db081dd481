package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cpttripzz/Chatterblez/internal/progress"
)

// DefaultBitrate is the audio bitrate of the intermediate and final files.
const DefaultBitrate = "64k"

// Format is the final container.
type Format string

const (
	FormatM4B Format = "m4b"
	FormatMP3 Format = "mp3"
)

// ParseFormat accepts "m4b" or "mp3", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatM4B, FormatMP3:
		return f, nil
	case "":
		return FormatM4B, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: m4b, mp3)", s)
	}
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string { return string(f) }

// DurationProber is the part of Prober the encoder needs.
type DurationProber interface {
	Duration(ctx context.Context, path string) float64
}

// Encoder runs the concat and mux stages.
type Encoder struct {
	Runner  *Runner
	Prober  DurationProber
	Bitrate string
	Logger  *log.Logger
}

// NewEncoder wires an encoder from resolved tools.
func NewEncoder(tools Tools, bitrate string, logger *log.Logger) *Encoder {
	if logger == nil {
		logger = log.Default()
	}
	if bitrate == "" {
		bitrate = DefaultBitrate
	}
	return &Encoder{
		Runner:  NewRunner(tools.FFmpeg, logger),
		Prober:  NewProber(tools.FFprobe, logger),
		Bitrate: bitrate,
		Logger:  logger,
	}
}

// ConcatRequest lists chapter files in final order.
type ConcatRequest struct {
	Files []string
	// Durations in seconds, parallel to Files. Nil probes every file
	// that exists.
	Durations []float64
	OutputDir string
	Stem      string
}

// ManifestPath is the concat list written for stem.
func ManifestPath(outputDir, stem string) string {
	return filepath.Join(outputDir, stem+"_wav_list.txt")
}

// IntermediatePath is the concatenated stream for stem.
func IntermediatePath(outputDir, stem string) string {
	return filepath.Join(outputDir, stem+".tmp.mp4")
}

// Concat merges the chapter files into one AAC stream and returns its
// path. The manifest is always removed; the intermediate stream is
// removed when the merge fails.
func (e *Encoder) Concat(ctx context.Context, req ConcatRequest, observer progress.Observer) (string, error) {
	if len(req.Files) == 0 {
		return "", ErrNoInputs
	}

	manifest := ManifestPath(req.OutputDir, req.Stem)
	if err := writeManifest(manifest, req.Files); err != nil {
		return "", err
	}
	defer removeTransient(e.Logger, manifest)

	durations := req.Durations
	if durations == nil {
		durations = make([]float64, len(req.Files))
		for i, f := range req.Files {
			if _, err := os.Stat(f); err == nil {
				durations[i] = e.Prober.Duration(ctx, f)
			}
		}
	}
	var total float64
	for _, d := range durations {
		total += d
	}
	e.Logger.Info("Concatenating chapters", "files", len(req.Files), "duration", time.Duration(total*float64(time.Second)).Round(time.Second))

	out := IntermediatePath(req.OutputDir, req.Stem)
	args := []string{
		"-y", "-nostdin",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c:a", "aac",
		"-b:a", e.Bitrate,
		"-progress", "pipe:1",
		"-nostats",
		out,
	}

	tracker := progress.New(progress.StageConcat, int64(total*1000), observer)
	if err := e.Runner.Run(ctx, string(progress.StageConcat), args, trackPosition(tracker)); err != nil {
		removeTransient(e.Logger, out)
		return "", err
	}
	tracker.Advance(int64(total * 1000))
	return out, nil
}

// MuxRequest describes the final container.
type MuxRequest struct {
	Input        string
	ChapterIndex string
	Cover        []byte
	// CoverExt such as ".jpg" helps ffmpeg pick the image demuxer.
	CoverExt  string
	OutputDir string
	Stem      string
	Year      string
	Format    Format
}

// OutputPath is "<year> - <stem>.<ext>" in the output directory.
func (r MuxRequest) OutputPath() string {
	format := r.Format
	if format == "" {
		format = FormatM4B
	}
	return filepath.Join(r.OutputDir, fmt.Sprintf("%s - %s.%s", r.Year, r.Stem, format.Ext()))
}

// Mux combines the intermediate stream, chapter index and optional cover
// into the final file. Output goes to a .part file that is renamed only on
// success, so a failed mux never leaves anything at the destination. The
// intermediate stream and cover file are always removed.
func (e *Encoder) Mux(ctx context.Context, req MuxRequest, observer progress.Observer) (string, error) {
	defer removeTransient(e.Logger, req.Input)

	dest := req.OutputPath()
	part := dest + ".part"

	var cover string
	if len(req.Cover) > 0 {
		cover = filepath.Join(req.OutputDir, req.Stem+"_cover"+req.CoverExt)
		if err := os.WriteFile(cover, req.Cover, 0o644); err != nil { //nolint:gosec
			return "", fmt.Errorf("write cover: %w", err)
		}
		defer removeTransient(e.Logger, cover)
	}

	args := MuxArgs(req, cover, e.Bitrate, part)

	total := int64(e.Prober.Duration(ctx, req.Input) * 1000)
	tracker := progress.New(progress.StageMux, total, observer)
	if err := e.Runner.Run(ctx, string(progress.StageMux), args, trackPosition(tracker)); err != nil {
		removeTransient(e.Logger, part)
		return "", err
	}
	if err := os.Rename(part, dest); err != nil {
		removeTransient(e.Logger, part)
		return "", fmt.Errorf("finalize %s: %w", dest, err)
	}
	tracker.Advance(total)
	e.Logger.Info("Audiobook created", "path", dest)
	return dest, nil
}

// MuxArgs builds the ffmpeg arguments for the final container. With a
// cover the image is input 2 and metadata/chapters come from input 2 as
// well; without one they come from input 1.
func MuxArgs(req MuxRequest, cover, bitrate, output string) []string {
	if bitrate == "" {
		bitrate = DefaultBitrate
	}
	args := []string{
		"-y", "-nostdin",
		"-i", req.Input,
		"-i", req.ChapterIndex,
	}
	metaIndex := "1"
	if cover != "" {
		args = append(args, "-i", cover)
		metaIndex = "2"
	}

	codec, container := "aac", "mp4"
	if req.Format == FormatMP3 {
		codec, container = "libmp3lame", "mp3"
	}
	args = append(args,
		"-map", "0:a",
		"-c:a", codec,
		"-b:a", bitrate,
	)
	if cover != "" {
		args = append(args,
			"-map", "2:v",
			"-metadata:s:v", "title=Album cover",
			"-metadata:s:v", "comment=Cover (front)",
			"-disposition:v:0", "attached_pic",
			"-c:v", "copy",
		)
	}
	args = append(args,
		"-map_metadata", metaIndex,
		"-map_chapters", metaIndex,
	)
	if req.Format == FormatMP3 {
		args = append(args, "-id3v2_version", "3")
	}
	return append(args,
		"-f", container,
		"-progress", "pipe:1",
		"-nostats",
		output,
	)
}

func trackPosition(tracker *progress.Tracker) ProgressFunc {
	return func(pos time.Duration) {
		tracker.Advance(pos.Milliseconds())
	}
}

func writeManifest(path string, files []string) error {
	var b strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}

func removeTransient(logger *log.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Could not remove temporary file", "path", path, "err", err)
	}
}
