package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Prober reads media information with ffprobe.
type Prober struct {
	Binary string
	Logger *log.Logger
}

// NewProber returns a prober for binary. An empty binary makes every
// duration unknown.
func NewProber(binary string, logger *log.Logger) *Prober {
	if logger == nil {
		logger = log.Default()
	}
	return &Prober{Binary: binary, Logger: logger}
}

// Duration returns the playback length of path in seconds. A missing
// file, a failing ffprobe or unparsable output all yield 0.
func (p *Prober) Duration(ctx context.Context, path string) float64 {
	secs, err := p.probe(ctx, path)
	if err != nil {
		p.Logger.Warn("Could not probe duration", "err", err)
		return 0
	}
	return secs
}

// Durations probes each path in order.
func (p *Prober) Durations(ctx context.Context, paths []string) []float64 {
	out := make([]float64, len(paths))
	for i, path := range paths {
		out[i] = p.Duration(ctx, path)
	}
	return out
}

func (p *Prober) probe(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, &ProbeError{Path: path, Reason: "file not found", Err: err}
	}
	if p.Binary == "" {
		return 0, &ProbeError{Path: path, Reason: "ffprobe not available"}
	}

	args := []string{
		"-i", path,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "default=noprint_wrappers=1:nokey=1",
	}
	out, err := commandContext(ctx, p.Binary, args...).Output()
	if err != nil {
		return 0, &ProbeError{Path: path, Reason: "ffprobe failed", Err: err}
	}
	raw := strings.TrimSpace(string(out))
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ProbeError{Path: path, Reason: fmt.Sprintf("could not parse %q", raw), Err: err}
	}
	return secs, nil
}

// MediaChapter is one chapter marker read back from a container.
type MediaChapter struct {
	Title string
	Start float64
	End   float64
}

// MediaInfo summarizes a finished audiobook.
type MediaInfo struct {
	Path       string
	FormatName string
	Duration   float64
	Size       int64
	BitRate    int64
	Tags       map[string]string
	Chapters   []MediaChapter
	HasCover   bool
}

type probeOutput struct {
	Format struct {
		FormatName string            `json:"format_name"`
		Duration   string            `json:"duration"`
		Size       string            `json:"size"`
		BitRate    string            `json:"bit_rate"`
		Tags       map[string]string `json:"tags"`
	} `json:"format"`
	Chapters []struct {
		StartTime string            `json:"start_time"`
		EndTime   string            `json:"end_time"`
		Tags      map[string]string `json:"tags"`
	} `json:"chapters"`
	Streams []struct {
		CodecType   string         `json:"codec_type"`
		Disposition map[string]int `json:"disposition"`
	} `json:"streams"`
}

// Inspect reads the container format, tags, chapters and cover presence.
// Unlike Duration it reports failures.
func (p *Prober) Inspect(ctx context.Context, path string) (*MediaInfo, error) {
	if p.Binary == "" {
		return nil, &MissingToolError{Tool: "ffprobe", Instructions: instructions()}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_chapters", "-show_streams",
		path,
	}
	out, err := commandContext(ctx, p.Binary, args...).Output()
	if err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			return nil, &ExternalToolError{Tool: "ffprobe", Stage: "inspect", ExitCode: exitErr.ExitCode(), Err: err}
		}
		return nil, err
	}

	var raw probeOutput
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &MediaInfo{
		Path:       path,
		FormatName: raw.Format.FormatName,
		Duration:   parseFloat(raw.Format.Duration),
		Size:       int64(parseFloat(raw.Format.Size)),
		BitRate:    int64(parseFloat(raw.Format.BitRate)),
		Tags:       raw.Format.Tags,
	}
	for _, c := range raw.Chapters {
		info.Chapters = append(info.Chapters, MediaChapter{
			Title: c.Tags["title"],
			Start: parseFloat(c.StartTime),
			End:   parseFloat(c.EndTime),
		})
	}
	for _, s := range raw.Streams {
		if s.CodecType == "video" && s.Disposition["attached_pic"] == 1 {
			info.HasCover = true
		}
	}
	return info, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
