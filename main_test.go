package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/cpttripzz/Chatterblez/internal/config"
	"github.com/cpttripzz/Chatterblez/internal/ebook"
	"github.com/cpttripzz/Chatterblez/internal/ffmpeg"
	"github.com/cpttripzz/Chatterblez/internal/pipeline"
	"github.com/cpttripzz/Chatterblez/internal/tts"
)

func testBook() *ebook.Book {
	return &ebook.Book{
		Title:  "The Book",
		Author: "Jane | Doe",
		Chapters: []ebook.Chapter{
			{Index: 0, Name: "cover.xhtml", Text: "Cover."},
			{Index: 1, Name: "chapter_1.xhtml", Text: "It was a long night.\nThe end.", Selected: true},
			{Index: 2, Name: "chapter_2.xhtml", Text: "Another day began, slowly.", Selected: true},
		},
	}
}

func TestChapterTable(t *testing.T) {
	table := chapterTable(testBook())

	for _, want := range []string{
		"# The Book",
		`by Jane \| Doe`,
		"| 2 | ✓ | chapter_1.xhtml | 29 | It was a long night. The end.… |",
		"| 1 |  | cover.xhtml | 6 | Cover.… |",
		"2 of 3 chapters selected, 55 characters to read.",
	} {
		if !strings.Contains(table, want) {
			t.Errorf("table is missing %q:\n%s", want, table)
		}
	}
}

func TestPreviewTarget(t *testing.T) {
	book := testBook()

	tests := []struct {
		chapter int
		wantPos int
		wantErr bool
	}{
		{0, 2, false},
		{3, 3, false},
		{1, 1, false},
		{4, 0, true},
	}
	for _, tt := range tests {
		previewChapter = tt.chapter
		c, pos, err := previewTarget(book)
		if (err != nil) != tt.wantErr {
			t.Errorf("chapter %d: error = %v", tt.chapter, err)
			continue
		}
		if !tt.wantErr && (pos != tt.wantPos || c.Index != pos-1) {
			t.Errorf("chapter %d: got position %d (index %d), want %d", tt.chapter, pos, c.Index, tt.wantPos)
		}
	}
	previewChapter = 0

	for i := range book.Chapters {
		book.Chapters[i].Selected = false
	}
	if _, _, err := previewTarget(book); !errors.Is(err, pipeline.ErrNoChapters) {
		t.Errorf("no selection error = %v", err)
	}
}

func TestMediaReport(t *testing.T) {
	report := mediaReport(&ffmpeg.MediaInfo{
		Path:       "2024 - book.m4b",
		FormatName: "mov,mp4,m4a",
		Duration:   3725,
		Size:       2_500_000,
		BitRate:    64000,
		Tags:       map[string]string{"title": "The Book", "artist": "Jane"},
		Chapters: []ffmpeg.MediaChapter{
			{Title: "Chapter 1", Start: 0, End: 60},
			{Title: "Chapter 2", Start: 60, End: 3725},
		},
		HasCover: true,
	})

	for _, want := range []string{"2024 - book.m4b", "mov,mp4,m4a", "2.5 MB", "64 kb/s", "yes", "Chapters (2)", "Chapter 2"} {
		if !strings.Contains(report, want) {
			t.Errorf("report is missing %q:\n%s", want, report)
		}
	}
	if strings.Index(report, "artist") > strings.Index(report, "title") {
		t.Errorf("tags are not sorted:\n%s", report)
	}
}

func TestDefaultConfigLoadsBack(t *testing.T) {
	content, err := defaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(content), "# chatterblez configuration") {
		t.Errorf("missing header:\n%s", content)
	}

	path := filepath.Join(t.TempDir(), "chatterblez.yml")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TTS.Engine != config.Default().TTS.Engine || cfg.Format != "m4b" {
		t.Errorf("loaded config = %+v", cfg)
	}
}

func TestEnsureConfigFile(t *testing.T) {
	saved := configFile
	t.Cleanup(func() { configFile = saved })

	configFile = filepath.Join(t.TempDir(), "nested", "chatterblez.yml")
	if err := ensureConfigFile(); err != nil {
		t.Fatalf("ensureConfigFile: %v", err)
	}
	if _, err := os.Stat(configFile); err != nil {
		t.Errorf("config not written: %v", err)
	}

	configFile = filepath.Join(t.TempDir(), "chatterblez.toml")
	if err := ensureConfigFile(); err == nil {
		t.Error("expected an error for a non-YAML config path")
	}
}

func TestBackendsReportMissingEncoderFirst(t *testing.T) {
	built := false
	lookup := func(context.Context, string, string) (ffmpeg.Tools, error) {
		return ffmpeg.Tools{}, &ffmpeg.MissingToolError{Tool: "ffmpeg"}
	}
	build := func(config.Config) (tts.Engine, error) {
		built = true
		return nil, errors.New("engine is not usable")
	}

	_, engine, err := backends(context.Background(), config.Default(), lookup, build)
	var missing *ffmpeg.MissingToolError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingToolError", err)
	}
	if engine != nil || built {
		t.Error("engine was built before the encoder was found")
	}
}

func TestBackendsEngineError(t *testing.T) {
	lookup := func(context.Context, string, string) (ffmpeg.Tools, error) {
		return ffmpeg.Tools{FFmpeg: "/usr/bin/ffmpeg"}, nil
	}
	want := errors.New("engine is not usable")
	build := func(config.Config) (tts.Engine, error) { return nil, want }

	tools, _, err := backends(context.Background(), config.Default(), lookup, build)
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if tools.FFmpeg != "/usr/bin/ffmpeg" {
		t.Errorf("tools = %+v", tools)
	}
}
