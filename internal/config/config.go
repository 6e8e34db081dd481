// Package config holds the settings of a conversion run as read from the
// config file, the environment and command line flags.
package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/cpttripzz/Chatterblez/internal/cache"
	"github.com/cpttripzz/Chatterblez/internal/ffmpeg"
	"github.com/cpttripzz/Chatterblez/internal/textnorm"
	"github.com/cpttripzz/Chatterblez/internal/tts/engines"
)

// Config contains every option of a conversion.
type Config struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Format    string `yaml:"format" mapstructure:"format"`
	Bitrate   string `yaml:"bitrate" mapstructure:"bitrate"`
	Language  string `yaml:"language" mapstructure:"language"`
	TUI       bool   `yaml:"tui" mapstructure:"tui"`
	TTS       TTS    `yaml:"tts" mapstructure:"tts"`
	FFmpeg    FFmpeg `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	Cache     Cache  `yaml:"cache" mapstructure:"cache"`
	PDF       PDF    `yaml:"pdf" mapstructure:"pdf"`
	Replace   []Rule `yaml:"replacements" mapstructure:"replacements"`
}

// TTS selects and configures the speech engine.
type TTS struct {
	Engine  string        `yaml:"engine" mapstructure:"engine"`
	Voice   string        `yaml:"voice" mapstructure:"voice"`
	Speed   float64       `yaml:"speed" mapstructure:"speed"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	Piper   Piper   `yaml:"piper" mapstructure:"piper"`
	Pocket  Pocket  `yaml:"pocket" mapstructure:"pocket"`
	Command Command `yaml:"command" mapstructure:"command"`
}

// Piper contains Piper engine settings.
type Piper struct {
	Binary string `yaml:"binary" mapstructure:"binary"`
	Model  string `yaml:"model" mapstructure:"model"`
	Config string `yaml:"config" mapstructure:"config"`
}

// Pocket contains pocket-tts settings.
type Pocket struct {
	Binary string `yaml:"binary" mapstructure:"binary"`
	Config string `yaml:"config" mapstructure:"config"`
}

// Command configures the generic command engine.
type Command struct {
	Line       string `yaml:"line" mapstructure:"line"`
	SampleRate int    `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// FFmpeg names the encoder and prober binaries.
type FFmpeg struct {
	FFmpeg  string `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	FFprobe string `yaml:"ffprobe" mapstructure:"ffprobe"`
}

// Cache configures the synthesized unit cache.
type Cache struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir      string        `yaml:"dir" mapstructure:"dir"`
	MemoryMB int           `yaml:"memory_mb" mapstructure:"memory_mb"`
	DiskMB   int           `yaml:"disk_mb" mapstructure:"disk_mb"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// PDF controls how pages are grouped.
type PDF struct {
	PagesPerChapter int `yaml:"pages_per_chapter" mapstructure:"pages_per_chapter"`
}

// Rule replaces an abbreviation with its spoken form.
type Rule struct {
	From string `yaml:"from" mapstructure:"from"`
	To   string `yaml:"to" mapstructure:"to"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	rules := make([]Rule, 0, len(textnorm.DefaultHonorifics))
	for _, r := range textnorm.DefaultHonorifics {
		rules = append(rules, Rule{From: r.From, To: r.To})
	}
	return Config{
		OutputDir: ".",
		Format:    string(ffmpeg.FormatM4B),
		Bitrate:   ffmpeg.DefaultBitrate,
		Language:  "en",
		TUI:       true,
		TTS: TTS{
			Engine:  "piper",
			Speed:   1.0,
			Timeout: 5 * time.Minute,
			Piper:   Piper{Binary: "piper"},
			Pocket:  Pocket{Binary: "pocket-tts"},
			Command: Command{SampleRate: 24000},
		},
		FFmpeg: FFmpeg{FFmpeg: "ffmpeg", FFprobe: "ffprobe"},
		Cache: Cache{
			Enabled:  true,
			MemoryMB: 64,
			DiskMB:   2048,
			TTL:      30 * 24 * time.Hour,
		},
		PDF:     PDF{PagesPerChapter: 10},
		Replace: rules,
	}
}

// Validate checks ranges and names, normalizing case where it is
// forgiving.
func (c *Config) Validate() error {
	format, err := ffmpeg.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	c.Format = string(format)

	if _, err := language.Parse(c.Language); err != nil {
		return fmt.Errorf("invalid language %q: %w", c.Language, err)
	}

	c.TTS.Engine = strings.ToLower(c.TTS.Engine)
	if !contains(engines.Names, c.TTS.Engine) {
		return fmt.Errorf("invalid TTS engine '%s': must be one of %v", c.TTS.Engine, engines.Names)
	}
	if c.TTS.Speed < 0.25 || c.TTS.Speed > 4.0 {
		return fmt.Errorf("speed must be between 0.25 and 4.0, got %.2f", c.TTS.Speed)
	}
	if c.TTS.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.TTS.Timeout)
	}

	if c.TTS.Engine == "command" && strings.TrimSpace(c.TTS.Command.Line) == "" {
		return fmt.Errorf("command config: line cannot be empty")
	}

	if c.Cache.MemoryMB < 0 || c.Cache.DiskMB < 0 {
		return fmt.Errorf("cache sizes cannot be negative")
	}
	if c.PDF.PagesPerChapter < 1 {
		return fmt.Errorf("pages_per_chapter must be at least 1, got %d", c.PDF.PagesPerChapter)
	}
	for _, r := range c.Replace {
		if r.From == "" {
			return fmt.Errorf("replacement for %q has an empty pattern", r.To)
		}
	}
	return nil
}

// ExpandPaths resolves a leading ~ in every path setting.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{
		&c.OutputDir,
		&c.TTS.Piper.Binary, &c.TTS.Piper.Model, &c.TTS.Piper.Config,
		&c.TTS.Pocket.Binary, &c.TTS.Pocket.Config,
		&c.FFmpeg.FFmpeg, &c.FFmpeg.FFprobe,
		&c.Cache.Dir,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// LanguageTag returns the parsed language, English when it is invalid.
func (c Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.English
	}
	return tag
}

// OutputFormat returns the parsed container format.
func (c Config) OutputFormat() ffmpeg.Format {
	f, err := ffmpeg.ParseFormat(c.Format)
	if err != nil {
		return ffmpeg.FormatM4B
	}
	return f
}

// EngineConfig converts the TTS settings for engines.New.
func (c Config) EngineConfig() engines.Config {
	return engines.Config{
		Engine: c.TTS.Engine,
		Piper: engines.PiperConfig{
			Binary:     c.TTS.Piper.Binary,
			ModelPath:  c.TTS.Piper.Model,
			ConfigPath: c.TTS.Piper.Config,
			Speaker:    c.TTS.Voice,
			Timeout:    c.TTS.Timeout,
		},
		Pocket: engines.PocketConfig{
			Binary:  c.TTS.Pocket.Binary,
			Voice:   c.TTS.Voice,
			Config:  c.TTS.Pocket.Config,
			Timeout: c.TTS.Timeout,
		},
		Command: engines.CommandConfig{
			Command:    c.TTS.Command.Line,
			SampleRate: c.TTS.Command.SampleRate,
			Timeout:    c.TTS.Timeout,
		},
	}
}

// CacheConfig converts the cache settings. dir is used when none is
// configured.
func (c Config) CacheConfig(dir string) *cache.CacheConfig {
	cc := cache.DefaultCacheConfig()
	cc.MemoryCapacity = int64(c.Cache.MemoryMB) << 20
	cc.DiskCapacity = int64(c.Cache.DiskMB) << 20
	cc.TTL = c.Cache.TTL
	cc.DiskPath = c.Cache.Dir
	if cc.DiskPath == "" {
		cc.DiskPath = dir
	}
	return cc
}

// Normalizer builds the text normalizer for the configured language and
// replacements.
func (c Config) Normalizer() *textnorm.Normalizer {
	repls := make([]textnorm.Replacement, 0, len(c.Replace))
	for _, r := range c.Replace {
		repls = append(repls, textnorm.Replacement{From: r.From, To: r.To})
	}
	return textnorm.New(c.LanguageTag(), repls)
}

// YAML renders c as a config file.
func (c Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
