package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, so tts.engine is
// read from CHATTERBLEZ_TTS_ENGINE.
const EnvPrefix = "chatterblez"

// SetDefaults registers every key with v. Keys without a default are not
// looked up in the environment.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("format", d.Format)
	v.SetDefault("bitrate", d.Bitrate)
	v.SetDefault("language", d.Language)
	v.SetDefault("tui", d.TUI)

	v.SetDefault("tts.engine", d.TTS.Engine)
	v.SetDefault("tts.voice", d.TTS.Voice)
	v.SetDefault("tts.speed", d.TTS.Speed)
	v.SetDefault("tts.timeout", d.TTS.Timeout)
	v.SetDefault("tts.piper.binary", d.TTS.Piper.Binary)
	v.SetDefault("tts.piper.model", d.TTS.Piper.Model)
	v.SetDefault("tts.piper.config", d.TTS.Piper.Config)
	v.SetDefault("tts.pocket.binary", d.TTS.Pocket.Binary)
	v.SetDefault("tts.pocket.config", d.TTS.Pocket.Config)
	v.SetDefault("tts.command.line", d.TTS.Command.Line)
	v.SetDefault("tts.command.sample_rate", d.TTS.Command.SampleRate)

	v.SetDefault("ffmpeg.ffmpeg", d.FFmpeg.FFmpeg)
	v.SetDefault("ffmpeg.ffprobe", d.FFmpeg.FFprobe)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_mb", d.Cache.MemoryMB)
	v.SetDefault("cache.disk_mb", d.Cache.DiskMB)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("pdf.pages_per_chapter", d.PDF.PagesPerChapter)
	v.SetDefault("replacements", d.Replace)
}

// BindEnv makes v read CHATTERBLEZ_* variables for every registered key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v on top of the defaults, expands paths and validates the
// result.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode configuration: %w", err)
	}
	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
