package pipeline

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/cpttripzz/Chatterblez/internal/audio"
	"github.com/cpttripzz/Chatterblez/internal/cache"
	"github.com/cpttripzz/Chatterblez/internal/tts"
)

// Synthesizer turns units into waveforms one at a time, in order. A unit
// is credited to progress only after its waveform is in hand.
type Synthesizer struct {
	Engine     tts.Engine
	EngineName string
	Voice      tts.Voice
	Prompt     string
	// Cache is optional.
	Cache  *cache.CacheManager
	Logger *log.Logger
}

// Synthesize returns the waveform for one unit. A nil waveform with a nil
// error means the engine produced nothing for this unit.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*audio.Waveform, error) {
	var key string
	if s.Cache != nil {
		key = cache.GenerateCacheKey(s.EngineName, text, s.Voice.Name, s.Voice.Speed, s.Prompt)
		if w, ok := s.Cache.GetWaveform(key); ok {
			s.Logger.Debug("Cache hit", "key", key)
			return w, nil
		}
	}

	w, err := s.Engine.Synthesize(ctx, text, s.Voice)
	if errors.Is(err, tts.ErrNoAudio) {
		s.Logger.Warn("Engine produced no audio", "text", preview(text, 40))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if w == nil || w.Len() == 0 {
		return nil, nil
	}

	if s.Cache != nil {
		if err := s.Cache.PutWaveform(key, w); err != nil {
			s.Logger.Debug("Could not cache unit", "err", err)
		}
	}
	return w, nil
}
