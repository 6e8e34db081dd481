package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// BitDepth is the sample width used for every working file.
const BitDepth = 16

// Common audio errors
var (
	ErrEmptyAudio     = errors.New("audio data is empty")
	ErrFormatMismatch = errors.New("waveform formats differ")
	ErrInvalidWAV     = errors.New("not a valid WAV stream")
)

// Waveform is mono or interleaved PCM audio at a fixed sample rate.
type Waveform struct {
	buf *goaudio.IntBuffer
}

// NewWaveform wraps samples at sampleRate with the given channel count.
func NewWaveform(samples []int, sampleRate, channels int) *Waveform {
	return &Waveform{buf: &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: BitDepth,
	}}
}

// FromPCM16 decodes raw signed 16-bit little-endian PCM.
func FromPCM16(raw []byte, sampleRate, channels int) (*Waveform, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyAudio
	}
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	samples := make([]int, len(raw)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}
	return NewWaveform(samples, sampleRate, channels), nil
}

// DecodeWAV reads a complete WAV stream from memory.
func DecodeWAV(data []byte) (*Waveform, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if len(buf.Data) == 0 {
		return nil, ErrEmptyAudio
	}
	if dec.BitDepth != BitDepth {
		buf.Data = rescale(buf.Data, int(dec.BitDepth))
	}
	buf.SourceBitDepth = BitDepth
	return &Waveform{buf: buf}, nil
}

// ReadWAVFile reads a WAV file from disk.
func ReadWAVFile(path string) (*Waveform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeWAV(data)
}

// SampleRate returns the sample rate in Hz.
func (w *Waveform) SampleRate() int { return w.buf.Format.SampleRate }

// Channels returns the channel count.
func (w *Waveform) Channels() int { return w.buf.Format.NumChannels }

// Len returns the number of interleaved samples.
func (w *Waveform) Len() int { return len(w.buf.Data) }

// Duration returns the playback length.
func (w *Waveform) Duration() time.Duration {
	frames := w.Len() / max(w.Channels(), 1)
	if w.SampleRate() == 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(w.SampleRate())
}

// PCM16 encodes the samples as signed 16-bit little-endian bytes.
func (w *Waveform) PCM16() []byte {
	out := make([]byte, 2*len(w.buf.Data))
	for i, s := range w.buf.Data {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(clamp16(s))))
	}
	return out
}

// Concat joins waveforms in order. All parts must share one format.
func Concat(parts []*Waveform) (*Waveform, error) {
	if len(parts) == 0 {
		return nil, ErrEmptyAudio
	}
	rate, chans := parts[0].SampleRate(), parts[0].Channels()
	total := 0
	for _, p := range parts {
		if p.SampleRate() != rate || p.Channels() != chans {
			return nil, fmt.Errorf("%w: %d Hz/%d ch vs %d Hz/%d ch",
				ErrFormatMismatch, p.SampleRate(), p.Channels(), rate, chans)
		}
		total += p.Len()
	}
	samples := make([]int, 0, total)
	for _, p := range parts {
		samples = append(samples, p.buf.Data...)
	}
	return NewWaveform(samples, rate, chans), nil
}

// WriteWAV persists w as a 16-bit PCM WAV file. The file is written next
// to path and renamed into place so a partial file never looks finished.
func WriteWAV(path string, w *Waveform) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, w.SampleRate(), BitDepth, w.Channels(), 1)
	if err := enc.Write(w.buf); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize wav: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close wav: %w", err)
	}
	return os.Rename(tmp, path)
}

func rescale(samples []int, from int) []int {
	if from <= 0 || from == BitDepth {
		return samples
	}
	out := make([]int, len(samples))
	for i, s := range samples {
		if from > BitDepth {
			out[i] = s >> (from - BitDepth)
		} else {
			out[i] = s << (BitDepth - from)
		}
	}
	return out
}

func clamp16(s int) int {
	switch {
	case s > 32767:
		return 32767
	case s < -32768:
		return -32768
	}
	return s
}
