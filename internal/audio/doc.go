// Package audio holds synthesized waveforms, reads and writes chapter WAV
// files, and plays previews through oto.
package audio
