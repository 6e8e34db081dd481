// Package engines contains implementations of different TTS engines.
// Piper, pocket-tts and arbitrary commands run as subprocesses; the mock
// engine generates tones in process. Each engine implements tts.Engine.
package engines
