// Package ffmpeg drives the ffmpeg and ffprobe binaries: probing
// durations, streaming progress from a running encode, concatenating
// chapter files and muxing the final audiobook container.
package ffmpeg
