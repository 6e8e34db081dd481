// Package pipeline assembles an audiobook: it renders each selected
// chapter through the speech engine, then concatenates and muxes the
// chapter files with ffmpeg while reporting progress as events.
package pipeline
