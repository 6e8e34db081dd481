package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cpttripzz/Chatterblez/internal/ffmpeg"
	"github.com/cpttripzz/Chatterblez/internal/tts"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that ffmpeg and the speech engine are installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		tools, toolErr := ffmpeg.LookupTools(cmd.Context(), cfg.FFmpeg.FFmpeg, cfg.FFmpeg.FFprobe)
		fmt.Print(tools.Report())

		ok := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render
		bad := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render

		engine, engineErr := newEngine(cfg)
		if engineErr == nil {
			info := engine.Info()
			_ = engine.Close()
			fmt.Print(ok(fmt.Sprintf("  ✓ %s engine: ", info.Name)))
			fmt.Printf("ready (voice %s)\n", tts.Voice{Name: cfg.TTS.Voice, Speed: cfg.TTS.Speed})
		} else {
			fmt.Print(bad(fmt.Sprintf("  ✗ %s engine: ", cfg.TTS.Engine)))
			fmt.Println(engineErr)
		}

		if toolErr != nil {
			return toolErr
		}
		return engineErr
	},
}
