package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Swapped in tests.
var (
	lookPath       = exec.LookPath
	commandContext = exec.CommandContext
)

// ToolStatus is the result of looking for one external binary.
type ToolStatus struct {
	Name         string
	Required     bool
	Installed    bool
	Version      string
	Path         string
	Instructions string
}

// Tools holds resolved binary paths. FFprobe is empty when it is missing.
type Tools struct {
	FFmpeg  string
	FFprobe string

	Statuses []ToolStatus
}

// LookupTools resolves ffmpeg and ffprobe. A missing ffmpeg is fatal and
// returned as a MissingToolError before any work starts; a missing ffprobe
// only degrades durations to zero.
func LookupTools(ctx context.Context, ffmpegBin, ffprobeBin string) (Tools, error) {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}

	encoder := checkTool(ctx, ffmpegBin, true)
	prober := checkTool(ctx, ffprobeBin, false)
	tools := Tools{
		FFmpeg:   encoder.Path,
		FFprobe:  prober.Path,
		Statuses: []ToolStatus{encoder, prober},
	}

	if !encoder.Installed {
		log.Error("Missing required dependency", "name", encoder.Name)
		return tools, &MissingToolError{Tool: encoder.Name, Instructions: encoder.Instructions}
	}
	log.Debug("Dependency found", "name", encoder.Name, "version", encoder.Version, "path", encoder.Path)

	if !prober.Installed {
		log.Warn("ffprobe not found, chapter durations will be reported as zero", "instructions", prober.Instructions)
	} else {
		log.Debug("Dependency found", "name", prober.Name, "version", prober.Version, "path", prober.Path)
	}
	return tools, nil
}

func checkTool(ctx context.Context, name string, required bool) ToolStatus {
	status := ToolStatus{Name: name, Required: required}

	path, err := lookPath(name)
	if err != nil {
		status.Instructions = instructions()
		return status
	}
	status.Installed = true
	status.Path = path

	// "ffmpeg version 6.1.1-3ubuntu5 Copyright ..."
	out, err := commandContext(ctx, path, "-version").Output()
	if err == nil {
		first, _, _ := strings.Cut(string(out), "\n")
		if parts := strings.Fields(first); len(parts) >= 3 {
			status.Version = parts[2]
		}
	}
	return status
}

// Report renders the dependency check for the doctor command.
func (t Tools) Report() string {
	var report strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		MarginBottom(1)
	installedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	missingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	optionalStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	report.WriteString(titleStyle.Render("Dependency Check Report"))
	report.WriteString("\n\n")

	for _, status := range t.Statuses {
		switch {
		case status.Installed:
			report.WriteString(installedStyle.Render(fmt.Sprintf("  ✓ %s: ", status.Name)))
			fmt.Fprintf(&report, "%s %s\n", status.Path, status.Version)
		case status.Required:
			report.WriteString(missingStyle.Render(fmt.Sprintf("  ✗ %s: ", status.Name)))
			report.WriteString("Not installed\n")
			fmt.Fprintf(&report, "    %s\n", status.Instructions)
		default:
			report.WriteString(optionalStyle.Render(fmt.Sprintf("  ○ %s: ", status.Name)))
			report.WriteString("Not installed (optional)\n")
			fmt.Fprintf(&report, "    %s\n", status.Instructions)
		}
	}
	return report.String()
}

func instructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install with: brew install ffmpeg"
	case "linux":
		switch detectLinuxDistro() {
		case "debian", "ubuntu":
			return "Install with: sudo apt-get install ffmpeg"
		case "fedora", "rhel":
			return "Install with: sudo dnf install ffmpeg"
		case "arch":
			return "Install with: sudo pacman -S ffmpeg"
		}
		return "Install with your package manager: ffmpeg"
	case "windows":
		return "Download from: https://ffmpeg.org/download.html\n    Extract and add to PATH"
	default:
		return "Install ffmpeg from: https://ffmpeg.org/download.html"
	}
}

func detectLinuxDistro() string {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return "unknown"
	}
	content := strings.ToLower(string(data))
	for _, distro := range []string{"ubuntu", "debian", "fedora", "arch"} {
		if strings.Contains(content, distro) {
			return distro
		}
	}
	if strings.Contains(content, "rhel") || strings.Contains(content, "centos") {
		return "rhel"
	}
	return "unknown"
}
