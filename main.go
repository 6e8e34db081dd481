// Package main provides the entry point for the chatterblez CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cpttripzz/Chatterblez/internal/config"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile  string
	debug       bool
	noTUI       bool
	noCache     bool
	selection   string
	selectAll   bool
	maxChapters int
	maxUnits    int
	promptPath  string
	year        string

	rootCmd = &cobra.Command{
		Use:     "chatterblez BOOK",
		Short:   "Turn e-books into chaptered audiobooks",
		Example: paragraph("chatterblez book.epub\nchatterblez --chapters 1-3 --format mp3 -o out book.epub\nchatterblez --engine pocket --prompt me.wav notes.md"),
		Long: paragraph(
			fmt.Sprintf("\nRead an EPUB, PDF or Markdown book aloud with a local speech engine and %s.", keyword("assemble an M4B audiobook")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"epub", "pdf", "md", "markdown"}, cobra.ShellCompDirectiveFilterFileExt
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
			if cmd.Flags().Changed("config") {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("unable to read config file: %w", err)
				}
			}
			return nil
		},
		RunE: execute,
	}
)

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	d := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", configFile, "config file")
	pf.BoolVar(&debug, "debug", false, "write debug messages to the log file")
	pf.StringP("engine", "e", d.TTS.Engine, "speech engine (piper, pocket, command, mock)")
	pf.String("voice", d.TTS.Voice, "engine-specific voice or speaker")
	pf.Float64("speed", d.TTS.Speed, "speaking rate, 1.0 is normal")
	pf.String("language", d.Language, "language of the book text")
	pf.BoolVar(&noCache, "no-cache", false, "do not reuse or store synthesized units")

	f := rootCmd.Flags()
	f.StringP("output", "o", d.OutputDir, "directory for chapter files and the audiobook")
	f.StringP("format", "f", d.Format, "audiobook format (m4b or mp3)")
	f.String("bitrate", d.Bitrate, "audio bitrate of the audiobook")
	f.StringVarP(&selection, "chapters", "c", "", `chapters to render, e.g. "1,3-5,epilogue"`)
	f.BoolVarP(&selectAll, "all", "a", false, "render every chapter, including front and back matter")
	f.IntVar(&maxChapters, "max-chapters", 0, "stop after this many chapters (0 for all)")
	f.IntVar(&maxUnits, "max-units", 0, "stop each chapter after this many sentences (0 for all)")
	f.StringVar(&promptPath, "prompt", "", "reference recording to condition the voice on")
	f.StringVar(&year, "year", "", "release year written to the audiobook tags")
	f.BoolVar(&noTUI, "no-tui", false, "print plain progress lines instead of the interactive view")
	rootCmd.MarkFlagsMutuallyExclusive("chapters", "all")

	// Config bindings
	v := viper.GetViper()
	_ = v.BindPFlag("tts.engine", pf.Lookup("engine"))
	_ = v.BindPFlag("tts.voice", pf.Lookup("voice"))
	_ = v.BindPFlag("tts.speed", pf.Lookup("speed"))
	_ = v.BindPFlag("language", pf.Lookup("language"))
	_ = v.BindPFlag("output_dir", f.Lookup("output"))
	_ = v.BindPFlag("format", f.Lookup("format"))
	_ = v.BindPFlag("bitrate", f.Lookup("bitrate"))

	rootCmd.AddCommand(configCmd, manCmd, chaptersCmd, previewCmd, inspectCmd, doctorCmd)
}

// loadConfig decodes the merged configuration from flags, environment,
// config file and defaults.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return cfg, err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	return cfg, nil
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "chatterblez")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "chatterblez")}, dirs...)
	}

	if c := os.Getenv("CHATTERBLEZ_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	v := viper.GetViper()
	for _, d := range dirs {
		v.AddConfigPath(d)
	}

	v.SetConfigName("chatterblez")
	v.SetConfigType("yaml")
	config.SetDefaults(v)
	config.BindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := v.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		configFile = used
		return
	}

	configFile = filepath.Join(dirs[0], "chatterblez.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
