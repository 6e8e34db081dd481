package ui

// Config contains TUI-specific configuration.
type Config struct {
	Title  string
	Author string

	// Width caps the progress bar.
	Width int `env:"CHATTERBLEZ_UI_WIDTH" envDefault:"60"`
	// Rows is how many chapters are listed at once.
	Rows int `env:"CHATTERBLEZ_UI_ROWS" envDefault:"10"`

	// For debugging the UI
	AltScreen bool `env:"CHATTERBLEZ_ALT_SCREEN" envDefault:"false"`
	NoColor   bool `env:"NO_COLOR"`
}
