// Package styles provides the terminal styling used by envrefresh output.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Neutral200 = lipgloss.Color("#e5e5e5")
	Neutral500 = lipgloss.Color("#737373")
	Neutral700 = lipgloss.Color("#404040")
	Neutral800 = lipgloss.Color("#262626")

	Teal    = lipgloss.Color("#2dd4bf")
	Sky     = lipgloss.Color("#38bdf8")
	Emerald = lipgloss.Color("#34d399")
	Amber   = lipgloss.Color("#fbbf24")
	Rose    = lipgloss.Color("#fb7185")

	// Semantic colors
	ColorPrimary = Teal
	ColorSuccess = Emerald
	ColorWarning = Amber
	ColorError   = Rose
	ColorInfo    = Sky

	// Text colors
	ColorText      = Neutral200
	ColorTextMuted = Neutral500

	// Background colors
	ColorBg      = lipgloss.Color("#000000")
	ColorBgMuted = Neutral800

	// Border colors
	ColorBorder = Neutral700
)
