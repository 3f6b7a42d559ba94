package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

const (
	colorBrand   = colorPink
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	brandStyle     = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)
	headerStyle    = lipgloss.NewStyle().Foreground(colorText)
	headerDimStyle = lipgloss.NewStyle().Foreground(colorOverlay1)
	titleStyle     = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	cursorStyle    = lipgloss.NewStyle().Foreground(colorFocus).Bold(true)
	metaStyle      = lipgloss.NewStyle().Foreground(colorSubtext0)
	upStyle        = lipgloss.NewStyle().Foreground(colorPeach)
	downStyle      = lipgloss.NewStyle().Foreground(colorBlue)
	savedStyle     = lipgloss.NewStyle().Foreground(colorYellow)
	iconStyle      = lipgloss.NewStyle().Foreground(colorMauve).PaddingRight(1)
	linkStyle      = lipgloss.NewStyle().Foreground(colorInfo).Underline(true)
	statusStyle    = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	warnStyle      = lipgloss.NewStyle().Foreground(colorWarning)
	footerStyle    = lipgloss.NewStyle().Foreground(colorOverlay1)
	panelStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Padding(0, 1)
)
