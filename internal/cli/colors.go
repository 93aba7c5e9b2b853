// Package cli renders run summaries for the terminal.
package cli

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// colorsEnabled caches whether colors should be used
var colorsEnabled *bool

// ColorsEnabled returns true if stdout is a terminal and NO_COLOR is not set.
func ColorsEnabled() bool {
	if colorsEnabled != nil {
		return *colorsEnabled
	}

	enabled := term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
	ForceColors(enabled)
	return enabled
}

// ForceColors enables or disables colors regardless of terminal detection.
func ForceColors(enabled bool) {
	colorsEnabled = &enabled
	color.NoColor = !enabled
}

var (
	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	gray   = color.New(color.FgHiBlack)
)

// Status indicators
const (
	CheckMark = "✓"
	Circle    = "○"
	Cross     = "✗"
	Arrow     = "→"
)

// Tree drawing characters
const (
	TreeBranch     = "├─"
	TreeLastBranch = "└─"
)
