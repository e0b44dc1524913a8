package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/nholik/goact-stack/internal/health"
)

// RenderText writes a single status line for terminals. colorize forces
// ANSI colors on or off regardless of the terminal detection.
func RenderText(w io.Writer, state health.ViewState, colorize bool) error {
	line := Status(state)

	var c *color.Color
	switch line.Tone {
	case ToneSuccess:
		c = color.New(color.FgGreen)
	case ToneDanger:
		c = color.New(color.FgRed)
	default:
		c = color.New(color.Faint)
	}
	if colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	_, err := fmt.Fprintf(w, "Backend status: %s\n", c.Sprint(line.Text))
	return err
}
