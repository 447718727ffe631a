package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/mitchellh/go-wordwrap"
)

const (
	boxWidth  = 80
	boxHeader = "Lade could not get secrets from one loader:"
	boxHint   = "Hint: check whether the loader is connected to the correct vault."
)

// writeErrorBox frames a hydration error for a shell hook, whose output
// scrolls by quickly.
func writeErrorBox(w io.Writer, err error, delay time.Duration) {
	inner := boxWidth - 4

	line := func(text string) {
		pad := inner - runewidth.StringWidth(text)
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(w, "│ %s %s│\n", text, strings.Repeat(" ", pad))
	}

	fmt.Fprintf(w, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
	line(boxHeader)
	wrapped := wordwrap.WrapString(strings.TrimSpace(err.Error()), uint(inner-2))
	for _, l := range strings.Split(wrapped, "\n") {
		line("> " + l)
	}
	line(boxHint)
	line(fmt.Sprintf("Waiting %s before continuing...", waitText(delay)))
	fmt.Fprintf(w, "└%s┘\n", strings.Repeat("─", boxWidth-2))
}

func waitText(delay time.Duration) string {
	seconds := int(delay.Round(time.Second) / time.Second)
	if seconds == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", seconds)
}

// hydrationFailed prints err in a box, waits delay so the user can read it,
// and exits with 1.
func hydrationFailed(ctx context.Context, w io.Writer, err error, delay time.Duration) error {
	writeErrorBox(w, err, delay)
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	return ExitError{Code: 1}
}
