package led

import (
	"fmt"
	"io"
	"strings"
)

// TermStrip renders frames as a single line of coloured dots, redrawn in
// place.
type TermStrip struct {
	w io.Writer
}

func NewTermStrip(w io.Writer) *TermStrip {
	return &TermStrip{w: w}
}

func (s *TermStrip) Show(f Frame) error {
	var sb strings.Builder
	sb.WriteString("\r\033[K")
	sb.WriteString(colorize("leds", colorBlue))
	sb.WriteString(" ")
	for _, c := range f {
		if c == Off {
			sb.WriteString("· ")
			continue
		}
		sb.WriteString(rgb("●", c))
		sb.WriteString(" ")
	}
	sb.WriteString("\r\n")
	_, err := io.WriteString(s.w, sb.String())
	return err
}

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
)

func colorize(text string, color int) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, text)
}

func rgb(text string, c Color) string {
	return fmt.Sprintf("\033[38;2;%d;%d;%dm%s\033[0m", c.R, c.G, c.B, text)
}
