package led

import (
	"bufio"
	"io"
	"sync"
)

// ConsoleMatrix draws the panel as text, for running without hardware.
// Dim pixels print as ·, amber as █ and green as ▓.
type ConsoleMatrix struct {
	mu     sync.Mutex
	w      io.Writer
	opts   Options
	staged [Size][Size]RGB
	clear  bool
}

func NewConsoleMatrix(w io.Writer, opts Options) *ConsoleMatrix {
	return &ConsoleMatrix{w: w, opts: opts, clear: true}
}

func (m *ConsoleMatrix) SetPixel(x, y int, c RGB) {
	if x < 0 || x >= Size || y < 0 || y >= Size {
		return
	}
	m.mu.Lock()
	m.staged[y][x] = c
	m.mu.Unlock()
}

func (m *ConsoleMatrix) Swap() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draw()
}

// Clear blanks the panel immediately, like a hardware clear.
func (m *ConsoleMatrix) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staged = [Size][Size]RGB{}
	return m.draw()
}

func (m *ConsoleMatrix) draw() error {
	bw := bufio.NewWriter(m.w)
	if m.clear {
		bw.WriteString("\033[H\033[2J")
	}
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			bw.WriteString(glyphFor(m.staged[y][x]))
		}
		bw.WriteByte('\n')
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

// glyphFor classifies a scaled palette colour. Grey is the unlit pixel,
// anything with red is amber and pure green is green.
func glyphFor(c RGB) string {
	switch {
	case c.R == c.G && c.G == c.B:
		return "·"
	case c.R > 0:
		return "█"
	default:
		return "▓"
	}
}
