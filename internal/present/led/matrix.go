package led

import (
	"context"
	"time"

	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/pkg/transit/models"
)

// Matrix is the contract a panel driver implements. Pixels are staged with
// SetPixel and shown together on Swap.
type Matrix interface {
	SetPixel(x, y int, c RGB)
	Swap() error
	Clear() error
}

// Options carries the panel tuning a hardware driver needs
type Options struct {
	Rows            int
	Cols            int
	Brightness      int
	GPIOSlowdown    int
	HardwareMapping string
}

func OptionsFromConfig(cfg config.LEDConfig) Options {
	return Options{
		Rows:            cfg.Rows,
		Cols:            cfg.Cols,
		Brightness:      cfg.Brightness,
		GPIOSlowdown:    cfg.GPIOSlowdown,
		HardwareMapping: cfg.HardwareMapping,
	}
}

// Render stages every pixel of f, scaled by brightness (1-100), and swaps
func Render(f Frame, m Matrix, brightness int) error {
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			m.SetPixel(x, y, scale(f[y][x].RGB(), brightness))
		}
	}
	return m.Swap()
}

func scale(c RGB, brightness int) RGB {
	if brightness >= 100 || brightness <= 0 {
		return c
	}
	s := func(v uint8) uint8 { return uint8(int(v) * brightness / 100) }
	return RGB{R: s(c.R), G: s(c.G), B: s(c.B)}
}

// Presenter pushes each snapshot to a matrix
type Presenter struct {
	matrix     Matrix
	rows       []config.LEDRow
	location   *time.Location
	brightness int
}

func NewPresenter(m Matrix, cfg config.LEDConfig, loc *time.Location) *Presenter {
	return &Presenter{
		matrix:     m,
		rows:       cfg.Lines,
		location:   loc,
		brightness: cfg.Brightness,
	}
}

// Present builds and shows a frame. It satisfies refresh.PresentFunc.
func (p *Presenter) Present(_ context.Context, snap models.Snapshot) error {
	return Render(BuildFrame(snap, p.rows, p.location), p.matrix, p.brightness)
}

// Close blanks the panel
func (p *Presenter) Close() error {
	return p.matrix.Clear()
}
