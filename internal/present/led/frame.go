package led

import (
	"fmt"
	"strconv"
	"time"

	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/pkg/transit/models"
)

// Size is the edge length of the panel in pixels
const Size = 32

type Color uint8

const (
	Off Color = iota
	Amber
	Green
)

// RGB is a pixel value sent to a matrix
type RGB struct {
	R, G, B uint8
}

var palette = map[Color]RGB{
	Off:   {40, 40, 40},
	Amber: {255, 157, 0},
	Green: {0, 255, 0},
}

// RGB returns the panel colour. Off pixels are lit dimly so the grid shows.
func (c Color) RGB() RGB {
	return palette[c]
}

// Hex returns the colour as a CSS hex triplet
func (c Color) Hex() string {
	rgb := c.RGB()
	return fmt.Sprintf("#%02x%02x%02x", rgb.R, rgb.G, rgb.B)
}

// Frame is one full image for the panel, indexed [y][x]
type Frame [Size][Size]Color

// Set colours one pixel. Points outside the panel are ignored.
func (f *Frame) Set(x, y int, c Color) {
	if x < 0 || x >= Size || y < 0 || y >= Size {
		return
	}
	f[y][x] = c
}

func (f *Frame) At(x, y int) Color {
	if x < 0 || x >= Size || y < 0 || y >= Size {
		return Off
	}
	return f[y][x]
}

// DrawText draws text with its top-left corner at (x, y) and returns the x
// position after the last glyph.
func (f *Frame) DrawText(text string, x, y int, c Color) int {
	for _, r := range text {
		glyph, ok := font3x5[r]
		if !ok {
			continue
		}
		for row, bits := range glyph {
			for col, bit := range bits {
				if bit == '1' {
					f.Set(x+col, y+row, c)
				}
			}
		}
		x += len(glyph[0]) + 1
	}
	return x
}

// DrawRight draws text so its last pixel column lands on the panel's right
// edge.
func (f *Frame) DrawRight(text string, y int, c Color) int {
	return f.DrawText(text, Size+1-TextWidth(text), y, c)
}

// HLine draws a full-width divider
func (f *Frame) HLine(y int, c Color) {
	for x := 0; x < Size; x++ {
		f.Set(x, y, c)
	}
}

// Rows returns the frame as rows of colours, top first
func (f *Frame) Rows() [][]Color {
	rows := make([][]Color, Size)
	for y := range f {
		rows[y] = f[y][:]
	}
	return rows
}

var weekdays = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

const (
	headerY      = 1
	weatherY     = 8
	firstDivider = 14
	firstRowY    = 17
	rowSpacing   = 10
	labelX       = 1
	nextX        = 12
	separatorX   = 20
	followingX   = 24
)

// BuildFrame lays out the board: date and weather header, then one row per
// configured line with its next two countdowns.
func BuildFrame(snap models.Snapshot, rows []config.LEDRow, loc *time.Location) Frame {
	var f Frame
	if loc == nil {
		loc = time.UTC
	}
	now := snap.GeneratedAt.In(loc)

	f.DrawText(weekdays[now.Weekday()], 1, headerY, Amber)
	f.DrawRight(fmt.Sprintf("%d/%d", int(now.Month()), now.Day()), headerY, Amber)

	if snap.Temperature != nil {
		f.DrawText(fmt.Sprintf("%dF", *snap.Temperature), 1, weatherY, Amber)
	}
	hour := now.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	f.DrawRight(fmt.Sprintf("%d:%02d", hour, now.Minute()), weatherY, Amber)

	for i, row := range rows {
		if i >= 2 {
			break
		}
		y := firstRowY + i*rowSpacing
		f.HLine(firstDivider+i*rowSpacing, Amber)
		drawRow(&f, row, snap.Board.Line(row.Line), y)
	}
	return f
}

func drawRow(f *Frame, row config.LEDRow, arrivals []models.Arrival, y int) {
	f.DrawText(row.Label, labelX, y, Amber)

	text, _ := countdownText(arrivals, 0)
	color := Amber
	if text != "--" {
		color = Green
	}
	f.DrawText(text, nextX, y, color)

	f.Set(separatorX, y+2, Amber)

	text, color = countdownText(arrivals, 1)
	f.DrawText(text, followingX, y, color)
}

// countdownText formats the arrival at index. Anything under two minutes
// is green.
func countdownText(arrivals []models.Arrival, index int) (string, Color) {
	if index >= len(arrivals) {
		return "--", Amber
	}
	minutes := arrivals[index].MinutesAway
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 2 {
		return strconv.Itoa(minutes), Green
	}
	return strconv.Itoa(minutes), Amber
}
