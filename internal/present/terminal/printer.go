package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rodaine/table"

	"github.com/transit-board/pkg/transit/models"
)

const clearScreen = "\033[H\033[2J"

var sectionTitles = map[models.Source]string{
	models.SourceCTATrain: "🚇 CTA Departures",
	models.SourceMetra:    "🚆 Metra",
	models.SourceCTABus:   "🚌 CTA Bus",
}

var noDataNames = map[models.Source]string{
	models.SourceCTATrain: "CTA",
	models.SourceMetra:    "Metra",
	models.SourceCTABus:   "bus",
}

var metraLines = map[string]string{
	"ME":   "Electric",
	"BNSF": "BNSF",
	"UP-N": "Union Pacific North",
	"RI":   "Rock Island",
}

// displayOrder matches the printed dashboard: trains, Metra, then buses
var displayOrder = []models.Source{models.SourceCTATrain, models.SourceMetra, models.SourceCTABus}

// Printer writes a snapshot as plain text sections
type Printer struct {
	w          io.Writer
	sources    []models.Source
	metraRoute string
	clear      bool
}

func NewPrinter(w io.Writer, sources []models.Source) *Printer {
	return &Printer{w: w, sources: sources}
}

// NewDashboard returns a printer that clears the screen before each board
func NewDashboard(w io.Writer, sources []models.Source) *Printer {
	return &Printer{w: w, sources: sources, clear: true}
}

// WithMetraRoute names the Metra section after route even when it is empty
func (p *Printer) WithMetraRoute(route string) *Printer {
	p.metraRoute = route
	return p
}

// Present prints snap. It satisfies refresh.PresentFunc.
func (p *Printer) Present(_ context.Context, snap models.Snapshot) error {
	p.Print(snap)
	return nil
}

func (p *Printer) Print(snap models.Snapshot) {
	if p.clear {
		fmt.Fprint(p.w, clearScreen)
		fmt.Fprintf(p.w, "Updated %s\n", snap.GeneratedAt.Format("3:04:05 PM"))
	}

	for _, src := range displayOrder {
		if !p.enabled(src) {
			continue
		}
		p.printSection(src, snap.Board)
	}
}

func (p *Printer) enabled(src models.Source) bool {
	for _, s := range p.sources {
		if s == src {
			return true
		}
	}
	return false
}

func (p *Printer) printSection(src models.Source, b models.Board) {
	lines := b.ForSource(src)
	title := sectionTitles[src]
	if src == models.SourceMetra {
		title = metraTitle(p.metraRoute, lines)
	}
	fmt.Fprintf(p.w, "\n%s\n\n", title)

	if len(lines) == 0 {
		fmt.Fprintf(p.w, "  No %s data available\n\n", noDataNames[src])
		return
	}

	names := models.Board{Lines: lines}.LineNames()
	for _, name := range names {
		switch src {
		case models.SourceCTATrain:
			fmt.Fprintf(p.w, "%s Line:\n", name)
		case models.SourceCTABus:
			fmt.Fprintf(p.w, "Route %s:\n", name)
		}

		tbl := table.New("", "", "").WithPadding(2)
		for _, a := range lines[name] {
			if src == models.SourceMetra {
				tbl.AddRow(" ", a.Destination, a.Countdown())
				continue
			}
			tbl.AddRow(" ", fmt.Sprintf("%s (%s)", a.Destination, a.Station), a.Countdown())
		}
		printRows(p.w, tbl)
		fmt.Fprintln(p.w)
	}
}

// printRows renders tbl without its header line
func printRows(w io.Writer, tbl table.Table) {
	var sb strings.Builder
	tbl.WithWriter(&sb).Print()
	out := sb.String()
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[i+1:]
	}
	fmt.Fprint(w, out)
}

func metraTitle(route string, lines map[string][]models.Arrival) string {
	if route == "" && len(lines) == 1 {
		for r := range lines {
			route = r
		}
	}
	if route == "" {
		return sectionTitles[models.SourceMetra]
	}
	if name, ok := metraLines[route]; ok {
		route = name
	}
	return sectionTitles[models.SourceMetra] + " " + route
}
