package web

import (
	"time"

	"github.com/transit-board/internal/present/led"
	"github.com/transit-board/pkg/transit/models"
)

var sectionTitles = map[models.Source]string{
	models.SourceCTATrain: "CTA Trains",
	models.SourceMetra:    "Metra",
	models.SourceCTABus:   "CTA Bus",
}

var noDataNames = map[models.Source]string{
	models.SourceCTATrain: "CTA",
	models.SourceMetra:    "Metra",
	models.SourceCTABus:   "bus",
}

var displayOrder = []models.Source{models.SourceCTATrain, models.SourceMetra, models.SourceCTABus}

type arrivalView struct {
	Destination string
	Station     string
	Countdown   string
	Scheduled   bool
	Delayed     bool
}

type lineView struct {
	Name     string
	CSSClass string
	Arrivals []arrivalView
}

type sectionView struct {
	Title  string
	NoData string
	Lines  []lineView
}

type boardView struct {
	RefreshSeconds int
	Updated        string
	Temperature    *int
	Sections       []sectionView
}

type ledView struct {
	RefreshSeconds int
	Rows           [][]led.Color
}

func newBoardView(snap models.Snapshot, sources []models.Source, metraRoute string, loc *time.Location, refresh time.Duration) boardView {
	if loc == nil {
		loc = time.UTC
	}
	view := boardView{
		RefreshSeconds: int(refresh.Seconds()),
		Updated:        snap.GeneratedAt.In(loc).Format("3:04 PM"),
		Temperature:    snap.Temperature,
	}

	for _, src := range displayOrder {
		if !contains(sources, src) {
			continue
		}
		section := sectionView{Title: sectionTitles[src]}
		if src == models.SourceMetra && metraRoute != "" {
			section.Title += " " + metraRoute
		}

		lines := snap.Board.ForSource(src)
		if len(lines) == 0 {
			section.NoData = "No " + noDataNames[src] + " data available"
		}
		for _, name := range (models.Board{Lines: lines}).LineNames() {
			lv := lineView{Name: name, CSSClass: cssClass(src, name)}
			for _, a := range lines[name] {
				lv.Arrivals = append(lv.Arrivals, arrivalView{
					Destination: a.Destination,
					Station:     a.Station,
					Countdown:   a.Countdown(),
					Scheduled:   !a.IsLive,
					Delayed:     a.IsDelayed,
				})
			}
			section.Lines = append(section.Lines, lv)
		}
		view.Sections = append(view.Sections, section)
	}
	return view
}

// cssClass picks the line colour class; CTA train lines carry their own
func cssClass(src models.Source, line string) string {
	switch src {
	case models.SourceCTATrain:
		return "line-" + line
	case models.SourceMetra:
		return "line-metra"
	default:
		return "line-bus"
	}
}

func contains(sources []models.Source, src models.Source) bool {
	for _, s := range sources {
		if s == src {
			return true
		}
	}
	return false
}
