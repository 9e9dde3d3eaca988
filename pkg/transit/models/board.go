package models

import (
	"fmt"
	"sort"
	"time"
)

// Arrival is the provider-independent shape every surface renders.
type Arrival struct {
	Source      Source `json:"source"`
	Line        string `json:"line"`
	Destination string `json:"destination"`
	Station     string `json:"station,omitempty"`
	Run         string `json:"run,omitempty"`
	MinutesAway int    `json:"minutes_away"`
	IsLive      bool   `json:"is_live"`
	IsDelayed   bool   `json:"is_delayed,omitempty"`
}

// Countdown renders MinutesAway for riders: "Due" under a minute, otherwise
// "N min".
func (a Arrival) Countdown() string {
	if a.MinutesAway < 1 {
		return "Due"
	}
	return fmt.Sprintf("%d min", a.MinutesAway)
}

// Board maps a line to its upcoming arrivals, soonest first.
type Board struct {
	Lines map[string][]Arrival `json:"lines"`
}

// LineNames returns the board's lines in lexical order.
func (b Board) LineNames() []string {
	names := make([]string, 0, len(b.Lines))
	for name := range b.Lines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Line returns the arrivals for name, or nil.
func (b Board) Line(name string) []Arrival {
	return b.Lines[name]
}

// ForSource returns the lines whose arrivals came from src. The result is
// empty, never nil, when the source had nothing this cycle.
func (b Board) ForSource(src Source) map[string][]Arrival {
	out := map[string][]Arrival{}
	for name, arrivals := range b.Lines {
		if len(arrivals) > 0 && arrivals[0].Source == src {
			out[name] = arrivals
		}
	}
	return out
}

// Count returns the number of arrivals on the board from src.
func (b Board) Count(src Source) int {
	n := 0
	for _, arrivals := range b.ForSource(src) {
		n += len(arrivals)
	}
	return n
}

// SourceStatus records how one provider fared during a cycle.
type SourceStatus struct {
	Source    Source    `json:"source"`
	OK        bool      `json:"ok"`
	Arrivals  int       `json:"arrivals"`
	Dropped   int       `json:"dropped"`
	ErrorKind string    `json:"error_kind,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Snapshot is the output of one refresh cycle.
type Snapshot struct {
	Board       Board          `json:"board"`
	GeneratedAt time.Time      `json:"generated_at"`
	Sources     []SourceStatus `json:"sources"`
	Temperature *int           `json:"temperature,omitempty"`
}

// Status returns the status recorded for src.
func (s *Snapshot) Status(src Source) (SourceStatus, bool) {
	for _, st := range s.Sources {
		if st.Source == src {
			return st, true
		}
	}
	return SourceStatus{}, false
}
