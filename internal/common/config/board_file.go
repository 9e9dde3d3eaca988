package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// boardFile is the YAML layout of the places a board watches.
type boardFile struct {
	Stations []Station      `yaml:"stations"`
	BusStops []BusStop      `yaml:"bus_stops"`
	Metra    metraFilter    `yaml:"metra"`
	LED      []LEDRow       `yaml:"led_rows"`
	LineMax  map[string]int `yaml:"line_max"`
}

type metraFilter struct {
	RouteID string `yaml:"route_id"`
	StopID  string `yaml:"stop_id"`
}

// defaultBoardFile watches the Loop stations, the State & Lake #2 stop and
// Metra Electric departures from Millennium Station.
func defaultBoardFile() boardFile {
	return boardFile{
		Stations: []Station{
			{ID: "40380", Name: "Clark/Lake"},
			{ID: "41700", Name: "Washington/Wabash"},
			{ID: "41660", Name: "Lake"},
		},
		BusStops: []BusStop{
			{ID: "1423", Name: "State & Lake", Routes: []string{"2"}},
		},
		Metra: metraFilter{RouteID: "ME", StopID: "MILLENNIUM"},
		LED: []LEDRow{
			{Line: "ME", Label: "ME"},
			{Line: "2", Label: "#2"},
		},
	}
}

func loadBoardFile(path string) (boardFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return boardFile{}, fmt.Errorf("reading board config: %w", err)
	}

	// Unset sections keep their defaults
	bf := defaultBoardFile()
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return boardFile{}, fmt.Errorf("parsing board config %s: %w", path, err)
	}
	return bf, nil
}

func (bf boardFile) apply(cfg *Config) {
	cfg.CTA.Stations = bf.Stations
	cfg.Bus.Stops = bf.BusStops
	cfg.Metra.RouteID = bf.Metra.RouteID
	cfg.Metra.StopID = bf.Metra.StopID
	cfg.LED.Lines = bf.LED
	for line, max := range bf.LineMax {
		cfg.Board.LineMax[line] = max
	}
}
