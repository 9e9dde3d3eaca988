package models

import "time"

// Source identifies an upstream provider.
type Source string

const (
	SourceCTATrain Source = "cta"
	SourceCTABus   Source = "bus"
	SourceMetra    Source = "metra"
)

// AllSources lists the providers in display order.
var AllSources = []Source{SourceCTATrain, SourceCTABus, SourceMetra}

// ParseSource maps a configuration token to a Source.
func ParseSource(s string) (Source, bool) {
	for _, src := range AllSources {
		if string(src) == s {
			return src, true
		}
	}
	return "", false
}

// TrainETA is one entry of the Train Tracker "eta" array.
type TrainETA struct {
	StationID       string    `json:"staId"`
	StopID          string    `json:"stpId"`
	StationName     string    `json:"staNm"`
	StopDescription string    `json:"stpDe"`
	Run             string    `json:"rn"`
	Route           string    `json:"rt"`
	DestinationStop string    `json:"destSt"`
	DestinationName string    `json:"destNm"`
	Direction       string    `json:"trDr"`
	Predicted       LocalTime `json:"prdt"`
	Arrival         LocalTime `json:"arrT"`
	IsApproaching   string    `json:"isApp"`
	IsScheduled     string    `json:"isSch"`
	IsDelayed       string    `json:"isDly"`
	IsFault         string    `json:"isFlt"`
}

// BusPrediction is one entry of the Bus Tracker "prd" array.
type BusPrediction struct {
	Timestamp      string `json:"tmstmp"`
	Type           string `json:"typ"`
	StopName       string `json:"stpnm"`
	StopID         string `json:"stpid"`
	VehicleID      string `json:"vid"`
	Route          string `json:"rt"`
	RouteDirection string `json:"rtdir"`
	Destination    string `json:"des"`
	PredictedTime  string `json:"prdtm"`
	Delayed        bool   `json:"dly"`
	Countdown      string `json:"prdctdn"`
}

// MetraDeparture is a stop-time update from a Metra trip update that
// matched the configured route and stop.
type MetraDeparture struct {
	TripID      string
	RouteID     string
	StopID      string
	TrainNumber string
	// Time is zero when the update carried neither a departure nor an
	// arrival timestamp.
	Time   time.Time
	NoData bool
}

// RawArrival is a provider record tagged with its source. Exactly one of
// Train, Bus or Metra is set, matching Source.
type RawArrival struct {
	Source      Source
	StationName string

	Train *TrainETA
	Bus   *BusPrediction
	Metra *MetraDeparture
}
