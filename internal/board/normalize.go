package board

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/transit-board/pkg/transit/models"
)

// Countdown returns whole minutes from now until t, rounded to the nearest
// minute. ok is false for a missing time or one already passed.
func Countdown(t, now time.Time) (int, bool) {
	if t.IsZero() {
		return 0, false
	}
	minutes := math.Round(t.Sub(now).Minutes())
	if minutes < 0 {
		return 0, false
	}
	return int(minutes), true
}

// Normalize converts one tagged provider record into an Arrival. Records
// that have passed or lack a line, destination or time are rejected.
func Normalize(raw models.RawArrival, now time.Time, loc *time.Location) (models.Arrival, bool) {
	switch raw.Source {
	case models.SourceCTATrain:
		if raw.Train == nil {
			return models.Arrival{}, false
		}
		return normalizeTrain(raw, now, loc)
	case models.SourceCTABus:
		if raw.Bus == nil {
			return models.Arrival{}, false
		}
		return normalizeBus(raw)
	case models.SourceMetra:
		if raw.Metra == nil {
			return models.Arrival{}, false
		}
		return normalizeMetra(raw, now)
	default:
		return models.Arrival{}, false
	}
}

// NormalizeAll normalizes every record against the same instant and reports
// how many were dropped.
func NormalizeAll(raws []models.RawArrival, now time.Time, loc *time.Location) ([]models.Arrival, int) {
	arrivals := make([]models.Arrival, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		a, ok := Normalize(raw, now, loc)
		if !ok {
			dropped++
			continue
		}
		arrivals = append(arrivals, a)
	}
	return arrivals, dropped
}

func normalizeTrain(raw models.RawArrival, now time.Time, loc *time.Location) (models.Arrival, bool) {
	eta := raw.Train
	if eta.Route == "" || eta.DestinationName == "" {
		return models.Arrival{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	minutes, ok := Countdown(eta.Arrival.In(loc), now)
	if !ok {
		return models.Arrival{}, false
	}

	station := eta.StationName
	if station == "" {
		station = raw.StationName
	}

	return models.Arrival{
		Source:      models.SourceCTATrain,
		Line:        LineName(eta.Route),
		Destination: eta.DestinationName,
		Station:     station,
		Run:         eta.Run,
		MinutesAway: minutes,
		IsLive:      eta.IsScheduled != "1",
		IsDelayed:   eta.IsDelayed == "1",
	}, true
}

func normalizeBus(raw models.RawArrival) (models.Arrival, bool) {
	prd := raw.Bus
	if prd.Route == "" || prd.Destination == "" {
		return models.Arrival{}, false
	}

	minutes, ok := busCountdown(prd.Countdown)
	if !ok {
		return models.Arrival{}, false
	}

	station := prd.StopName
	if station == "" {
		station = raw.StationName
	}

	return models.Arrival{
		Source:      models.SourceCTABus,
		Line:        prd.Route,
		Destination: prd.Destination,
		Station:     station,
		Run:         prd.VehicleID,
		MinutesAway: minutes,
		IsLive:      true,
		IsDelayed:   prd.Delayed,
	}, true
}

// busCountdown reads prdctdn: DUE is zero, DLY has no usable estimate
func busCountdown(value string) (int, bool) {
	switch v := strings.TrimSpace(value); v {
	case "DUE":
		return 0, true
	case "DLY", "":
		return 0, false
	default:
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
}

func normalizeMetra(raw models.RawArrival, now time.Time) (models.Arrival, bool) {
	dep := raw.Metra
	if dep.RouteID == "" || dep.TrainNumber == "" {
		return models.Arrival{}, false
	}

	minutes, ok := Countdown(dep.Time, now)
	if !ok {
		return models.Arrival{}, false
	}

	return models.Arrival{
		Source:      models.SourceMetra,
		Line:        dep.RouteID,
		Destination: "Train " + dep.TrainNumber,
		Station:     raw.StationName,
		Run:         dep.TrainNumber,
		MinutesAway: minutes,
		IsLive:      !dep.NoData,
	}, true
}
