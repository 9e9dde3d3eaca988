package metra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/internal/common/httpclient"
	"github.com/transit-board/internal/common/logger"
	"github.com/transit-board/internal/feeds"
	"github.com/transit-board/pkg/transit/models"
)

// Client reads Metra trip updates and keeps departures for one route at one
// stop.
type Client struct {
	url     string
	routeID string
	stopID  string
	http    *httpclient.Client
	logger  logger.Logger
}

func NewClient(cfg config.MetraConfig, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		url:     cfg.URL,
		routeID: cfg.RouteID,
		stopID:  cfg.StopID,
		http: httpclient.New(string(models.SourceMetra), httpclient.Options{
			Timeout:     timeout,
			BearerToken: cfg.Token,
			Accept:      "application/x-protobuf",
		}),
		logger: log.With("source", string(models.SourceMetra)),
	}
}

func (c *Client) Name() models.Source {
	return models.SourceMetra
}

func (c *Client) Fetch(ctx context.Context) ([]models.RawArrival, error) {
	body, err := c.http.Get(ctx, c.url)
	if err != nil {
		return nil, feeds.Transport(models.SourceMetra, err)
	}

	departures, err := ParseTripUpdates(body, c.routeID, c.stopID)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Decoded trip updates", "departures", len(departures))

	arrivals := make([]models.RawArrival, 0, len(departures))
	for i := range departures {
		arrivals = append(arrivals, models.RawArrival{
			Source:      models.SourceMetra,
			StationName: c.stopID,
			Metra:       &departures[i],
		})
	}
	return arrivals, nil
}

// ParseTripUpdates decodes a GTFS-Realtime feed and returns one departure
// per trip on routeID that calls at stopID. Canceled trips and skipped stops
// are left out. Ordering follows the feed.
func ParseTripUpdates(body []byte, routeID, stopID string) ([]models.MetraDeparture, error) {
	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, feeds.Format(models.SourceMetra, fmt.Errorf("failed to unmarshal protobuf: %w", err))
	}

	var departures []models.MetraDeparture
	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		trip := tu.GetTrip()
		if trip.GetRouteId() != routeID {
			continue
		}
		if trip.GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED {
			continue
		}

		stu := findStop(tu.GetStopTimeUpdate(), stopID)
		if stu == nil {
			continue
		}
		if stu.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED {
			continue
		}

		departures = append(departures, models.MetraDeparture{
			TripID:      trip.GetTripId(),
			RouteID:     routeID,
			StopID:      stopID,
			TrainNumber: TrainNumber(trip.GetTripId(), routeID),
			Time:        eventTime(stu),
			NoData:      stu.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_NO_DATA,
		})
	}
	return departures, nil
}

func findStop(updates []*gtfs.TripUpdate_StopTimeUpdate, stopID string) *gtfs.TripUpdate_StopTimeUpdate {
	for _, stu := range updates {
		if stu.GetStopId() == stopID {
			return stu
		}
	}
	return nil
}

// eventTime prefers the departure timestamp. Zero means neither was set.
func eventTime(stu *gtfs.TripUpdate_StopTimeUpdate) time.Time {
	ts := stu.GetDeparture().GetTime()
	if ts <= 0 {
		ts = stu.GetArrival().GetTime()
	}
	if ts <= 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// TrainNumber extracts the public train number from a Metra trip id,
// e.g. ME_ME320_V3_B on route ME is train 320.
func TrainNumber(tripID, routeID string) string {
	parts := strings.Split(tripID, "_")
	if len(parts) < 2 {
		return tripID
	}
	return strings.TrimPrefix(parts[1], routeID)
}
