package feeds

import (
	"context"

	"github.com/transit-board/pkg/transit/models"
)

// Source is one upstream arrivals feed. Fetch performs a single attempt and
// returns raw records in no particular order. On TransportError or
// UpstreamFormatError the records are nil; on PartialDataError they hold
// everything that decoded.
type Source interface {
	Name() models.Source
	Fetch(ctx context.Context) ([]models.RawArrival, error)
}
