package weather

import (
	"context"
)

// Gateway abstracts the upstream PWS provider. Both calls return the raw
// response body; an empty body means the provider had nothing to report.
type Gateway interface {
	// History returns the archived observations of one station for one day (YYYYMMDD).
	History(ctx context.Context, stationID, date string) ([]byte, error)
	// Current returns the station's latest live observations.
	Current(ctx context.Context, stationID string) ([]byte, error)
}
