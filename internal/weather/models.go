package weather

import (
	"time"
)

// RawObservation is one upstream observation object as decoded from JSON.
// Numbers are kept as json.Number so a payload can be passed through unchanged.
type RawObservation = map[string]any

// CanonicalRow is the normalized, shape-independent observation record.
// Nil fields encode as JSON null.
type CanonicalRow struct {
	TimeLocal *string `json:"timeLocal"`

	Temp *float64 `json:"temp"`
	Dew  *float64 `json:"dew"`
	RH   *float64 `json:"rh"`
	Pres *float64 `json:"pres"`
	W    *float64 `json:"w"`
	Gust *float64 `json:"gust"`
	Dir  *float64 `json:"dir"`
	UV   *float64 `json:"uv"`
	Rad  *float64 `json:"rad"`

	// Rate and accumulated total are distinct measurements and never share a value.
	PrecipRate  *float64 `json:"precipRate"`
	PrecipTotal *float64 `json:"precipTotal"`

	// Epoch is the ordering and dedup key, seconds since the Unix epoch.
	Epoch *int64 `json:"epoch"`
}

// DayBatch holds the rows of exactly one calendar day.
type DayBatch []CanonicalRow

// DaySummary describes one day's contribution to a RangeResult.
type DaySummary struct {
	Date        string   `json:"date"`
	Rows        int      `json:"rows"`
	TempMin     *float64 `json:"tempMin,omitempty"`
	TempMax     *float64 `json:"tempMax,omitempty"`
	PrecipTotal *float64 `json:"precipTotal,omitempty"`
}

// RangeResult is the day-ordered concatenation of every fetched DayBatch.
type RangeResult struct {
	ID        string         `json:"id"`
	StationID string         `json:"stationId"`
	From      time.Time      `json:"-"`
	To        time.Time      `json:"-"`
	Rows      []CanonicalRow `json:"rows"`
	Days      []DaySummary   `json:"days"`

	// Failed is only populated under the CollectAndReport policy.
	Failed []*DayError `json:"-"`
}

// Count returns the number of rows gathered so far.
func (r RangeResult) Count() int {
	return len(r.Rows)
}
