package weather

import (
	"time"

	"github.com/i474232898/pws-history/internal/common"
)

// Summarize builds the per-day summary attached to a RangeResult.
// Temperature bounds come from the temp column; the precipitation total is the
// largest accumulated value seen that day, since the station resets it at midnight.
func Summarize(day time.Time, rows []CanonicalRow) DaySummary {
	summary := DaySummary{
		Date: common.CompactDate(day),
		Rows: len(rows),
	}

	for _, r := range rows {
		if r.Temp != nil {
			if summary.TempMin == nil || *r.Temp < *summary.TempMin {
				v := *r.Temp
				summary.TempMin = &v
			}
			if summary.TempMax == nil || *r.Temp > *summary.TempMax {
				v := *r.Temp
				summary.TempMax = &v
			}
		}
		if r.PrecipTotal != nil {
			if summary.PrecipTotal == nil || *r.PrecipTotal > *summary.PrecipTotal {
				v := *r.PrecipTotal
				summary.PrecipTotal = &v
			}
		}
	}

	return summary
}
