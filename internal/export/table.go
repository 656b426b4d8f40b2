// Package export renders canonical rows as a display table and as CSV.
package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/i474232898/pws-history/internal/common"
	"github.com/i474232898/pws-history/internal/weather"
)

// Missing is shown in place of a null value.
const Missing = "—"

// TableRow is one rendered table line. Column headers double as CSV headers.
type TableRow struct {
	TimeLocal   string `json:"timeLocal" csv:"Time (local)"`
	Temp        string `json:"temp" csv:"Temp (°C)"`
	Dew         string `json:"dew" csv:"Dew point (°C)"`
	RH          string `json:"rh" csv:"RH (%)"`
	Pres        string `json:"pres" csv:"Pressure (hPa)"`
	W           string `json:"w" csv:"Wind (km/h)"`
	Gust        string `json:"gust" csv:"Gust (km/h)"`
	Dir         string `json:"dir" csv:"Dir (°)"`
	PrecipRate  string `json:"precipRate" csv:"Precip rate (mm/h)"`
	PrecipTotal string `json:"precipTotal" csv:"Precip total (mm)"`
	UV          string `json:"uv" csv:"UV"`
	Rad         string `json:"rad" csv:"Solar (W/m²)"`
}

// BuildTable renders rows in order with fixed decimals per column.
func BuildTable(rows []weather.CanonicalRow) []TableRow {
	table := make([]TableRow, 0, len(rows))
	for _, r := range rows {
		timeLocal := Missing
		if r.TimeLocal != nil && *r.TimeLocal != "" {
			timeLocal = *r.TimeLocal
		}
		table = append(table, TableRow{
			TimeLocal:   timeLocal,
			Temp:        FormatValue(r.Temp, 1),
			Dew:         FormatValue(r.Dew, 1),
			RH:          FormatValue(r.RH, 0),
			Pres:        FormatValue(r.Pres, 1),
			W:           FormatValue(r.W, 1),
			Gust:        FormatValue(r.Gust, 1),
			Dir:         FormatValue(r.Dir, 0),
			PrecipRate:  FormatValue(r.PrecipRate, 2),
			PrecipTotal: FormatValue(r.PrecipTotal, 2),
			UV:          FormatValue(r.UV, 1),
			Rad:         FormatValue(r.Rad, 1),
		})
	}
	return table
}

// FormatValue prints v with the given number of decimals, or Missing for nil.
func FormatValue(v *float64, decimals int) string {
	if v == nil {
		return Missing
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

// FileName returns the download name for an export covering from..to.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("wu_%s_a_%s.csv", from.Format(common.ISODateLayout), to.Format(common.ISODateLayout))
}
