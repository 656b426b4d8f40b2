package weather

import (
	"bytes"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// LocalTimeLayout is used when a local timestamp has to be derived from an epoch.
const LocalTimeLayout = "2006-01-02 15:04:05"

// unitKeys are the nested objects that hold unit-dependent values, one per
// provider units code (m, e, h, s).
var unitKeys = []string{"metric", "imperial", "uk_hybrid", "metric_si"}

// listKeys are the object keys that may hold the observation list, in priority order.
var listKeys = []string{"observations", "obs", "rows"}

// fieldRule resolves one numeric column. Keys are tried in order
// (primary, average, high, low); each key is looked up in the nested
// units object before the top level.
type fieldRule struct {
	name string
	keys []string
	set  func(r *CanonicalRow, v *float64)
}

var fieldRules = []fieldRule{
	{"temp", []string{"temp", "tempAvg", "tempHigh", "tempLow"}, func(r *CanonicalRow, v *float64) { r.Temp = v }},
	{"dew", []string{"dewpt", "dew", "dewptAvg", "dewptHigh", "dewptLow"}, func(r *CanonicalRow, v *float64) { r.Dew = v }},
	{"rh", []string{"humidity", "rh", "humidityAvg", "humidityHigh", "humidityLow"}, func(r *CanonicalRow, v *float64) { r.RH = v }},
	{"pres", []string{"pressure", "pres", "pressureAvg", "pressureMax", "pressureMin"}, func(r *CanonicalRow, v *float64) { r.Pres = v }},
	{"w", []string{"windSpeed", "windspeed", "w", "windspeedAvg", "windspeedHigh", "windspeedLow"}, func(r *CanonicalRow, v *float64) { r.W = v }},
	{"gust", []string{"windGust", "windgust", "gust", "windgustAvg", "windgustHigh", "windgustLow"}, func(r *CanonicalRow, v *float64) { r.Gust = v }},
	{"dir", []string{"winddir", "dir", "winddirAvg"}, func(r *CanonicalRow, v *float64) { r.Dir = v }},
	{"uv", []string{"uv", "uvAvg", "uvHigh", "uvLow"}, func(r *CanonicalRow, v *float64) { r.UV = v }},
	{"rad", []string{"solarRadiation", "rad", "solarRadiationAvg", "solarRadiationHigh", "solarRadiationLow"}, func(r *CanonicalRow, v *float64) { r.Rad = v }},
	{"precipRate", []string{"precipRate"}, func(r *CanonicalRow, v *float64) { r.PrecipRate = v }},
	{"precipTotal", []string{"precipTotal"}, func(r *CanonicalRow, v *float64) { r.PrecipTotal = v }},
}

// Normalize converts any tolerated payload shape into canonical rows.
// It never fails: unknown shapes yield an empty slice and elements that are
// not objects are skipped.
func Normalize(payload any, loc *time.Location) []CanonicalRow {
	if loc == nil {
		loc = time.Local
	}

	list := ObservationList(payload)
	rows := make([]CanonicalRow, 0, len(list))
	for _, el := range list {
		obs, ok := el.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, normalizeObservation(obs, loc))
	}

	sortRows(rows)
	return rows
}

// NormalizeJSON decodes data and normalizes it. Undecodable input yields an empty slice.
func NormalizeJSON(data []byte, loc *time.Location) []CanonicalRow {
	payload, err := decodeJSON(data)
	if err != nil {
		return []CanonicalRow{}
	}
	return Normalize(payload, loc)
}

// ObservationList extracts the observation elements from a bare array or
// from the first list-valued key among observations, obs and rows.
func ObservationList(payload any) []any {
	list, _ := observationList(payload)
	return list
}

func observationList(payload any) ([]any, string) {
	switch p := payload.(type) {
	case []any:
		return p, ""
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := p[key].([]any); ok {
				return list, key
			}
		}
	}
	return nil, ""
}

func normalizeObservation(obs RawObservation, loc *time.Location) CanonicalRow {
	var row CanonicalRow

	units := unitsObject(obs)
	for _, rule := range fieldRules {
		rule.set(&row, lookupNumber(obs, units, rule.keys))
	}

	epoch, hasEpoch := deriveEpoch(obs)
	if hasEpoch {
		row.Epoch = &epoch
	}
	row.TimeLocal = deriveTimeLocal(obs, epoch, hasEpoch, loc)

	return row
}

// unitsObject returns the first nested units object present on obs, or nil.
func unitsObject(obs RawObservation) map[string]any {
	for _, key := range unitKeys {
		if units, ok := obs[key].(map[string]any); ok {
			return units
		}
	}
	return nil
}

func lookupNumber(obs, units map[string]any, keys []string) *float64 {
	for _, key := range keys {
		if units != nil {
			if v, ok := toFloat(units[key]); ok {
				return &v
			}
		}
		if v, ok := toFloat(obs[key]); ok {
			return &v
		}
	}
	return nil
}

// deriveEpoch reads the explicit epoch field, else parses obsTimeUtc.
func deriveEpoch(obs RawObservation) (int64, bool) {
	if e, ok := toInt64(obs["epoch"]); ok {
		return e, true
	}
	if s, ok := obs["obsTimeUtc"].(string); ok {
		if t, err := parseUTC(s); err == nil {
			return t.Unix(), true
		}
	}
	return 0, false
}

// deriveTimeLocal tries obsTimeLocal, timeLocal, obsTimeLocalEpoch and
// obsTimeUtc, then falls back to the epoch rendered in loc.
func deriveTimeLocal(obs RawObservation, epoch int64, hasEpoch bool, loc *time.Location) *string {
	for _, key := range []string{"obsTimeLocal", "timeLocal"} {
		if s, ok := localString(obs, key); ok {
			return &s
		}
	}
	if e, ok := toInt64(obs["obsTimeLocalEpoch"]); ok {
		s := time.Unix(e, 0).In(loc).Format(LocalTimeLayout)
		return &s
	}
	if s, ok := localString(obs, "obsTimeUtc"); ok {
		return &s
	}
	if hasEpoch {
		s := time.Unix(epoch, 0).In(loc).Format(LocalTimeLayout)
		return &s
	}
	return nil
}

func localString(obs RawObservation, key string) (string, bool) {
	s, ok := obs[key].(string)
	return s, ok && strings.TrimSpace(s) != ""
}

func parseUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(LocalTimeLayout, s, time.UTC)
}

// toFloat coerces JSON numbers and numeric strings; anything else, NaN and Inf included, is rejected.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toInt64(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// sortRows orders rows with an epoch first, ascending by epoch, then rows
// without one by timeLocal. Equal keys keep their input order.
func sortRows(rows []CanonicalRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.Epoch != nil && b.Epoch != nil:
			return *a.Epoch < *b.Epoch
		case a.Epoch != nil:
			return true
		case b.Epoch != nil:
			return false
		default:
			return timeKey(a) < timeKey(b)
		}
	})
}

func timeKey(r CanonicalRow) string {
	if r.TimeLocal == nil {
		return ""
	}
	return *r.TimeLocal
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}
