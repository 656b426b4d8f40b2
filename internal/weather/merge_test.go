package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obsAt(epoch float64) map[string]any {
	return map[string]any{"epoch": epoch}
}

func epochs(t *testing.T, list []any) []int64 {
	t.Helper()
	out := make([]int64, 0, len(list))
	for _, el := range list {
		e, ok := EpochOf(el)
		require.True(t, ok, "element without epoch: %v", el)
		out = append(out, e)
	}
	return out
}

func TestEpochOf(t *testing.T) {
	e, ok := EpochOf(map[string]any{"epoch": 100.0})
	assert.True(t, ok)
	assert.Equal(t, int64(100), e)

	e, ok = EpochOf(map[string]any{"obsTimeUtc": "2024-05-01T03:04:59Z"})
	assert.True(t, ok)
	assert.Equal(t, int64(1714532699), e)

	_, ok = EpochOf(map[string]any{"obsTimeUtc": "yesterday"})
	assert.False(t, ok)

	_, ok = EpochOf("not an object")
	assert.False(t, ok)
}

func TestMergeAppendsOnlyNewerLiveObservations(t *testing.T) {
	historical := []any{obsAt(100), obsAt(200)}
	live := []any{obsAt(150), obsAt(250)}

	merged := Merge(historical, live)
	assert.Equal(t, []int64{100, 200, 250}, epochs(t, merged))
}

func TestMergeEmptyHistoryKeepsAllLive(t *testing.T) {
	merged := Merge(nil, []any{obsAt(300), obsAt(100), obsAt(200)})
	assert.Equal(t, []int64{100, 200, 300}, epochs(t, merged))
}

func TestMergeEmptyLiveReturnsHistory(t *testing.T) {
	merged := Merge([]any{obsAt(200), obsAt(100)}, nil)
	assert.Equal(t, []int64{100, 200}, epochs(t, merged))
}

func TestMergeUsesNewestHistoricalEpoch(t *testing.T) {
	// History is not guaranteed to arrive sorted.
	historical := []any{obsAt(300), obsAt(100)}
	live := []any{obsAt(200), obsAt(301)}

	merged := Merge(historical, live)
	assert.Equal(t, []int64{100, 300, 301}, epochs(t, merged))
}

func TestMergeDropsLiveWithoutEpochAndDuplicates(t *testing.T) {
	historical := []any{obsAt(100)}
	live := []any{
		map[string]any{"temp": 20.0},
		"garbage",
		obsAt(200),
		map[string]any{"epoch": 200.0, "temp": 99.0},
		map[string]any{"obsTimeUtc": "1970-01-01T00:05:00Z"},
	}

	merged := Merge(historical, live)
	require.Equal(t, []int64{100, 200, 300}, epochs(t, merged))
	assert.NotContains(t, merged[1], "temp")
}

func TestMergeIsIdempotent(t *testing.T) {
	historical := []any{obsAt(100), obsAt(200)}
	live := []any{obsAt(150), obsAt(250), obsAt(260)}

	once := Merge(historical, live)
	twice := Merge(once, live)
	assert.Equal(t, once, twice)
}

func TestMergeOutputIsMonotonic(t *testing.T) {
	historical := []any{obsAt(500), obsAt(10), obsAt(250), obsAt(250)}
	live := []any{obsAt(900), obsAt(600), obsAt(700), obsAt(400)}

	got := epochs(t, Merge(historical, live))
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1], got[i])
	}
	assert.Equal(t, []int64{10, 250, 250, 500, 600, 700, 900}, got)
}

func TestMergeKeepsUnkeyedHistoryAfterKeyed(t *testing.T) {
	unkeyed := map[string]any{"obsTimeLocal": "2024-05-01 10:00:00"}
	historical := []any{unkeyed, obsAt(200), obsAt(100)}

	merged := Merge(historical, []any{obsAt(300)})
	require.Len(t, merged, 4)
	assert.Equal(t, unkeyed, merged[3])
	assert.Equal(t, []int64{100, 200, 300}, epochs(t, merged[:3]))
}

func TestMergePayloadKeepsHistoricalShape(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		historical := map[string]any{
			"stationID": "KMAHANOV10",
			"obs":       []any{obsAt(100)},
		}
		live := map[string]any{"observations": []any{obsAt(200)}}

		merged, ok := MergePayload(historical, live).(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "KMAHANOV10", merged["stationID"])
		assert.NotContains(t, merged, "observations")
		assert.Equal(t, []int64{100, 200}, epochs(t, merged["obs"].([]any)))

		// the input is left untouched
		assert.Len(t, historical["obs"], 1)
	})

	t.Run("array", func(t *testing.T) {
		merged, ok := MergePayload([]any{obsAt(100)}, []any{obsAt(200)}).([]any)
		require.True(t, ok)
		assert.Equal(t, []int64{100, 200}, epochs(t, merged))
	})

	t.Run("object without list", func(t *testing.T) {
		merged, ok := MergePayload(map[string]any{"status": "ok"}, []any{obsAt(200)}).(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ok", merged["status"])
		assert.Equal(t, []int64{200}, epochs(t, merged["observations"].([]any)))
	})

	t.Run("unknown shape", func(t *testing.T) {
		merged, ok := MergePayload(nil, map[string]any{"rows": []any{obsAt(200)}}).(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []int64{200}, epochs(t, merged["observations"].([]any)))
	})
}
