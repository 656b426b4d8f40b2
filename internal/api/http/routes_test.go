package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/pws-history/internal/weather"
)

const dayBody = `{"observations":[
	{"obsTimeLocal":"2024-04-28 10:00:00","epoch":1714298400,"metric":{"tempAvg":14.0,"precipRate":0.4,"precipTotal":3.2}},
	{"obsTimeLocal":"2024-04-28 10:05:00","epoch":1714298700,"metric":{"tempAvg":14.5}}
]}`

type stubGateway struct {
	history func(date string) ([]byte, error)

	mu      sync.Mutex
	station string
}

func (g *stubGateway) History(_ context.Context, stationID, date string) ([]byte, error) {
	g.mu.Lock()
	g.station = stationID
	g.mu.Unlock()

	if g.history != nil {
		return g.history(date)
	}
	return []byte(dayBody), nil
}

func (g *stubGateway) Current(context.Context, string) ([]byte, error) {
	return nil, nil
}

func newTestApp(g weather.Gateway) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: ErrorHandler,
	})
	svc := weather.NewService(g, nil,
		weather.WithClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }),
		weather.WithLocation(time.UTC),
	)
	RegisterRoutes(app, svc, Options{DefaultStationID: "KMAHANOV10", MaxRangeDays: 31})
	return app
}

func doGet(t *testing.T, app *fiber.App, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestDayValidation(t *testing.T) {
	app := newTestApp(&stubGateway{})

	targets := []string{
		"/api/wu/rows",
		"/api/wu/rows?date=2024-13-01",
		"/api/wu/rows?date=yesterday",
		"/api/wu/history?date=202405",
	}
	for _, target := range targets {
		resp, body := doGet(t, app, target)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		assert.Equal(t, "validation", decode(t, body)["class"], target)
	}
}

func TestResponsesAreNotCached(t *testing.T) {
	app := newTestApp(&stubGateway{})

	for _, target := range []string{"/api/wu/rows?date=20240428", "/api/wu/rows"} {
		resp, _ := doGet(t, app, target)
		assert.Contains(t, resp.Header.Get(fiber.HeaderCacheControl), "no-store", target)
		assert.Equal(t, "no-cache", resp.Header.Get(fiber.HeaderPragma), target)
		assert.Equal(t, "0", resp.Header.Get(fiber.HeaderExpires), target)
	}
}

func TestRowsEndpoint(t *testing.T) {
	g := &stubGateway{}
	app := newTestApp(g)

	resp, body := doGet(t, app, "/api/wu/rows?date=2024-04-28")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "KMAHANOV10", g.station)

	out := decode(t, body)
	assert.Equal(t, "KMAHANOV10", out["stationId"])
	assert.Equal(t, "20240428", out["date"])

	rows, ok := out["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)

	first := rows[0].(map[string]any)
	assert.Equal(t, "2024-04-28 10:00:00", first["timeLocal"])
	assert.Equal(t, 14.0, first["temp"])
	assert.Equal(t, 0.4, first["precipRate"])
	assert.Equal(t, 3.2, first["precipTotal"])
	assert.Contains(t, first, "dew")
	assert.Nil(t, first["dew"])
}

func TestHistoryEndpointPassesPayloadThrough(t *testing.T) {
	g := &stubGateway{}
	app := newTestApp(g)

	resp, body := doGet(t, app, "/api/wu/history?stationId=ISANTI123&date=20240428")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "ISANTI123", g.station)
	assert.JSONEq(t, dayBody, string(body))
}

func TestRangeEndpoint(t *testing.T) {
	app := newTestApp(&stubGateway{})

	resp, body := doGet(t, app, "/api/wu/range?from=2024-04-30&to=2024-04-28")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	out := decode(t, body)
	assert.NotEmpty(t, out["id"])
	assert.Equal(t, "20240428", out["from"])
	assert.Equal(t, "20240430", out["to"])
	assert.Equal(t, 6.0, out["count"])
	assert.Len(t, out["rows"], 6)
	assert.Len(t, out["days"], 3)
	assert.Empty(t, out["failed"])
}

func TestRangeTooLong(t *testing.T) {
	app := newTestApp(&stubGateway{})

	resp, body := doGet(t, app, "/api/wu/range?from=20240101&to=20240301")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, body)["error"], "date range too long")
}

func TestRangeFailureReportsPartialProgress(t *testing.T) {
	g := &stubGateway{
		history: func(date string) ([]byte, error) {
			if date == "20240429" {
				return nil, &weather.UpstreamHTTPError{StatusCode: http.StatusUnauthorized}
			}
			return []byte(dayBody), nil
		},
	}
	app := newTestApp(g)

	resp, body := doGet(t, app, "/api/wu/range?from=20240428&to=20240430")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	out := decode(t, body)
	assert.Equal(t, "upstream-http", out["class"])
	assert.Equal(t, "20240429", out["failedDate"])
	assert.Equal(t, 2.0, out["partialCount"])
	assert.Equal(t, 401.0, out["upstreamStatus"])
}

func TestNetworkErrorIsGatewayTimeout(t *testing.T) {
	g := &stubGateway{
		history: func(string) ([]byte, error) { return nil, weather.ErrNetwork },
	}
	app := newTestApp(g)

	resp, body := doGet(t, app, "/api/wu/rows?date=20240428")
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Equal(t, "network", decode(t, body)["class"])
}

func TestRangeCSV(t *testing.T) {
	app := newTestApp(&stubGateway{})

	resp, body := doGet(t, app, "/api/wu/range.csv?from=20240428")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "text/csv"))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "wu_2024-04-28_a_2024-04-28.csv")

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Time (local);Temp (°C)"))
	assert.Equal(t, "2024-04-28 10:00:00;14.0;—;—;—;—;—;—;0.40;3.20;—;—", lines[1])
}
