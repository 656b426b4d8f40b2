package httpapi

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/pws-history/internal/common"
	"github.com/i474232898/pws-history/internal/export"
	"github.com/i474232898/pws-history/internal/weather"
)

var validate = validator.New()

// Options tunes the API beyond the service itself.
type Options struct {
	// DefaultStationID is used when a request omits stationId.
	DefaultStationID string
	// MaxRangeDays caps the span of range requests; 0 means unlimited.
	MaxRangeDays int
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, opts Options) {
	api := app.Group("/api", noStore)
	wu := api.Group("/wu")

	wu.Get("/history", func(c *fiber.Ctx) error {
		var req dayQuery
		if err := req.bind(c, opts, service.Location()); err != nil {
			return err
		}

		payload, err := service.DayPayload(c.UserContext(), req.StationID, req.day)
		if err != nil {
			return err
		}
		return c.JSON(payload)
	})

	wu.Get("/rows", func(c *fiber.Ctx) error {
		var req dayQuery
		if err := req.bind(c, opts, service.Location()); err != nil {
			return err
		}

		rows, err := service.FetchDay(c.UserContext(), req.StationID, req.day)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"stationId": req.StationID,
			"date":      req.Date,
			"rows":      rows,
		})
	})

	wu.Get("/range", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c, opts, service.Location()); err != nil {
			return err
		}

		result, err := service.Range(c.UserContext(), req.StationID, req.from, req.to, nil)
		if err != nil {
			return &RangeError{Err: err, Partial: result.Count()}
		}

		return c.JSON(fiber.Map{
			"id":        result.ID,
			"stationId": result.StationID,
			"from":      common.CompactDate(result.From),
			"to":        common.CompactDate(result.To),
			"count":     result.Count(),
			"days":      result.Days,
			"rows":      result.Rows,
			"failed":    failedDays(result.Failed),
		})
	})

	wu.Get("/range.csv", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c, opts, service.Location()); err != nil {
			return err
		}

		result, err := service.Range(c.UserContext(), req.StationID, req.from, req.to, nil)
		if err != nil {
			return &RangeError{Err: err, Partial: result.Count()}
		}

		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, result.Rows); err != nil {
			return err
		}

		c.Attachment(export.FileName(result.From, result.To))
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Send(buf.Bytes())
	})
}

// noStore disables caching; today's data changes during the day.
func noStore(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
	c.Set("Surrogate-Control", "no-store")
	return c.Next()
}

// dayQuery holds query parameters for single-day endpoints.
type dayQuery struct {
	StationID string `validate:"required,max=64"`
	Date      string `validate:"required,len=8,numeric"`

	day time.Time
}

func (q *dayQuery) bind(c *fiber.Ctx, opts Options, loc *time.Location) error {
	q.StationID = stationParam(c, opts)
	q.Date = strings.ReplaceAll(strings.TrimSpace(c.Query("date")), "-", "")

	if err := validate.Struct(q); err != nil {
		return validationError(err)
	}

	day, err := common.ParseDate(q.Date, loc)
	if err != nil {
		return validationError(err)
	}
	q.day = day
	return nil
}

// rangeQuery holds query parameters for the range endpoints.
type rangeQuery struct {
	StationID string `validate:"required,max=64"`
	From      string `validate:"required"`
	To        string

	from time.Time
	to   time.Time
}

func (q *rangeQuery) bind(c *fiber.Ctx, opts Options, loc *time.Location) error {
	q.StationID = stationParam(c, opts)
	q.From = strings.TrimSpace(c.Query("from"))
	q.To = strings.TrimSpace(c.Query("to"))
	if q.To == "" {
		q.To = q.From
	}

	if err := validate.Struct(q); err != nil {
		return validationError(err)
	}

	from, err := common.ParseDate(q.From, loc)
	if err != nil {
		return validationError(err)
	}
	to, err := common.ParseDate(q.To, loc)
	if err != nil {
		return validationError(err)
	}
	if to.Before(from) {
		from, to = to, from
	}

	if opts.MaxRangeDays > 0 && spanDays(from, to) > opts.MaxRangeDays {
		return validationError(errors.New("date range too long"))
	}

	q.from, q.to = from, to
	return nil
}

// spanDays counts the calendar days from..to inclusive; the rounding absorbs DST shifts.
func spanDays(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours()/24)) + 1
}

func stationParam(c *fiber.Ctx, opts Options) string {
	if id := strings.TrimSpace(c.Query("stationId")); id != "" {
		return id
	}
	return opts.DefaultStationID
}

func failedDays(failed []*weather.DayError) []fiber.Map {
	out := make([]fiber.Map, 0, len(failed))
	for _, f := range failed {
		out = append(out, fiber.Map{
			"date":  common.CompactDate(f.Date),
			"class": weather.ClassOf(f.Err),
			"error": f.Err.Error(),
		})
	}
	return out
}
