package weather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/pws-history/internal/common"
)

// DefaultRangeConcurrency is the number of day fetches in flight per batch.
const DefaultRangeConcurrency = 3

// FailurePolicy decides what a range fetch does when a day fails.
type FailurePolicy string

const (
	// FailFast stops at the first failing day and returns the rows of the days before it.
	FailFast FailurePolicy = "fail-fast"
	// CollectAndReport keeps going and lists every failed day in RangeResult.Failed.
	CollectAndReport FailurePolicy = "collect"
)

// DayFetcher retrieves the canonical rows of one station for one day.
// today tells the fetcher whether the live batch should be merged in.
type DayFetcher func(ctx context.Context, stationID string, day time.Time, today bool) ([]CanonicalRow, error)

// RangeOptions tunes FetchRange. Zero values fall back to defaults.
type RangeOptions struct {
	Concurrency int
	Policy      FailurePolicy

	// Now is the clock reading used to decide which day is today.
	Now      time.Time
	Location *time.Location

	// Progress receives the running row total after every batch.
	Progress func(total int)

	Logger *zap.Logger
}

func (o RangeOptions) withDefaults() RangeOptions {
	if o.Concurrency < 1 {
		o.Concurrency = DefaultRangeConcurrency
	}
	if o.Policy == "" {
		o.Policy = FailFast
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// EachDate lists every calendar day from start to end inclusive, in ascending order.
func EachDate(start, end time.Time, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.Local
	}
	start = common.StartOfDay(start, loc)
	end = common.StartOfDay(end, loc)

	var days []time.Time
	for d := start; !d.After(end); d = time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc) {
		days = append(days, d)
	}
	return days
}

// FetchRange retrieves every day between start and end (swapped when
// inverted) in batches of opts.Concurrency. Each batch runs concurrently and is
// fully awaited before the next one starts; rows are appended in day order, not
// completion order.
//
// Under FailFast the returned error is a *DayError for the earliest failing
// day and the result holds the rows of every day before it.
func FetchRange(ctx context.Context, stationID string, start, end time.Time, fetchDay DayFetcher, opts RangeOptions) (RangeResult, error) {
	opts = opts.withDefaults()

	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return RangeResult{}, fmt.Errorf("%w: station id is required", ErrValidation)
	}
	if fetchDay == nil {
		return RangeResult{}, fmt.Errorf("range fetch: no day fetcher configured")
	}
	if end.Before(start) {
		start, end = end, start
	}

	days := EachDate(start, end, opts.Location)
	result := RangeResult{
		ID:        uuid.NewString(),
		StationID: stationID,
		From:      days[0],
		To:        days[len(days)-1],
		Rows:      make([]CanonicalRow, 0),
		Days:      make([]DaySummary, 0, len(days)),
	}

	logger := opts.Logger.With(
		zap.String("range_id", result.ID),
		zap.String("station_id", stationID),
	)
	logger.Debug("range fetch started",
		zap.String("from", common.CompactDate(result.From)),
		zap.String("to", common.CompactDate(result.To)),
		zap.Int("days", len(days)),
		zap.Int("concurrency", opts.Concurrency),
	)

	type outcome struct {
		rows DayBatch
		err  error
	}

	for i := 0; i < len(days); i += opts.Concurrency {
		if err := ctx.Err(); err != nil {
			return result, &DayError{Date: days[i], Err: err}
		}

		batch := days[i:min(i+opts.Concurrency, len(days))]
		outcomes := make([]outcome, len(batch))

		var g errgroup.Group
		for j, day := range batch {
			j, day := j, day
			g.Go(func() error {
				rows, err := fetchDay(ctx, stationID, day, common.SameDay(day, opts.Now, opts.Location))
				outcomes[j] = outcome{rows: rows, err: err}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			logger.Debug("batch completed with failures", zap.Int("batch_start", i), zap.Error(err))
		}

		for j, out := range outcomes {
			day := batch[j]
			if out.err != nil {
				dayErr := &DayError{Date: day, Err: out.err}
				logger.Warn("day fetch failed",
					zap.String("date", common.CompactDate(day)),
					zap.String("class", string(ClassOf(out.err))),
					zap.Error(out.err),
				)
				if opts.Policy == FailFast {
					return result, dayErr
				}
				result.Failed = append(result.Failed, dayErr)
				continue
			}
			result.Rows = append(result.Rows, out.rows...)
			result.Days = append(result.Days, Summarize(day, out.rows))
		}

		if opts.Progress != nil {
			opts.Progress(len(result.Rows))
		}
	}

	if len(result.Failed) == len(days) {
		return result, result.Failed[0]
	}

	logger.Debug("range fetch completed",
		zap.Int("rows", len(result.Rows)),
		zap.Int("failed_days", len(result.Failed)),
	)
	return result, nil
}
