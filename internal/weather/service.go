package weather

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/pws-history/internal/common"
)

// Service retrieves station days through a Gateway, merging live
// observations into the current day, and runs range fetches.
type Service struct {
	gateway Gateway
	logger  *zap.Logger

	now        func() time.Time
	loc        *time.Location
	dayTimeout time.Duration

	concurrency int
	policy      FailurePolicy
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects the clock used to decide which day is today.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the location whose calendar defines "today" and local timestamps.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithDayTimeout bounds each day's upstream calls, live leg included.
func WithDayTimeout(d time.Duration) Option {
	return func(s *Service) { s.dayTimeout = d }
}

// WithConcurrency sets how many days a range fetch keeps in flight.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = n }
}

// WithPolicy selects the range failure policy.
func WithPolicy(p FailurePolicy) Option {
	return func(s *Service) { s.policy = p }
}

// NewService creates a new Service.
func NewService(gateway Gateway, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		gateway:     gateway,
		logger:      logger,
		now:         time.Now,
		loc:         time.Local,
		dayTimeout:  30 * time.Second,
		concurrency: DefaultRangeConcurrency,
		policy:      FailFast,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the location used for calendar days.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Today returns midnight of the current day in the service location.
func (s *Service) Today() time.Time {
	return common.StartOfDay(s.now(), s.loc)
}

// IsToday reports whether day is the current calendar day.
func (s *Service) IsToday(day time.Time) bool {
	return common.SameDay(day, s.now(), s.loc)
}

// DayPayload returns the provider's payload for one day in its original
// shape. For the current day the live observations are merged in; a failing
// live leg only costs the live rows.
func (s *Service) DayPayload(ctx context.Context, stationID string, day time.Time) (any, error) {
	return s.dayPayload(ctx, stationID, day, s.IsToday(day))
}

// FetchDay returns the canonical rows of one day.
func (s *Service) FetchDay(ctx context.Context, stationID string, day time.Time) ([]CanonicalRow, error) {
	return s.fetchDayRows(ctx, stationID, day, s.IsToday(day))
}

// Range fetches every day between start and end with the configured
// concurrency and failure policy. progress may be nil.
func (s *Service) Range(ctx context.Context, stationID string, start, end time.Time, progress func(total int)) (RangeResult, error) {
	return FetchRange(ctx, stationID, start, end, s.fetchDayRows, RangeOptions{
		Concurrency: s.concurrency,
		Policy:      s.policy,
		Now:         s.now(),
		Location:    s.loc,
		Progress:    progress,
		Logger:      s.logger,
	})
}

func (s *Service) fetchDayRows(ctx context.Context, stationID string, day time.Time, today bool) ([]CanonicalRow, error) {
	payload, err := s.dayPayload(ctx, stationID, day, today)
	if err != nil {
		if errors.Is(err, ErrMalformedResponse) {
			s.logger.Warn("unusable history payload; treating day as empty",
				zap.String("station_id", stationID),
				zap.String("date", common.CompactDate(day)),
				zap.Error(err),
			)
			return []CanonicalRow{}, nil
		}
		return nil, err
	}
	return Normalize(payload, s.loc), nil
}

func (s *Service) dayPayload(ctx context.Context, stationID string, day time.Time, today bool) (any, error) {
	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return nil, fmt.Errorf("%w: station id is required", ErrValidation)
	}
	if s.gateway == nil {
		return nil, errors.New("no upstream gateway configured")
	}

	if s.dayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.dayTimeout)
		defer cancel()
	}

	date := common.CompactDate(day)
	logger := s.logger.With(zap.String("station_id", stationID), zap.String("date", date))

	body, err := s.gateway.History(ctx, stationID, date)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", date, err)
	}
	hist, err := decodePayload(body)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", date, err)
	}

	if !today {
		return hist, nil
	}

	liveBody, err := s.gateway.Current(ctx, stationID)
	if err != nil {
		logger.Warn("live observations unavailable; serving history only", zap.Error(err))
		return hist, nil
	}
	live, err := decodePayload(liveBody)
	if err != nil {
		logger.Warn("live observations unreadable; serving history only", zap.Error(err))
		return hist, nil
	}

	merged := MergePayload(hist, live)
	logger.Debug("merged live observations",
		zap.Int("historical", len(ObservationList(hist))),
		zap.Int("live", len(ObservationList(live))),
		zap.Int("merged", len(ObservationList(merged))),
	)
	return merged, nil
}

// decodePayload accepts an empty body as an empty observation list and any
// JSON array or object as-is; everything else is ErrMalformedResponse.
func decodePayload(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{"observations": []any{}}, nil
	}

	payload, err := decodeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	switch payload.(type) {
	case []any, map[string]any:
		return payload, nil
	default:
		return nil, fmt.Errorf("%w: unexpected top-level %T", ErrMalformedResponse, payload)
	}
}
