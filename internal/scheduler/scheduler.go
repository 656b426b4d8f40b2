package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/pws-history/internal/weather"
)

// DayFetcher is the part of weather.Service the watch needs.
type DayFetcher interface {
	Today() time.Time
	FetchDay(ctx context.Context, stationID string, day time.Time) ([]weather.CanonicalRow, error)
}

// Scheduler periodically fetches today's observations for the configured
// stations and logs the latest reading. Nothing is retained between runs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   DayFetcher
	stations  []string
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(stations []string, interval time.Duration, service DayFetcher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		stations:  stations,
		interval:  interval,
		timeout:   30 * time.Second,
		logger:    logger.Named("watch"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.stations) == 0 || s.interval <= 0 {
		s.logger.Info("station watch disabled",
			zap.Int("stations", len(s.stations)),
			zap.Duration("interval", s.interval),
		)
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.poll(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("station watch started",
		zap.Strings("stations", s.stations),
		zap.Duration("interval", s.interval),
	)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) poll(ctx context.Context) {
	today := s.service.Today()

	var wg sync.WaitGroup
	for _, station := range s.stations {
		station := station
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			rows, err := s.service.FetchDay(ctx, station, today)
			if err != nil {
				s.logger.Warn("watch fetch failed",
					zap.String("station_id", station),
					zap.String("class", string(weather.ClassOf(err))),
					zap.Error(err),
				)
				return
			}
			if len(rows) == 0 {
				s.logger.Info("no observations yet today", zap.String("station_id", station))
				return
			}

			latest := rows[len(rows)-1]
			fields := []zap.Field{
				zap.String("station_id", station),
				zap.Int("rows", len(rows)),
			}
			if latest.TimeLocal != nil {
				fields = append(fields, zap.String("time_local", *latest.TimeLocal))
			}
			if latest.Temp != nil {
				fields = append(fields, zap.Float64("temp", *latest.Temp))
			}
			if latest.PrecipTotal != nil {
				fields = append(fields, zap.Float64("precip_total", *latest.PrecipTotal))
			}
			s.logger.Info("latest observation", fields...)
		}()
	}
	wg.Wait()
}
