package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"idpweather/internal/relyingparty/models"
	weather "idpweather/internal/weather/models"
)

// WeatherFetcher is the single call a load test repeats.
type WeatherFetcher interface {
	Current(ctx context.Context, token, city string) (*weather.CurrentWeather, error)
}

// LoadTester fires parallel weather requests with one session's token.
type LoadTester struct {
	fetcher     WeatherFetcher
	requests    int
	concurrency int
}

// NewLoadTester runs requests calls per Run, at most concurrency at a time.
func NewLoadTester(fetcher WeatherFetcher, requests, concurrency int) *LoadTester {
	if concurrency <= 0 || concurrency > requests {
		concurrency = requests
	}
	return &LoadTester{fetcher: fetcher, requests: requests, concurrency: concurrency}
}

// Requests is the number of calls each Run makes.
func (l *LoadTester) Requests() int {
	return l.requests
}

// Run issues the calls and hands each result to report as it completes.
// report is never called concurrently. Individual failures are counted, not
// returned; cancelling ctx makes the remaining calls fail fast.
func (l *LoadTester) Run(ctx context.Context, token, city string, report func(models.Result)) models.Summary {
	start := time.Now()
	summary := models.Summary{Total: l.requests}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i := range l.requests {
		g.Go(func() error {
			callStart := time.Now()
			current, err := l.fetcher.Current(ctx, token, city)
			res := models.Result{Index: i + 1, Weather: current, Err: err, Duration: time.Since(callStart)}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Errors++
			} else {
				summary.Successes++
			}
			if report != nil {
				report(res)
			}
			return nil
		})
	}

	_ = g.Wait()
	summary.Duration = time.Since(start)
	return summary
}
