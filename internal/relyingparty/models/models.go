package models

import (
	"time"

	weather "idpweather/internal/weather/models"
)

// Session binds a browser session handle to the access token obtained for it.
type Session struct {
	ID          string    `json:"id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired reports whether now is past the session expiry.
func (s Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Result is one load-test request outcome.
type Result struct {
	Index    int
	Weather  *weather.CurrentWeather
	Err      error
	Duration time.Duration
}

// Summary aggregates a load-test run.
type Summary struct {
	Total     int
	Successes int
	Errors    int
	Duration  time.Duration
}
