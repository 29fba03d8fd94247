package handler

import (
	"net/http"
	"time"

	"idpweather/internal/relyingparty/models"
	weather "idpweather/internal/weather/models"
	request "idpweather/pkg/platform/middleware/request"
)

type landingPage struct {
	Title    string
	LoggedIn bool
	ClientID string
	Requests int
}

type runPage struct {
	Title    string
	Requests int
	City     string
}

type resultRow struct {
	Index    int
	Weather  *weather.CurrentWeather
	Error    string
	Duration time.Duration
}

func (h *Handler) handleLoadTestHome(w http.ResponseWriter, r *http.Request) {
	_, ok := h.sessions.AccessToken(r)
	h.render(w, r, "landing", landingPage{
		Title:    h.clientID + ": Load Test Client",
		LoggedIn: ok,
		ClientID: h.clientID,
		Requests: h.loadTester.Requests(),
	})
}

// handleRunLoadTest streams one list item per completed request, then the
// summary. Requests stop early if the browser goes away.
func (h *Handler) handleRunLoadTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	token, ok := h.sessions.AccessToken(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	write := func(name string, data any) {
		if err := pages.ExecuteTemplate(w, name, data); err != nil {
			h.logger.WarnContext(ctx, "failed to stream load test output",
				"error", err,
				"request_id", requestID,
			)
			return
		}
		_ = rc.Flush()
	}

	write("run_start", runPage{
		Title:    "Running Load Test...",
		Requests: h.loadTester.Requests(),
		City:     h.defaultCity,
	})

	summary := h.loadTester.Run(ctx, token, h.defaultCity, func(res models.Result) {
		row := resultRow{Index: res.Index, Weather: res.Weather, Duration: res.Duration.Round(time.Millisecond)}
		if res.Err != nil {
			row.Error = userMessage(res.Err)
		}
		write("run_result", row)
	})

	h.logger.InfoContext(ctx, "load test complete",
		"client_id", h.clientID,
		"total", summary.Total,
		"successes", summary.Successes,
		"errors", summary.Errors,
		"duration_ms", summary.Duration.Milliseconds(),
		"request_id", requestID,
	)
	write("run_summary", summary)
}
