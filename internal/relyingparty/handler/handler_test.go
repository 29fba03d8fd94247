package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idpweather/internal/relyingparty/handler/mocks"
	"idpweather/internal/relyingparty/models"
	weather "idpweather/internal/weather/models"
	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Sessions,Weather,LoadTester
type WebAppHandlerSuite struct {
	suite.Suite
	sessions *mocks.MockSessions
	weather  *mocks.MockWeather
	router   chi.Router
}

func TestWebAppHandlerSuite(t *testing.T) {
	suite.Run(t, new(WebAppHandlerSuite))
}

func (s *WebAppHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.sessions = mocks.NewMockSessions(ctrl)
	s.weather = mocks.NewMockWeather(ctrl)
	s.router = chi.NewRouter()
	New(s.sessions, s.weather, "app-1", "Brooklyn, New York", testutil.DiscardLogger()).Register(s.router)
}

func (s *WebAppHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *WebAppHandlerSuite) TestHome() {
	s.Run("anonymous visitor sees the login link", func() {
		s.sessions.EXPECT().AccessToken(gomock.Any()).Return("", false)

		rr := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
		s.Equal(http.StatusOK, rr.Code)
		s.Contains(rr.Body.String(), "You are not logged in.")
		s.Contains(rr.Body.String(), `href="/login"`)
	})

	s.Run("uses the default city", func() {
		s.sessions.EXPECT().AccessToken(gomock.Any()).Return("tok", true)
		s.weather.EXPECT().Current(gomock.Any(), "tok", "Brooklyn, New York").
			Return(&weather.CurrentWeather{Temperature: 7.5, WindSpeed: 12.1, WeatherCode: 3}, nil)

		rr := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
		s.Equal(http.StatusOK, rr.Code)
		body := rr.Body.String()
		s.Contains(body, "Weather in Brooklyn, New York")
		s.Contains(body, "Temperature: 7.5°C")
		s.Contains(body, "Wind Speed: 12.1 km/h")
		s.Contains(body, "Condition Code: 3")
	})

	s.Run("city query overrides the default and is escaped", func() {
		s.sessions.EXPECT().AccessToken(gomock.Any()).Return("tok", true)
		s.weather.EXPECT().Current(gomock.Any(), "tok", "<London>").
			Return(&weather.CurrentWeather{Temperature: 1}, nil)

		rr := s.do(httptest.NewRequest(http.MethodGet, "/?city=%3CLondon%3E", nil))
		s.NotContains(rr.Body.String(), "<London>")
		s.Contains(rr.Body.String(), "&lt;London&gt;")
	})

	s.Run("rejected token offers a logout", func() {
		for _, code := range []dErrors.Code{dErrors.CodeUnauthorized, dErrors.CodeForbidden} {
			s.sessions.EXPECT().AccessToken(gomock.Any()).Return("tok", true)
			s.weather.EXPECT().Current(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, dErrors.New(code, "invalid or expired token"))

			rr := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
			s.Equal(http.StatusOK, rr.Code)
			s.Contains(rr.Body.String(), "Error fetching weather: invalid or expired token")
			s.Contains(rr.Body.String(), "Logout and try again")
		}
	})

	s.Run("other failures do not offer a logout", func() {
		s.sessions.EXPECT().AccessToken(gomock.Any()).Return("tok", true)
		s.weather.EXPECT().Current(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "City not found"))

		rr := s.do(httptest.NewRequest(http.MethodGet, "/?city=Atlantis", nil))
		s.Contains(rr.Body.String(), "City not found")
		s.NotContains(rr.Body.String(), "Logout and try again")
	})
}

func (s *WebAppHandlerSuite) TestLogin() {
	s.Run("redirects to the authorization endpoint", func() {
		s.sessions.EXPECT().BeginLogin(gomock.Any(), gomock.Any()).
			Return("http://localhost:3000/authorize?client_id=app-1&response_type=code&state=xyz", nil)

		loc := testutil.AssertRedirect(s.T(), s.do(httptest.NewRequest(http.MethodGet, "/login", nil)))
		s.Equal("/authorize", loc.Path)
		s.Equal("xyz", loc.Query().Get("state"))
	})

	s.Run("cookie failure is an internal error", func() {
		s.sessions.EXPECT().BeginLogin(gomock.Any(), gomock.Any()).
			Return("", dErrors.Wrap(errors.New("encode"), dErrors.CodeInternal, "failed to save session cookie"))

		rr := s.do(httptest.NewRequest(http.MethodGet, "/login", nil))
		s.Equal(http.StatusInternalServerError, rr.Code)
		s.NotContains(rr.Body.String(), "failed to save")
	})
}

func (s *WebAppHandlerSuite) TestCallback() {
	s.Run("success redirects home", func() {
		s.sessions.EXPECT().CompleteLogin(gomock.Any(), gomock.Any()).Return(nil)

		loc := testutil.AssertRedirect(s.T(), s.do(httptest.NewRequest(http.MethodGet, "/callback?code=c&state=s", nil)))
		s.Equal("/", loc.Path)
	})

	s.Run("missing code is 400", func() {
		s.sessions.EXPECT().CompleteLogin(gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeBadRequest, "Authorization code missing"))

		rr := s.do(httptest.NewRequest(http.MethodGet, "/callback", nil))
		s.Equal(http.StatusBadRequest, rr.Code)
		s.Contains(rr.Body.String(), "Authorization code missing")
	})

	s.Run("exchange failure keeps its status", func() {
		s.sessions.EXPECT().CompleteLogin(gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeUpstreamUnavailable, "Authentication failed"))

		rr := s.do(httptest.NewRequest(http.MethodGet, "/callback?code=c&state=s", nil))
		s.Equal(http.StatusInternalServerError, rr.Code)
		s.Contains(rr.Body.String(), "Authentication failed")
	})
}

func (s *WebAppHandlerSuite) TestLogout() {
	s.Run("clears the session and redirects home", func() {
		s.sessions.EXPECT().Logout(gomock.Any(), gomock.Any()).
			DoAndReturn(func(w http.ResponseWriter, _ *http.Request) error {
				http.SetCookie(w, &http.Cookie{Name: "rp_session_app-1", MaxAge: -1})
				return nil
			})

		rr := s.do(httptest.NewRequest(http.MethodGet, "/logout", nil))
		loc := testutil.AssertRedirect(s.T(), rr)
		s.Equal("/", loc.Path)
		s.Contains(rr.Header().Get("Set-Cookie"), "Max-Age=0")
	})

	s.Run("redirects even when the store fails", func() {
		s.sessions.EXPECT().Logout(gomock.Any(), gomock.Any()).Return(errors.New("boom"))
		testutil.AssertRedirect(s.T(), s.do(httptest.NewRequest(http.MethodGet, "/logout", nil)))
	})
}

func (s *WebAppHandlerSuite) TestNoLoadTestRoute() {
	rr := s.do(httptest.NewRequest(http.MethodPost, "/test", nil))
	s.Equal(http.StatusNotFound, rr.Code)
}

type LoadTestHandlerSuite struct {
	suite.Suite
	sessions *mocks.MockSessions
	tester   *mocks.MockLoadTester
	router   chi.Router
}

func TestLoadTestHandlerSuite(t *testing.T) {
	suite.Run(t, new(LoadTestHandlerSuite))
}

func (s *LoadTestHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.sessions = mocks.NewMockSessions(ctrl)
	s.tester = mocks.NewMockLoadTester(ctrl)
	s.router = chi.NewRouter()
	New(s.sessions, mocks.NewMockWeather(ctrl), "app-2", "Brooklyn, New York", testutil.DiscardLogger(),
		WithLoadTester(s.tester)).Register(s.router)
}

func (s *LoadTestHandlerSuite) TestLanding() {
	s.Run("logged in shows the run button", func() {
		s.sessions.EXPECT().AccessToken(gomock.Any()).Return("tok", true)
		s.tester.EXPECT().Requests().Return(300)

		rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/", nil))
		s.Equal(http.StatusOK, rr.Code)
		s.Contains(rr.Body.String(), "Run Load Test (300 Requests)")
		s.Contains(rr.Body.String(), `action="/test"`)
	})

	s.Run("anonymous visitor is asked to log in", func() {
		s.sessions.EXPECT().AccessToken(gomock.Any()).Return("", false)
		s.tester.EXPECT().Requests().Return(300)

		rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/", nil))
		s.Contains(rr.Body.String(), "Login to start testing.")
		s.NotContains(rr.Body.String(), `action="/test"`)
	})
}

func (s *LoadTestHandlerSuite) TestRun() {
	s.Run("without a session redirects home", func() {
		s.sessions.EXPECT().AccessToken(gomock.Any()).Return("", false)

		rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodPost, "/test", nil))
		s.Equal(http.StatusSeeOther, rr.Code)
		s.Equal("/", rr.Header().Get("Location"))
	})

	s.Run("streams each result and the summary", func() {
		s.sessions.EXPECT().AccessToken(gomock.Any()).Return("tok", true)
		s.tester.EXPECT().Requests().Return(2)
		s.tester.EXPECT().Run(gomock.Any(), "tok", "Brooklyn, New York", gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, report func(models.Result)) models.Summary {
				report(models.Result{Index: 1, Weather: &weather.CurrentWeather{Temperature: 4.2, WeatherCode: 2}})
				report(models.Result{Index: 2, Err: dErrors.New(dErrors.CodeForbidden, "invalid or expired token")})
				return models.Summary{Total: 2, Successes: 1, Errors: 1, Duration: 1500 * time.Millisecond}
			})

		rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodPost, "/test", nil))
		s.Equal(http.StatusOK, rr.Code)
		s.True(rr.Flushed)
		body := rr.Body.String()
		s.Contains(body, "Initiating 2 parallel requests for Brooklyn, New York")
		s.Contains(body, "Request #1: Success (200 OK) - 4.2°C")
		s.Contains(body, "Request #2: Failed (invalid or expired token)")
		s.Contains(body, "<b>Total Requests:</b> 2")
		s.Contains(body, "<b>Duration:</b> 1500 ms")
		s.Contains(body, "<b>Success:</b> 1")
		s.Contains(body, "<b>Errors:</b> 1")
		s.Less(strings.Index(body, "Request #1"), strings.Index(body, "Test Complete"))
	})
}
