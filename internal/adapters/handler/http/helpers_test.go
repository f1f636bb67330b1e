package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	adapterHTTP "github.com/comitanigiacomo/habitlite/internal/adapters/handler/http"
	"github.com/comitanigiacomo/habitlite/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/habitlite/internal/adapters/repository"
	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/core/services"
)

type noopStreaks struct{}

func (noopStreaks) Enqueue(string) {}

type testAPI struct {
	router *gin.Engine
	habits *repository.InMemoryHabitRepository
	logs   *repository.InMemoryHabitLogRepository
	cal    *domain.Calendar
}

// headerAuth trusts X-User-ID, standing in for the JWT middleware.
func headerAuth(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}
	middleware.SetUserID(userID)(c)
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cal := domain.NewCalendar(nil)
	habits := repository.NewInMemoryHabitRepository()
	logs := repository.NewInMemoryHabitLogRepository()
	logger := zap.NewNop()

	habitSvc := services.NewHabitService(habits, logs, cal)
	logSvc := services.NewLogService(logs, habits, cal, noopStreaks{})
	analyticsSvc := services.NewAnalyticsService(habits, logs, cal)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(headerAuth)

	adapterHTTP.NewHabitHandler(habitSvc, cal, logger).RegisterRoutes(api)
	adapterHTTP.NewLogHandler(logSvc, cal, logger).RegisterRoutes(api)
	adapterHTTP.NewAnalyticsHandler(analyticsSvc, cal, logger).RegisterRoutes(api)

	return &testAPI{router: router, habits: habits, logs: logs, cal: cal}
}

func (a *testAPI) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		raw, _ := json.Marshal(body)
		buf = bytes.NewBuffer(raw)
	} else {
		buf = &bytes.Buffer{}
	}

	req, _ := http.NewRequest(method, "/api/v1"+path, buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// createHabit goes through the API and returns the stored habit.
func (a *testAPI) createHabit(t *testing.T, userID string, body map[string]any) domain.Habit {
	t.Helper()

	w := a.do(http.MethodPost, "/habits", userID, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var h domain.Habit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	return h
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
