package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/habitlite/internal/config"
	"github.com/comitanigiacomo/habitlite/internal/core/domain"
)

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func testConfig(driver string) *config.Config {
	cfg := config.Default()
	cfg.Database.Driver = driver
	cfg.Database.SQLitePath = ":memory:"
	cfg.JWT.Secret = "e2e-secret"
	cfg.Calendar.Timezone = "UTC"
	cfg.Redis.Enabled = false
	return cfg
}

func day(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format(domain.DateLayout)
}

func TestEndToEnd_HabitLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, driver := range []string{config.DriverSQLite, config.DriverMemory} {
		t.Run(driver, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			app, err := newApplication(ctx, testConfig(driver), zap.NewNop(), time.Now())
			require.NoError(t, err)
			defer func() {
				cancel()
				app.Close()
			}()

			go func() { _ = app.worker.Run(ctx) }()

			c := &client{t: t, router: app.router}

			var habitID string

			t.Run("1. Health", func(t *testing.T) {
				w := c.do(http.MethodGet, "/health", nil)
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Contains(t, w.Body.String(), `"redis":"disabled"`)
			})

			t.Run("2. Register and Login", func(t *testing.T) {
				creds := map[string]string{"email": "e2e@habitlite.dev", "password": "Tester1234"}

				w := c.do(http.MethodPost, "/api/v1/auth/register", creds)
				require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

				w = c.do(http.MethodPost, "/api/v1/auth/login", creds)
				require.Equal(t, http.StatusOK, w.Code, w.Body.String())

				var resp struct {
					Token string `json:"token"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				c.token = resp.Token
			})

			t.Run("3. Auth Error", func(t *testing.T) {
				anon := &client{t: t, router: app.router}
				assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/v1/habits", nil).Code)
			})

			t.Run("4. Create Habit", func(t *testing.T) {
				w := c.do(http.MethodPost, "/api/v1/habits", map[string]any{
					"name":       "Morning Run",
					"start_date": day(-2),
				})
				require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

				var h domain.Habit
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
				habitID = h.ID
			})

			t.Run("5. Log three days", func(t *testing.T) {
				require.NotEmpty(t, habitID)

				for _, offset := range []int{-2, -1, 0} {
					w := c.do(http.MethodPost, "/api/v1/habits/"+habitID+"/increment", map[string]any{"date": day(offset)})
					require.Equal(t, http.StatusOK, w.Code, w.Body.String())
				}

				w := c.do(http.MethodPost, "/api/v1/habits/"+habitID+"/increment", map[string]any{"date": day(-3)})
				assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			})

			t.Run("6. Streak is recomputed in the background", func(t *testing.T) {
				assert.Eventually(t, func() bool {
					w := c.do(http.MethodGet, "/api/v1/habits/"+habitID, nil)
					var h domain.Habit
					if json.Unmarshal(w.Body.Bytes(), &h) != nil {
						return false
					}
					return h.CurrentStreak == 3 && h.LongestStreak == 3
				}, 3*time.Second, 20*time.Millisecond)
			})

			t.Run("7. Today and weekly analytics", func(t *testing.T) {
				w := c.do(http.MethodGet, "/api/v1/today", nil)
				require.Equal(t, http.StatusOK, w.Code)
				assert.Contains(t, w.Body.String(), `"done":true`)

				w = c.do(http.MethodGet, "/api/v1/analytics/weekly", nil)
				require.Equal(t, http.StatusOK, w.Code)

				var view domain.WeeklyView
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
				require.Len(t, view.Habits, 1)
				assert.Contains(t, view.Habits[0].Cells, domain.CellDone)
			})

			t.Run("8. Delete Habit", func(t *testing.T) {
				assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/v1/habits/"+habitID, nil).Code)

				w := c.do(http.MethodGet, "/api/v1/habits", nil)
				assert.Equal(t, http.StatusOK, w.Code)
				assert.NotContains(t, w.Body.String(), habitID)

				w = c.do(http.MethodGet, "/api/v1/logs/sync", nil)
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Contains(t, w.Body.String(), `"deleted_at"`)
			})

			t.Run("9. Metrics and docs", func(t *testing.T) {
				w := c.do(http.MethodGet, "/metrics", nil)
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Contains(t, w.Body.String(), "habitlite_http_request_duration_seconds")

				w = c.do(http.MethodGet, "/swagger/doc.json", nil)
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Contains(t, w.Body.String(), "/habits/{id}/increment")
			})
		})
	}
}
