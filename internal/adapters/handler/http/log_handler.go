package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/core/services"
)

type LogHandler struct {
	svc    *services.LogService
	cal    *domain.Calendar
	logger *zap.Logger
}

func NewLogHandler(svc *services.LogService, cal *domain.Calendar, logger *zap.Logger) *LogHandler {
	return &LogHandler{
		svc:    svc,
		cal:    cal,
		logger: logger,
	}
}

type changeCountRequest struct {
	Delta int    `json:"delta" binding:"gte=0,lte=999"`
	Date  string `json:"date"`
}

type setCountRequest struct {
	Count   *int `json:"count" binding:"required"`
	Version int  `json:"version" binding:"required,gte=1"`
}

func (h *LogHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits/:id")
	{
		habits.GET("/progress", h.Progress)
		habits.POST("/increment", h.Increment)
		habits.POST("/decrement", h.Decrement)
		habits.GET("/logs", h.ListByHabit)
	}

	logs := router.Group("/logs")
	{
		logs.GET("/sync", h.Sync)
		logs.GET("/:id", h.Get)
		logs.PUT("/:id", h.SetCount)
	}
}

// dateParam reads an optional YYYY-MM-DD query or body value. Empty means now.
func (h *LogHandler) dateParam(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	d, err := h.cal.ParseDay(raw)
	if err != nil {
		badRequest(c, "invalid date, use YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

// Progress godoc
// @Summary      Count, target and done state of the period containing date
// @Tags         logs
// @Produce      json
// @Param        id   path  string true  "Habit ID"
// @Param        date query string false "YYYY-MM-DD, defaults to today"
// @Success      200 {object} domain.HabitProgress
// @Security     BearerAuth
// @Router       /habits/{id}/progress [get]
func (h *LogHandler) Progress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	at, ok := h.dateParam(c, c.Query("date"))
	if !ok {
		return
	}

	progress, err := h.svc.Progress(c.Request.Context(), c.Param("id"), userID, at)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// Increment godoc
// @Summary      Add to the counter of a period
// @Tags         logs
// @Accept       json
// @Produce      json
// @Param        id   path string true "Habit ID"
// @Param        body body changeCountRequest false "Delta (default 1) and date"
// @Success      200 {object} services.LogResult
// @Failure      422 {object} map[string]string
// @Security     BearerAuth
// @Router       /habits/{id}/increment [post]
func (h *LogHandler) Increment(c *gin.Context) {
	h.changeCount(c, h.svc.Increment)
}

// Decrement godoc
// @Summary      Subtract from the counter of a period, never below zero
// @Tags         logs
// @Accept       json
// @Produce      json
// @Param        id   path string true "Habit ID"
// @Param        body body changeCountRequest false "Delta (default 1) and date"
// @Success      200 {object} services.LogResult
// @Security     BearerAuth
// @Router       /habits/{id}/decrement [post]
func (h *LogHandler) Decrement(c *gin.Context) {
	h.changeCount(c, h.svc.Decrement)
}

type countChanger func(ctx context.Context, input services.IncrementInput) (*services.LogResult, error)

func (h *LogHandler) changeCount(c *gin.Context, apply countChanger) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req changeCountRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	at, ok := h.dateParam(c, req.Date)
	if !ok {
		return
	}

	result, err := apply(c.Request.Context(), services.IncrementInput{
		HabitID: c.Param("id"),
		UserID:  userID,
		Delta:   req.Delta,
		At:      at,
	})
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListByHabit godoc
// @Summary      Logs of a habit between two days
// @Tags         logs
// @Produce      json
// @Param        id   path  string true  "Habit ID"
// @Param        from query string false "YYYY-MM-DD, defaults to 30 days ago"
// @Param        to   query string false "YYYY-MM-DD, defaults to today"
// @Success      200 {array} domain.HabitLog
// @Security     BearerAuth
// @Router       /habits/{id}/logs [get]
func (h *LogHandler) ListByHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	to, ok := h.dateParam(c, c.Query("to"))
	if !ok {
		return
	}
	if to.IsZero() {
		to = h.cal.Today(time.Now())
	}

	from, ok := h.dateParam(c, c.Query("from"))
	if !ok {
		return
	}
	if from.IsZero() {
		from = h.cal.AddDays(to, -30)
	}

	if from.After(to) {
		badRequest(c, "from cannot be after to")
		return
	}

	logs, err := h.svc.ListByHabitID(c.Request.Context(), c.Param("id"), userID, from, to)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	if logs == nil {
		logs = []*domain.HabitLog{}
	}
	c.JSON(http.StatusOK, logs)
}

// Get godoc
// @Summary      Get a log
// @Tags         logs
// @Produce      json
// @Param        id path string true "Log ID"
// @Success      200 {object} domain.HabitLog
// @Failure      403 {object} map[string]string
// @Security     BearerAuth
// @Router       /logs/{id} [get]
func (h *LogHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	log, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, log)
}

// SetCount godoc
// @Summary      Overwrite the counter of a log
// @Tags         logs
// @Accept       json
// @Produce      json
// @Param        id   path string true "Log ID"
// @Param        body body setCountRequest true "New count and last seen version"
// @Success      200 {object} services.LogResult
// @Failure      409 {object} map[string]string
// @Security     BearerAuth
// @Router       /logs/{id} [put]
func (h *LogHandler) SetCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req setCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.svc.SetCount(c.Request.Context(), services.SetCountInput{
		ID:      c.Param("id"),
		UserID:  userID,
		Count:   *req.Count,
		Version: req.Version,
	})
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Sync godoc
// @Summary      Log changes since a cursor
// @Tags         sync
// @Produce      json
// @Param        since query string false "RFC3339 timestamp"
// @Param        last_sync query string false "Alias of since"
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /logs/sync [get]
func (h *LogHandler) Sync(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	since, ok := parseSyncCursor(c)
	if !ok {
		return
	}

	serverTime := time.Now().UTC()

	deltas, err := h.svc.GetDelta(c.Request.Context(), userID, since)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	if deltas == nil {
		deltas = []*domain.HabitLog{}
	}
	c.JSON(http.StatusOK, gin.H{
		"changes":   deltas,
		"timestamp": serverTime,
	})
}
