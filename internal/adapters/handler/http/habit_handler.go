package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/core/services"
)

type HabitHandler struct {
	svc    *services.HabitService
	cal    *domain.Calendar
	logger *zap.Logger
}

func NewHabitHandler(svc *services.HabitService, cal *domain.Calendar, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{
		svc:    svc,
		cal:    cal,
		logger: logger,
	}
}

type createHabitRequest struct {
	ID        string `json:"id" binding:"omitempty,uuid"`
	Name      string `json:"name" binding:"required"`
	Color     string `json:"color"`
	Type      string `json:"type"`
	Period    string `json:"period"`
	Target    *int   `json:"target"`
	StartDate string `json:"start_date"`
}

type updateHabitRequest struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	Type      string `json:"type"`
	Period    string `json:"period"`
	Target    *int   `json:"target"`
	StartDate string `json:"start_date"`
	Version   int    `json:"version"`
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.GET("/sync", h.Sync)
		habits.GET("/:id", h.Get)
		habits.PUT("/:id", h.Update)
		habits.DELETE("/:id", h.Delete)
	}
}

// parseStartDate accepts YYYY-MM-DD in the server calendar or RFC3339.
func (h *HabitHandler) parseStartDate(raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	if d, err := h.cal.ParseDay(raw); err == nil {
		return &d, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	return nil, false
}

// Create godoc
// @Summary      Create a habit
// @Tags         habits
// @Accept       json
// @Produce      json
// @Param        habit body createHabitRequest true "Habit definition"
// @Success      201 {object} domain.Habit
// @Failure      400 {object} map[string]string
// @Security     BearerAuth
// @Router       /habits [post]
func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	start, ok := h.parseStartDate(req.StartDate)
	if !ok {
		badRequest(c, "invalid start_date, use YYYY-MM-DD")
		return
	}

	habit, err := h.svc.Create(c.Request.Context(), services.CreateHabitInput{
		ID:        req.ID,
		UserID:    userID,
		Name:      req.Name,
		Color:     req.Color,
		Type:      domain.HabitType(req.Type),
		Period:    domain.Period(req.Period),
		Target:    req.Target,
		StartDate: start,
	})
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, habit)
}

// List godoc
// @Summary      List habits
// @Tags         habits
// @Produce      json
// @Success      200 {array} domain.Habit
// @Security     BearerAuth
// @Router       /habits [get]
func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.svc.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	if list == nil {
		list = []*domain.Habit{}
	}
	c.JSON(http.StatusOK, list)
}

// Get godoc
// @Summary      Get a habit
// @Tags         habits
// @Produce      json
// @Param        id path string true "Habit ID"
// @Success      200 {object} domain.Habit
// @Failure      404 {object} map[string]string
// @Security     BearerAuth
// @Router       /habits/{id} [get]
func (h *HabitHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	habit, err := h.svc.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// Sync godoc
// @Summary      Habit changes since last_sync
// @Tags         sync
// @Produce      json
// @Param        last_sync query string false "RFC3339 timestamp"
// @Param        since query string false "Alias of last_sync"
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /habits/sync [get]
func (h *HabitHandler) Sync(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	lastSync, ok := parseSyncCursor(c)
	if !ok {
		return
	}

	serverTime := time.Now().UTC()

	deltas, err := h.svc.GetDelta(c.Request.Context(), userID, lastSync)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	if deltas == nil {
		deltas = []*domain.Habit{}
	}
	c.JSON(http.StatusOK, gin.H{
		"changes":   deltas,
		"timestamp": serverTime,
	})
}

// Update godoc
// @Summary      Update a habit
// @Tags         habits
// @Accept       json
// @Produce      json
// @Param        id path string true "Habit ID"
// @Param        habit body updateHabitRequest true "Fields to change"
// @Success      200 {object} domain.Habit
// @Failure      409 {object} map[string]string
// @Security     BearerAuth
// @Router       /habits/{id} [put]
func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	start, ok := h.parseStartDate(req.StartDate)
	if !ok {
		badRequest(c, "invalid start_date, use YYYY-MM-DD")
		return
	}

	habit, err := h.svc.Update(c.Request.Context(), services.UpdateHabitInput{
		ID:        c.Param("id"),
		UserID:    userID,
		Name:      req.Name,
		Color:     req.Color,
		Type:      domain.HabitType(req.Type),
		Period:    domain.Period(req.Period),
		Target:    req.Target,
		StartDate: start,
		Version:   req.Version,
	})
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// Delete godoc
// @Summary      Delete a habit and its logs
// @Tags         habits
// @Param        id path string true "Habit ID"
// @Success      204
// @Security     BearerAuth
// @Router       /habits/{id} [delete]
func (h *HabitHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// syncCursorParams are the query names a sync cursor is read from, in order.
// Habit clients send last_sync, log clients since; both routes accept both.
var syncCursorParams = []string{"since", "last_sync"}

// parseSyncCursor reads the RFC3339 sync cursor. No cursor means a full sync.
func parseSyncCursor(c *gin.Context) (time.Time, bool) {
	for _, name := range syncCursorParams {
		raw := c.Query(name)
		if raw == "" {
			continue
		}

		cursor, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "invalid "+name+" format, use RFC3339")
			return time.Time{}, false
		}
		return cursor, true
	}
	return time.Time{}, true
}
