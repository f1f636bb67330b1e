package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/core/services"
)

type AnalyticsHandler struct {
	svc    *services.AnalyticsService
	cal    *domain.Calendar
	logger *zap.Logger
	now    func() time.Time
}

func NewAnalyticsHandler(svc *services.AnalyticsService, cal *domain.Calendar, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		svc:    svc,
		cal:    cal,
		logger: logger,
		now:    time.Now,
	}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/today", h.Today)
	router.GET("/palette", h.Palette)

	analytics := router.Group("/analytics")
	{
		analytics.GET("/weekly", h.Weekly)
		analytics.GET("/monthly", h.Monthly)
	}

	habit := router.Group("/habits/:id/analytics")
	{
		habit.GET("/monthly", h.HabitMonthly)
		habit.GET("/yearly", h.HabitYearly)
		habit.GET("/day", h.HabitDay)
	}
}

func (h *AnalyticsHandler) day(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return h.cal.Today(h.now()), true
	}
	d, err := h.cal.ParseDay(raw)
	if err != nil {
		badRequest(c, "invalid date format, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func (h *AnalyticsHandler) month(c *gin.Context) (int, time.Month, bool) {
	raw := c.Query("month")
	if raw == "" {
		today := h.cal.Today(h.now())
		return today.Year(), today.Month(), true
	}
	year, month, err := domain.ParseMonth(raw)
	if err != nil {
		badRequest(c, "invalid month format, expected YYYY-MM")
		return 0, 0, false
	}
	return year, month, true
}

// Today godoc
// @Summary      Every habit with its progress in the current period
// @Tags         analytics
// @Produce      json
// @Success      200 {array} domain.HabitProgress
// @Security     BearerAuth
// @Router       /today [get]
func (h *AnalyticsHandler) Today(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	items, err := h.svc.Today(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":   h.cal.Format(h.cal.Today(h.now())),
		"habits": items,
	})
}

// Weekly godoc
// @Summary      Monday to Sunday grid of the week containing date
// @Tags         analytics
// @Produce      json
// @Param        date query string false "YYYY-MM-DD, defaults to today"
// @Success      200 {object} domain.WeeklyView
// @Security     BearerAuth
// @Router       /analytics/weekly [get]
func (h *AnalyticsHandler) Weekly(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	anchor, ok := h.day(c)
	if !ok {
		return
	}

	view, err := h.svc.Weekly(c.Request.Context(), userID, anchor)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Monthly godoc
// @Summary      Daily done/active ratio over a month
// @Tags         analytics
// @Produce      json
// @Param        month query string false "YYYY-MM, defaults to the current month"
// @Success      200 {object} domain.MonthlyView
// @Security     BearerAuth
// @Router       /analytics/monthly [get]
func (h *AnalyticsHandler) Monthly(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	year, month, ok := h.month(c)
	if !ok {
		return
	}

	view, err := h.svc.Monthly(c.Request.Context(), userID, year, month)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// HabitMonthly godoc
// @Summary      One habit over a month
// @Tags         analytics
// @Produce      json
// @Param        id    path  string true  "Habit ID"
// @Param        month query string false "YYYY-MM"
// @Success      200 {object} domain.HabitMonthView
// @Security     BearerAuth
// @Router       /habits/{id}/analytics/monthly [get]
func (h *AnalyticsHandler) HabitMonthly(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	year, month, ok := h.month(c)
	if !ok {
		return
	}

	view, err := h.svc.HabitMonthly(c.Request.Context(), c.Param("id"), userID, year, month)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// HabitYearly godoc
// @Summary      One habit over a year, as twelve mini months
// @Tags         analytics
// @Produce      json
// @Param        id   path  string true  "Habit ID"
// @Param        year query int    false "Defaults to the current year"
// @Success      200 {object} domain.HabitYearView
// @Security     BearerAuth
// @Router       /habits/{id}/analytics/yearly [get]
func (h *AnalyticsHandler) HabitYearly(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	year := h.cal.Today(h.now()).Year()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1970 || y > 9999 {
			badRequest(c, "invalid year")
			return
		}
		year = y
	}

	view, err := h.svc.HabitYearly(c.Request.Context(), c.Param("id"), userID, year)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// HabitDay godoc
// @Summary      One habit on one day
// @Tags         analytics
// @Produce      json
// @Param        id   path  string true  "Habit ID"
// @Param        date query string false "YYYY-MM-DD"
// @Success      200 {object} domain.HabitDayDetail
// @Security     BearerAuth
// @Router       /habits/{id}/analytics/day [get]
func (h *AnalyticsHandler) HabitDay(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	day, ok := h.day(c)
	if !ok {
		return
	}

	detail, err := h.svc.HabitDay(c.Request.Context(), c.Param("id"), userID, day)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// Palette godoc
// @Summary      Suggested habit colours
// @Tags         habits
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /palette [get]
func (h *AnalyticsHandler) Palette(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default": domain.DefaultColor,
		"colors":  domain.Palette,
	})
}
