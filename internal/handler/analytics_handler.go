package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openclass/openclass-api/internal/middleware"
	"github.com/openclass/openclass-api/internal/service"
	"github.com/openclass/openclass-api/pkg/response"
)

// AnalyticsHandler exposes the aggregation read models.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	exports   *service.ExportService
}

// NewAnalyticsHandler constructs an analytics handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService, exports *service.ExportService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, exports: exports}
}

// Overview godoc
// @Summary Dashboard overview: summary, assignment status and activity
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=dto.OverviewResponse}
// @Router /analytics/overview [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	overview, err := h.analytics.Overview(c.Request.Context(), scopeFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil, middleware.ExtractMeta(c))
}

// Summary godoc
// @Summary Headline counters for the caller's scope
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=models.SummaryStats}
// @Router /analytics/summary [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	stats, hit, err := h.analytics.SummaryStats(c.Request.Context(), scopeFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// StudentsPerCourse returns enrollment counts per course.
func (h *AnalyticsHandler) StudentsPerCourse(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	counts, hit, err := h.analytics.StudentsPerCourse(c.Request.Context(), scopeFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, counts, nil, middleware.ExtractMeta(c))
}

// AssignmentStatus returns completed versus pending submission counts.
func (h *AnalyticsHandler) AssignmentStatus(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	counts, hit, err := h.analytics.AssignmentStatus(c.Request.Context(), scopeFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, counts, nil, middleware.ExtractMeta(c))
}

// CoursePerformance returns the top courses by mean grade.
func (h *AnalyticsHandler) CoursePerformance(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	rows, hit, err := h.analytics.CoursePerformance(c.Request.Context(), scopeFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, rows, nil, middleware.ExtractMeta(c))
}

// ProgressTrend returns the monthly mean grade series.
func (h *AnalyticsHandler) ProgressTrend(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	points, hit, err := h.analytics.ProgressTrend(c.Request.Context(), scopeFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, points, nil, middleware.ExtractMeta(c))
}

// CompletionRates returns completion percentages for recent assignments.
func (h *AnalyticsHandler) CompletionRates(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	entries, hit, err := h.analytics.CompletionRates(c.Request.Context(), scopeFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, entries, nil, middleware.ExtractMeta(c))
}

// GradeDistribution returns letter-bucket counts, empty buckets included.
func (h *AnalyticsHandler) GradeDistribution(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	bins, hit, err := h.analytics.GradeDistribution(c.Request.Context(), scopeFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, bins, nil, middleware.ExtractMeta(c))
}

// RecentActivity godoc
// @Summary Unified course and enrollment activity feed
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param limit query int false "maximum events" default(10)
// @Success 200 {object} response.Envelope{data=[]models.ActivityEvent}
// @Router /analytics/activity [get]
func (h *AnalyticsHandler) RecentActivity(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, hit, err := h.analytics.RecentActivity(c.Request.Context(), scopeFromClaims(claims), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, events, nil, middleware.ExtractMeta(c))
}

// ExportGradeReport streams the grade report in csv or pdf form.
func (h *AnalyticsHandler) ExportGradeReport(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.GradeReport(c.Request.Context(), scopeFromClaims(claims), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// SystemMetrics returns the instrumentation snapshot. Admin only.
func (h *AnalyticsHandler) SystemMetrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(), nil)
}
