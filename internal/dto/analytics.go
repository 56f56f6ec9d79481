package dto

import "github.com/openclass/openclass-api/internal/models"

// ProgressTrendPoint is one calendar-month bucket of the trend chart.
// Points arrive ordered chronologically; the label is display-only.
type ProgressTrendPoint struct {
	Label        string  `json:"label"`
	AverageGrade float64 `json:"average_grade"`
}

// CompletionRateEntry is the shaped per-assignment completion row.
type CompletionRateEntry struct {
	AssignmentID   string  `json:"assignment_id"`
	Title          string  `json:"title"`
	CourseTitle    string  `json:"course_title"`
	CompletionRate float64 `json:"completion_rate"`
}

// GradeDistributionBin is one fixed bucket, zero-filled when empty.
type GradeDistributionBin struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// OverviewResponse composes the dashboard landing payload.
type OverviewResponse struct {
	Summary          models.SummaryStats           `json:"summary"`
	AssignmentStatus models.AssignmentStatusCounts `json:"assignment_status"`
	RecentActivity   []models.ActivityEvent        `json:"recent_activity"`
}
