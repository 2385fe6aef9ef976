package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrendPoint is one day of the dashboard creation trend.
type TrendPoint struct {
	Date  string `bson:"_id" json:"date"`
	Count int    `bson:"count" json:"count"`
}

// DashboardStats is the full payload of GET /api/dashboard/stats.
// Status, category and severity maps are zero-filled: a value with no
// matching reports appears as 0, never omitted.
type DashboardStats struct {
	TotalReports       int64          `json:"totalReports"`
	StatusStats        map[string]int `json:"statusStats"`
	CategoryStats      map[string]int `json:"categoryStats"`
	SeverityStats      map[string]int `json:"severityStats"`
	ResolutionRate     float64        `json:"resolutionRate"`
	AvgResolutionHours float64        `json:"avgResolutionHours"`
	DailyTrend         []TrendPoint   `json:"dailyTrend"`
	RecentReports      []Report       `json:"recentReports"`
}

// MapReport is the field-limited projection served to map clients.
type MapReport struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Category  Category           `bson:"category" json:"category"`
	Status    Status             `bson:"status" json:"status"`
	Severity  Severity           `bson:"severity" json:"severity"`
	Location  GeoPoint           `bson:"location" json:"location"`
	Address   string             `bson:"address" json:"address"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Page is the standard offset-paginated list response body.
type Page struct {
	Count       int      `json:"count"`
	Total       int64    `json:"total"`
	TotalPages  int64    `json:"totalPages"`
	CurrentPage int      `json:"currentPage"`
	Data        []Report `json:"data"`
}
