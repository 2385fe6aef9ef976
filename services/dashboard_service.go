package services

import (
	"context"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Adnan2208/EcoTech/database"
	"github.com/Adnan2208/EcoTech/models"
)

// mapDataCap bounds the map payload instead of paginating it; map clients
// render all visible points at once.
const mapDataCap = 500

// DashboardService serves the read-only rollups and the map view. Every
// figure is computed fresh from the collection on each call.
type DashboardService struct {
	db *database.DB
}

func NewDashboardService(db *database.DB) *DashboardService {
	return &DashboardService{db: db}
}

type groupCount struct {
	ID    string `bson:"_id"`
	Count int    `bson:"count"`
}

// Stats computes the whole dashboard payload: grouped counts, the 7-day
// creation trend, resolution rate and duration, and the 5 newest reports.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	reports := s.db.Reports()

	statusCounts, err := s.groupBy(ctx, "$status")
	if err != nil {
		return nil, err
	}
	categoryCounts, err := s.groupBy(ctx, "$category")
	if err != nil {
		return nil, err
	}
	severityCounts, err := s.groupBy(ctx, "$severity")
	if err != nil {
		return nil, err
	}

	trend, err := s.dailyTrend(ctx, time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}

	total, err := reports.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	resolved, err := reports.CountDocuments(ctx, bson.M{"status": models.StatusResolved})
	if err != nil {
		return nil, err
	}

	avgHours, err := s.avgResolutionHours(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.recentReports(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &models.DashboardStats{
		TotalReports:       total,
		StatusStats:        statusStats(statusCounts),
		CategoryStats:      categoryStats(categoryCounts),
		SeverityStats:      severityStats(severityCounts),
		ResolutionRate:     resolutionRate(resolved, total),
		AvgResolutionHours: avgHours,
		DailyTrend:         trend,
		RecentReports:      recent,
	}, nil
}

// MapData returns up to mapDataCap reports projected down to the fields a
// map widget renders, optionally filtered by status.
func (s *DashboardService) MapData(ctx context.Context, status string) ([]models.MapReport, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().
		SetProjection(bson.M{
			"title": 1, "category": 1, "status": 1, "severity": 1,
			"location": 1, "address": 1, "createdAt": 1,
		}).
		SetLimit(mapDataCap)

	cur, err := s.db.Reports().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	points := []models.MapReport{}
	if err := cur.All(ctx, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *DashboardService) groupBy(ctx context.Context, field string) ([]groupCount, error) {
	pipeline := []bson.M{
		{"$group": bson.M{"_id": field, "count": bson.M{"$sum": 1}}},
	}
	cur, err := s.db.Reports().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var counts []groupCount
	if err := cur.All(ctx, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *DashboardService) dailyTrend(ctx context.Context, since time.Time) ([]models.TrendPoint, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"createdAt": bson.M{"$gte": since}}},
		{"$group": bson.M{
			"_id": bson.M{
				"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"},
			},
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"_id": 1}},
	}
	cur, err := s.db.Reports().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	trend := []models.TrendPoint{}
	if err := cur.All(ctx, &trend); err != nil {
		return nil, err
	}
	return trend, nil
}

func (s *DashboardService) avgResolutionHours(ctx context.Context) (float64, error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"status":     models.StatusResolved,
			"resolvedAt": bson.M{"$ne": nil},
		}},
		{"$project": bson.M{
			"resolutionTime": bson.M{"$subtract": bson.A{"$resolvedAt", "$createdAt"}},
		}},
		{"$group": bson.M{"_id": nil, "avgTime": bson.M{"$avg": "$resolutionTime"}}},
	}
	cur, err := s.db.Reports().Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var out []struct {
		AvgTime float64 `bson:"avgTime"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return millisToHours(out[0].AvgTime), nil
}

func (s *DashboardService) recentReports(ctx context.Context, n int64) ([]models.Report, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(n)

	cur, err := s.db.Reports().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	recent := []models.Report{}
	if err := cur.All(ctx, &recent); err != nil {
		return nil, err
	}
	if err := populateReportSlice(ctx, s.db.Users(), recent); err != nil {
		return nil, err
	}
	return recent, nil
}

// --- formatting ---

// statusStats zero-fills every status so empty ones show up as 0.
func statusStats(counts []groupCount) map[string]int {
	out := map[string]int{}
	for _, st := range models.Statuses {
		out[string(st)] = 0
	}
	for _, c := range counts {
		out[c.ID] = c.Count
	}
	return out
}

func categoryStats(counts []groupCount) map[string]int {
	out := map[string]int{}
	for _, cat := range models.Categories {
		out[string(cat)] = 0
	}
	for _, c := range counts {
		out[c.ID] = c.Count
	}
	return out
}

func severityStats(counts []groupCount) map[string]int {
	out := map[string]int{}
	for _, sev := range models.Severities {
		out[string(sev)] = 0
	}
	for _, c := range counts {
		out[c.ID] = c.Count
	}
	return out
}

// resolutionRate is resolved/total as a percentage, 0 for an empty
// collection, rounded to two decimals.
func resolutionRate(resolved, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(resolved) / float64(total) * 100)
}

func millisToHours(ms float64) float64 {
	return round2(ms / (1000 * 60 * 60))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
