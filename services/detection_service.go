package services

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Adnan2208/EcoTech/database"
	"github.com/Adnan2208/EcoTech/models"
)

// DetectionService runs the external waste-detection model against report
// images and persists the annotations. Detection never changes a report's
// status or category; the dominant class is only surfaced as a suggestion.
type DetectionService struct {
	db        *database.DB
	client    *RoboflowClient
	events    Broadcaster
	uploadDir string
}

func NewDetectionService(db *database.DB, client *RoboflowClient, events Broadcaster, uploadDir string) *DetectionService {
	return &DetectionService{db: db, client: client, events: events, uploadDir: uploadDir}
}

// BatchAnalysis aggregates a multi-image run. Success means at least one
// image was analyzed; per-image outcomes live in ImageResults.
type BatchAnalysis struct {
	Success         bool               `json:"success"`
	TotalImages     int                `json:"totalImages"`
	AnalyzedImages  int                `json:"analyzedImages"`
	TotalDetections int                `json:"totalDetections"`
	Detections      []models.Detection `json:"detections"`
	ImageResults    []ImageAnalysis    `json:"imageResults"`
}

// SingleAnalysis is the ad-hoc analyze response: detection results plus a
// category suggestion for the client form.
type SingleAnalysis struct {
	ImageAnalysis
	SuggestedCategory models.Category `json:"suggestedCategory"`
}

// DetectionResults is the stored-annotation view for one report.
type DetectionResults struct {
	Images           []models.Image           `json:"images"`
	DetectionResults []models.Detection       `json:"detectionResults"`
	DetectionSummary *models.DetectionSummary `json:"detectionSummary"`
}

type ClassCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DetectionStats is the cross-report rollup of stored annotations.
type DetectionStats struct {
	TotalReportsAnalyzed  int          `json:"totalReportsAnalyzed"`
	TotalDetections       int          `json:"totalDetections"`
	AvgConfidence         float64      `json:"avgConfidence"`
	WasteTypeDistribution []ClassCount `json:"wasteTypeDistribution"`
}

// AnalyzeImage runs detection on one uploaded image without touching any
// report.
func (s *DetectionService) AnalyzeImage(ctx context.Context, image []byte) (*SingleAnalysis, error) {
	encoded := base64.StdEncoding.EncodeToString(image)
	result, err := s.client.Detect(ctx, encoded)
	if err != nil {
		return nil, err
	}

	suggested := models.CategoryOther
	if result.Summary != nil && result.Summary.DominantClass != "" {
		suggested = MapToCategory(result.Summary.DominantClass)
	}
	return &SingleAnalysis{ImageAnalysis: *result, SuggestedCategory: suggested}, nil
}

// AnalyzeReport runs detection over every stored image of a report, one at
// a time. A failure on one image is recorded at its index and the loop
// continues. The aggregate is persisted on the report and broadcast.
func (s *DetectionService) AnalyzeReport(ctx context.Context, id string) (*models.Report, *BatchAnalysis, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil, ErrReportNotFound
	}

	var report models.Report
	if err := s.db.Reports().FindOne(ctx, bson.M{"_id": oid}).Decode(&report); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil, ErrReportNotFound
		}
		return nil, nil, err
	}
	if len(report.Images) == 0 {
		return nil, nil, ValidationError{Err: errNoImages}
	}

	results := make([]ImageAnalysis, 0, len(report.Images))
	for i, img := range report.Images {
		results = append(results, s.analyzeStoredImage(ctx, i, img))
	}
	batch := aggregateBatch(results, len(report.Images))

	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"detectionResults": batch.Detections,
		"detectionSummary": models.DetectionSummary{
			TotalDetections: batch.TotalDetections,
			AnalyzedAt:      now,
			Success:         batch.Success,
		},
		"updatedAt": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Report
	if err := s.db.Reports().FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&updated); err != nil {
		return nil, nil, err
	}
	if err := populateReports(ctx, s.db.Users(), []*models.Report{&updated}); err != nil {
		return nil, nil, err
	}

	s.events.Broadcast(EventDetectionComplete, bson.M{
		"reportId":         id,
		"detectionResults": batch,
	})
	return &updated, batch, nil
}

func (s *DetectionService) analyzeStoredImage(ctx context.Context, index int, img models.Image) ImageAnalysis {
	data, err := os.ReadFile(filepath.Join(s.uploadDir, img.PublicID))
	if err != nil {
		return ImageAnalysis{Success: false, Error: err.Error(), ImageIndex: index, Detections: []models.Detection{}}
	}

	result, err := s.client.Detect(ctx, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return ImageAnalysis{Success: false, Error: err.Error(), ImageIndex: index, Detections: []models.Detection{}}
	}

	result.ImageIndex = index
	for i := range result.Detections {
		result.Detections[i].ImageIndex = index
	}
	return *result
}

// aggregateBatch folds per-image results into the batch view.
func aggregateBatch(results []ImageAnalysis, totalImages int) *BatchAnalysis {
	all := []models.Detection{}
	analyzed := 0
	for _, r := range results {
		all = append(all, r.Detections...)
		if r.Success {
			analyzed++
		}
	}
	return &BatchAnalysis{
		Success:         analyzed > 0,
		TotalImages:     totalImages,
		AnalyzedImages:  analyzed,
		TotalDetections: len(all),
		Detections:      all,
		ImageResults:    results,
	}
}

// Results returns the stored annotations for a report.
func (s *DetectionService) Results(ctx context.Context, id string) (*DetectionResults, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrReportNotFound
	}

	opts := options.FindOne().SetProjection(bson.M{
		"images": 1, "detectionResults": 1, "detectionSummary": 1,
	})

	var report models.Report
	if err := s.db.Reports().FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&report); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	out := &DetectionResults{
		Images:           report.Images,
		DetectionResults: report.DetectionResults,
		DetectionSummary: report.DetectionSummary,
	}
	if out.Images == nil {
		out.Images = []models.Image{}
	}
	if out.DetectionResults == nil {
		out.DetectionResults = []models.Detection{}
	}
	return out, nil
}

// Stats rolls up stored annotations across all analyzed reports.
func (s *DetectionService) Stats(ctx context.Context) (*DetectionStats, error) {
	filter := bson.M{"detectionResults.0": bson.M{"$exists": true}}
	opts := options.Find().SetProjection(bson.M{
		"detectionResults": 1, "detectionSummary": 1, "createdAt": 1,
	})

	cur, err := s.db.Reports().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var analyzed []models.Report
	if err := cur.All(ctx, &analyzed); err != nil {
		return nil, err
	}
	return computeDetectionStats(analyzed), nil
}

// computeDetectionStats counts detections per class across reports, most
// frequent first.
func computeDetectionStats(reports []models.Report) *DetectionStats {
	classCounts := map[string]int{}
	total := 0
	confidenceSum := 0.0

	for _, r := range reports {
		for _, d := range r.DetectionResults {
			classCounts[d.Class]++
			total++
			confidenceSum += d.Confidence
		}
	}

	distribution := make([]ClassCount, 0, len(classCounts))
	for name, count := range classCounts {
		distribution = append(distribution, ClassCount{Name: name, Count: count})
	}
	sort.Slice(distribution, func(i, j int) bool {
		if distribution[i].Count != distribution[j].Count {
			return distribution[i].Count > distribution[j].Count
		}
		return distribution[i].Name < distribution[j].Name
	})

	avg := 0.0
	if total > 0 {
		avg = round2(confidenceSum / float64(total))
	}

	return &DetectionStats{
		TotalReportsAnalyzed:  len(reports),
		TotalDetections:       total,
		AvgConfidence:         avg,
		WasteTypeDistribution: distribution,
	}
}
