package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/Adnan2208/EcoTech/models"
)

// RoboflowClient calls the hosted waste-detection model. The request is a
// base64-encoded image POSTed as the body; thresholds ride in the query
// string. No retries: a failed call fails once and is reported.
type RoboflowClient struct {
	APIKey  string
	ModelID string
	Version string
	BaseURL string

	// Lowered from the hosted default of 40 to catch more detections.
	Confidence int
	Overlap    int

	HTTPClient *http.Client
}

// NewRoboflowClient builds a client from the environment. The API key may
// be empty; Detect reports the missing configuration when called.
func NewRoboflowClient() *RoboflowClient {
	return &RoboflowClient{
		APIKey:     strings.TrimSpace(os.Getenv("ROBOFLOW_API_KEY")),
		ModelID:    getenvDefault("ROBOFLOW_MODEL_ID", "waste-hsysm"),
		Version:    getenvDefault("ROBOFLOW_VERSION", "4"),
		BaseURL:    getenvDefault("ROBOFLOW_API_URL", "https://serverless.roboflow.com"),
		Confidence: 25,
		Overlap:    30,
		HTTPClient: http.DefaultClient,
	}
}

type roboflowPrediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

type roboflowResponse struct {
	Predictions []roboflowPrediction `json:"predictions"`
	Image       struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"image"`
}

// Detect sends one base64-encoded image and returns the reshaped results.
func (c *RoboflowClient) Detect(ctx context.Context, base64Image string) (*ImageAnalysis, error) {
	if c.APIKey == "" {
		return nil, errors.New("ROBOFLOW_API_KEY not configured")
	}

	q := url.Values{}
	q.Set("api_key", c.APIKey)
	q.Set("confidence", fmt.Sprint(c.Confidence))
	q.Set("overlap", fmt.Sprint(c.Overlap))
	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.BaseURL, c.ModelID, c.Version, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(base64Image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roboflow request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		switch resp.StatusCode {
		case http.StatusForbidden:
			return nil, fmt.Errorf("roboflow API access denied for model %s/%s: check the API key", c.ModelID, c.Version)
		case http.StatusNotFound:
			return nil, fmt.Errorf("roboflow model not found: %s/%s", c.ModelID, c.Version)
		default:
			return nil, fmt.Errorf("roboflow API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
	}

	var parsed roboflowResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("roboflow response: %w", err)
	}
	return formatAnalysis(parsed), nil
}

// AnalysisSummary condenses one image's detections.
type AnalysisSummary struct {
	ClassCounts   map[string]int `json:"classCounts"`
	AvgConfidence float64        `json:"avgConfidence"`
	DominantClass string         `json:"dominantClass,omitempty"`
}

// ImageAnalysis is the per-image detection result. In a batch run Error
// and ImageIndex mark which images failed and where.
type ImageAnalysis struct {
	Success        bool               `json:"success"`
	Error          string             `json:"error,omitempty"`
	ImageIndex     int                `json:"imageIndex"`
	ImageWidth     int                `json:"imageWidth,omitempty"`
	ImageHeight    int                `json:"imageHeight,omitempty"`
	DetectionCount int                `json:"detectionCount"`
	Detections     []models.Detection `json:"detections"`
	Summary        *AnalysisSummary   `json:"summary,omitempty"`
}

// formatAnalysis reshapes the raw API response: confidence rounded to two
// decimals, per-class counts, average confidence, dominant class.
func formatAnalysis(resp roboflowResponse) *ImageAnalysis {
	detections := make([]models.Detection, 0, len(resp.Predictions))
	classCounts := map[string]int{}
	sum := 0.0

	for _, p := range resp.Predictions {
		conf := round2(p.Confidence)
		detections = append(detections, models.Detection{
			Class:      p.Class,
			Confidence: conf,
			BBox:       models.BoundingBox{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height},
		})
		classCounts[p.Class]++
		sum += conf
	}

	avg := 0.0
	if len(detections) > 0 {
		avg = round2(sum / float64(len(detections)))
	}

	dominant := ""
	best := 0
	for class, n := range classCounts {
		if n > best || (n == best && (dominant == "" || class < dominant)) {
			dominant, best = class, n
		}
	}

	return &ImageAnalysis{
		Success:        true,
		ImageWidth:     resp.Image.Width,
		ImageHeight:    resp.Image.Height,
		DetectionCount: len(detections),
		Detections:     detections,
		Summary: &AnalysisSummary{
			ClassCounts:   classCounts,
			AvgConfidence: avg,
			DominantClass: dominant,
		},
	}
}

// categoryKeywords maps detected class names to report categories by
// case-insensitive substring match. Order matters: first match wins, so
// this is a slice, not a map.
var categoryKeywords = []struct {
	keyword  string
	category models.Category
}{
	{"plastic", models.CategoryPlastic},
	{"plastic_bottle", models.CategoryPlastic},
	{"bottle", models.CategoryPlastic},
	{"plastic_bag", models.CategoryPlastic},
	{"container", models.CategoryPlastic},

	{"organic", models.CategoryOrganic},
	{"food", models.CategoryOrganic},
	{"food_waste", models.CategoryOrganic},
	{"biodegradable", models.CategoryOrganic},

	{"hazardous", models.CategoryHazardous},
	{"battery", models.CategoryHazardous},
	{"chemical", models.CategoryHazardous},
	{"medical", models.CategoryHazardous},

	{"electronic", models.CategoryElectronic},
	{"e-waste", models.CategoryElectronic},
	{"electronics", models.CategoryElectronic},

	{"construction", models.CategoryConstruction},
	{"debris", models.CategoryConstruction},
	{"rubble", models.CategoryConstruction},

	{"metal", models.CategoryOther},
	{"can", models.CategoryOther},
	{"glass", models.CategoryOther},
	{"paper", models.CategoryOther},
	{"cardboard", models.CategoryOther},
}

// MapToCategory translates a detected class name to a report category,
// defaulting to other.
func MapToCategory(class string) models.Category {
	lower := strings.ToLower(class)
	for _, kw := range categoryKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.category
		}
	}
	return models.CategoryOther
}

func getenvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
