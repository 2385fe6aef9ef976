package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category classifies the kind of waste a report is about.
type Category string

const (
	CategoryPlastic      Category = "plastic"
	CategoryOrganic      Category = "organic"
	CategoryHazardous    Category = "hazardous"
	CategoryElectronic   Category = "electronic"
	CategoryConstruction Category = "construction"
	CategoryOther        Category = "other"
)

// Categories lists every valid category, in display order.
var Categories = []Category{
	CategoryPlastic,
	CategoryOrganic,
	CategoryHazardous,
	CategoryElectronic,
	CategoryConstruction,
	CategoryOther,
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved}

// Image is a stored upload. PublicID is the generated filename and also
// the deletion key.
type Image struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"publicId" json:"publicId"`
}

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude],
// with longitude first per GeoJSON.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// BoundingBox is a center-coordinate box as returned by the detection API.
type BoundingBox struct {
	X      float64 `bson:"x" json:"x"`
	Y      float64 `bson:"y" json:"y"`
	Width  float64 `bson:"width" json:"width"`
	Height float64 `bson:"height" json:"height"`
}

// Detection is one annotation attached to a report image by the
// external detection service.
type Detection struct {
	Class      string      `bson:"class" json:"class"`
	Confidence float64     `bson:"confidence" json:"confidence"`
	BBox       BoundingBox `bson:"bbox" json:"bbox"`
	ImageIndex int         `bson:"imageIndex" json:"imageIndex"`
}

type DetectionSummary struct {
	TotalDetections int       `bson:"totalDetections" json:"totalDetections"`
	AnalyzedAt      time.Time `bson:"analyzedAt" json:"analyzedAt"`
	Success         bool      `bson:"success" json:"success"`
}

const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 1000
)

type Report struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Images      []Image            `bson:"images" json:"images"`
	Location    GeoPoint           `bson:"location" json:"location"`
	Address     string             `bson:"address" json:"address"`
	Category    Category           `bson:"category" json:"category"`
	Severity    Severity           `bson:"severity" json:"severity"`
	Status      Status             `bson:"status" json:"status"`

	// Resolution fields are stamped when status transitions to resolved.
	// They are retained as a history record if the report is later reopened.
	ResolvedAt       *time.Time          `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	ResolvedBy       *primitive.ObjectID `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ResolutionNotes  string              `bson:"resolutionNotes" json:"resolutionNotes"`
	ResolutionImages []Image             `bson:"resolutionImages,omitempty" json:"resolutionImages,omitempty"`

	DetectionResults []Detection       `bson:"detectionResults,omitempty" json:"detectionResults,omitempty"`
	DetectionSummary *DetectionSummary `bson:"detectionSummary,omitempty" json:"detectionSummary,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Populated identity, filled on reads; never persisted.
	Reporter *UserInfo `bson:"-" json:"reporter,omitempty"`
	Resolver *UserInfo `bson:"-" json:"resolver,omitempty"`
}

func ValidCategory(c Category) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

func ValidSeverity(s Severity) bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}

func ValidStatus(s Status) bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Validate enforces the document constraints before insert. Defaults for
// category, severity and status are applied by the caller, not here.
func (r *Report) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("please provide a title")
	}
	if utf8.RuneCountInString(r.Title) > MaxTitleLen {
		return fmt.Errorf("title cannot be more than %d characters", MaxTitleLen)
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.New("please provide a description")
	}
	if utf8.RuneCountInString(r.Description) > MaxDescriptionLen {
		return fmt.Errorf("description cannot be more than %d characters", MaxDescriptionLen)
	}
	if r.Location.Type != "Point" || len(r.Location.Coordinates) != 2 {
		return errors.New("please provide location coordinates")
	}
	if !ValidCategory(r.Category) {
		return fmt.Errorf("invalid category %q", r.Category)
	}
	if !ValidSeverity(r.Severity) {
		return fmt.Errorf("invalid severity %q", r.Severity)
	}
	if !ValidStatus(r.Status) {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	return nil
}
