package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// IssueType enum
type IssueType string

const (
	Pothole      IssueType = "Pothole"
	Manhole      IssueType = "Manhole"
	RoadCrack    IssueType = "Road Crack"
	WaterLeakage IssueType = "Water Leakage"
)

// SeverityLevel enum
type SeverityLevel string

const (
	Mild     SeverityLevel = "Mild"
	Moderate SeverityLevel = "Moderate"
	Severe   SeverityLevel = "Severe"
)

// ReportStatus enum
type ReportStatus string

const (
	StatusOpen       ReportStatus = "open"
	StatusInProgress ReportStatus = "in progress"
	StatusResolved   ReportStatus = "resolved"
	StatusRejected   ReportStatus = "rejected"
)

// ValidIssueType reports whether s is a known issue type.
func ValidIssueType(s string) bool {
	switch IssueType(s) {
	case Pothole, Manhole, RoadCrack, WaterLeakage:
		return true
	}
	return false
}

// ValidSeverityLevel reports whether s is a known severity level.
func ValidSeverityLevel(s string) bool {
	switch SeverityLevel(s) {
	case Mild, Moderate, Severe:
		return true
	}
	return false
}

// ValidReportStatus reports whether s is a known report status.
func ValidReportStatus(s string) bool {
	switch ReportStatus(s) {
	case StatusOpen, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// GeoPoint is a GeoJSON point. Coordinates are always stored as
// [longitude, latitude]; the stores package is the only layer that builds or
// reads this slice, callers pass named lon/lat values.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from named coordinates.
func NewGeoPoint(longitude, latitude float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{longitude, latitude}}
}

func (p GeoPoint) Longitude() float64 {
	if len(p.Coordinates) != 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p GeoPoint) Latitude() float64 {
	if len(p.Coordinates) != 2 {
		return 0
	}
	return p.Coordinates[1]
}

// ValidCoordinates checks longitude/latitude ranges.
func ValidCoordinates(longitude, latitude float64) bool {
	return longitude >= -180 && longitude <= 180 && latitude >= -90 && latitude <= 90
}

// Location is a street address plus its geocoded point.
type Location struct {
	Address     string   `bson:"address" json:"address"`
	Coordinates GeoPoint `bson:"coordinates" json:"coordinates"`
}

// Report represents a single citizen-submitted road-hazard observation.
type Report struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Issue         IssueType            `bson:"issue" json:"issue"`
	SeverityLevel SeverityLevel        `bson:"severityLevel" json:"severityLevel"`
	Location      Location             `bson:"location" json:"location"`
	Description   string               `bson:"description,omitempty" json:"description,omitempty"`
	User          primitive.ObjectID   `bson:"user" json:"user"`
	Status        ReportStatus         `bson:"status" json:"status"`
	Images        []string             `bson:"images,omitempty" json:"images,omitempty"`
	Videos        []string             `bson:"videos,omitempty" json:"videos,omitempty"`
	VerifiedBy    []primitive.ObjectID `bson:"verifiedBy,omitempty" json:"verifiedBy,omitempty"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// EnsureReportIndexes creates the 2dsphere index used by proximity queries
// plus the status and user secondary indexes.
func EnsureReportIndexes(collection *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "location.coordinates", Value: "2dsphere"},
				{Key: "issue", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}}},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
