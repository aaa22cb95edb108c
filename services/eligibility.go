package services

import (
	"context"
	"time"

	"roadwatch-be/models"
)

const (
	// DuplicateRadiusMeters is the proximity radius for duplicate detection.
	// Distinct from the much larger nearby-reports discovery radius.
	DuplicateRadiusMeters = 10.0

	// EligibilityWindowDays is how long an existing report blocks
	// near-duplicate submissions of the same issue type.
	EligibilityWindowDays = 30
)

// NearestReportFinder is the slice of the report store the eligibility
// engine needs: the most recent report of an issue type within a radius.
type NearestReportFinder interface {
	FindNearestByIssue(ctx context.Context, issue models.IssueType, longitude, latitude, maxDistanceMeters float64) (*models.Report, error)
}

// EligibilityResult describes whether a new report may be created, and the
// blocking report when one exists.
type EligibilityResult struct {
	Eligible            bool
	Existing            *models.Report
	DaysSinceLastReport int
	DaysLeft            int
	DistanceMeters      float64
}

// EligibilityEngine prevents duplicate reporting of the same physical issue
// in rapid succession. The check-then-insert pattern is not atomic: two
// near-simultaneous submissions for the same spot can both pass. That window
// is accepted; a store-level uniqueness constraint on an (issue, location
// bucket) key would close it if it ever matters.
type EligibilityEngine struct {
	finder       NearestReportFinder
	radiusMeters float64
	windowDays   int
	now          func() time.Time
}

func NewEligibilityEngine(finder NearestReportFinder) *EligibilityEngine {
	return &EligibilityEngine{
		finder:       finder,
		radiusMeters: DuplicateRadiusMeters,
		windowDays:   EligibilityWindowDays,
		now:          time.Now,
	}
}

// Check looks for the most recent report of the same issue type within the
// duplicate radius, regardless of status. No match, or a match older than
// the eligibility window, means eligible.
func (e *EligibilityEngine) Check(ctx context.Context, longitude, latitude float64, issue models.IssueType) (EligibilityResult, error) {
	existing, err := e.finder.FindNearestByIssue(ctx, issue, longitude, latitude, e.radiusMeters)
	if err != nil {
		return EligibilityResult{}, err
	}
	if existing == nil {
		return EligibilityResult{Eligible: true}, nil
	}

	days := int(e.now().Sub(existing.CreatedAt).Hours() / 24)
	distance := DistanceMeters(
		longitude, latitude,
		existing.Location.Coordinates.Longitude(), existing.Location.Coordinates.Latitude(),
	)

	if days > e.windowDays {
		return EligibilityResult{
			Eligible:            true,
			Existing:            existing,
			DaysSinceLastReport: days,
			DistanceMeters:      distance,
		}, nil
	}

	return EligibilityResult{
		Eligible:            false,
		Existing:            existing,
		DaysSinceLastReport: days,
		DaysLeft:            e.windowDays - days,
		DistanceMeters:      distance,
	}, nil
}
