package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadwatch-be/models"
)

// recordingFinder captures the coordinates it was asked about.
type recordingFinder struct {
	gotLongitude float64
	gotLatitude  float64
	result       *models.Report
}

func (f *recordingFinder) FindNearestByIssue(_ context.Context, _ models.IssueType, longitude, latitude, _ float64) (*models.Report, error) {
	f.gotLongitude = longitude
	f.gotLatitude = latitude
	return f.result, nil
}

func TestCheckNoExistingReport(t *testing.T) {
	engine := NewEligibilityEngine(&recordingFinder{})

	result, err := engine.Check(context.Background(), 10, 20, models.Pothole)
	require.NoError(t, err)

	assert.True(t, result.Eligible)
	assert.Nil(t, result.Existing)
}

func TestCheckCoordinateOrderNeverSwapped(t *testing.T) {
	finder := &recordingFinder{}
	engine := NewEligibilityEngine(finder)

	_, err := engine.Check(context.Background(), 10, 20, models.Pothole)
	require.NoError(t, err)

	assert.Equal(t, 10.0, finder.gotLongitude)
	assert.Equal(t, 20.0, finder.gotLatitude)
}

func TestCheckRecentReportBlocks(t *testing.T) {
	existing := &models.Report{
		Issue:     models.Pothole,
		Location:  models.Location{Coordinates: models.NewGeoPoint(0, 0)},
		CreatedAt: time.Now().Add(-5 * 24 * time.Hour),
	}
	engine := NewEligibilityEngine(&recordingFinder{result: existing})

	result, err := engine.Check(context.Background(), 0, 0, models.Pothole)
	require.NoError(t, err)

	assert.False(t, result.Eligible)
	assert.Equal(t, 5, result.DaysSinceLastReport)
	assert.Equal(t, 25, result.DaysLeft)
	assert.Same(t, existing, result.Existing)
}

func TestCheckOldReportEligible(t *testing.T) {
	existing := &models.Report{
		Issue:     models.Pothole,
		Location:  models.Location{Coordinates: models.NewGeoPoint(0, 0)},
		CreatedAt: time.Now().Add(-31 * 24 * time.Hour),
	}
	engine := NewEligibilityEngine(&recordingFinder{result: existing})

	result, err := engine.Check(context.Background(), 0, 0, models.Pothole)
	require.NoError(t, err)

	assert.True(t, result.Eligible)
	assert.Equal(t, 31, result.DaysSinceLastReport)
	assert.Same(t, existing, result.Existing)
}

func TestCheckWindowBoundaryStillBlocks(t *testing.T) {
	// Exactly 30 days old is inside the window: eligibility needs strictly
	// more than 30 days.
	now := time.Now()
	existing := &models.Report{
		Issue:     models.Pothole,
		Location:  models.Location{Coordinates: models.NewGeoPoint(0, 0)},
		CreatedAt: now.Add(-30 * 24 * time.Hour),
	}
	engine := NewEligibilityEngine(&recordingFinder{result: existing})
	engine.now = func() time.Time { return now }

	result, err := engine.Check(context.Background(), 0, 0, models.Pothole)
	require.NoError(t, err)

	assert.False(t, result.Eligible)
	assert.Equal(t, 30, result.DaysSinceLastReport)
	assert.Equal(t, 0, result.DaysLeft)
}

func TestCheckReportsDistanceToBlockingReport(t *testing.T) {
	existing := &models.Report{
		Issue:     models.Pothole,
		Location:  models.Location{Coordinates: models.NewGeoPoint(0, 0)},
		CreatedAt: time.Now().Add(-24 * time.Hour),
	}
	engine := NewEligibilityEngine(&recordingFinder{result: existing})

	// 0.00005 degrees of latitude is roughly 5.6 meters.
	result, err := engine.Check(context.Background(), 0, 0.00005, models.Pothole)
	require.NoError(t, err)

	assert.False(t, result.Eligible)
	assert.InDelta(t, 5.6, result.DistanceMeters, 0.2)
}

func TestDistanceMeters(t *testing.T) {
	// One millidegree of latitude is about 111.2 meters on a spherical earth.
	assert.InDelta(t, 111.2, DistanceMeters(0, 0, 0, 0.001), 0.5)

	// Swapped arguments describe a different pair of points: a degrees-based
	// metric must not be symmetric under lon/lat swapping away from the
	// equator-meridian crossing.
	d1 := DistanceMeters(10, 60, 11, 60)
	d2 := DistanceMeters(60, 10, 60, 11)
	assert.Greater(t, math.Abs(d1-d2), 1000.0)

	assert.InDelta(t, 0, DistanceMeters(12.5, 41.9, 12.5, 41.9), 0.001)
}
