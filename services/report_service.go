package services

import (
	"context"
	"strconv"

	"github.com/apex/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"roadwatch-be/apperror"
	"roadwatch-be/cache"
	"roadwatch-be/models"
	"roadwatch-be/stores"
)

// NearbyRadiusMeters is the default discovery radius for the nearby-reports
// query.
const NearbyRadiusMeters = 1000.0

// citizenExcludedStatuses are hidden from non-admin listings.
var citizenExcludedStatuses = []models.ReportStatus{models.StatusResolved, models.StatusRejected}

// List cache key scopes, one per visibility level.
const (
	scopeAdmin   = "admin"
	scopeCitizen = "citizen"
)

// ReportService orchestrates the report lifecycle: eligibility-checked
// creation, cached reads, status transitions, bulk operations and stats.
type ReportService struct {
	reports       stores.ReportStore
	verifications stores.VerificationStore
	users         stores.UserDirectory
	cache         *cache.ReportCache
	eligibility   *EligibilityEngine
}

func NewReportService(
	reports stores.ReportStore,
	verifications stores.VerificationStore,
	users stores.UserDirectory,
	reportCache *cache.ReportCache,
	eligibility *EligibilityEngine,
) *ReportService {
	return &ReportService{
		reports:       reports,
		verifications: verifications,
		users:         users,
		cache:         reportCache,
		eligibility:   eligibility,
	}
}

// CreateReportInput carries an already-uploaded submission; media entries
// are stable URLs produced by the upload layer.
type CreateReportInput struct {
	Issue         string
	SeverityLevel string
	Address       string
	Longitude     float64
	Latitude      float64
	Description   string
	UserID        string
	Images        []string
	Videos        []string
}

// CachedList is the list-read projection stored in the query cache.
type CachedList struct {
	Result []models.Report `json:"result"`
	Meta   stores.Meta     `json:"meta"`
}

// ReportDetail is a single report plus its verification ledger rows.
type ReportDetail struct {
	models.Report
	Verifications []models.Verification `json:"potholeVerification"`
}

// StatItem is one named analytics value.
type StatItem struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Create validates the submission, runs the duplicate-eligibility check,
// persists the report and invalidates the report caches.
func (s *ReportService) Create(ctx context.Context, input CreateReportInput) (*models.Report, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	userID, err := parseObjectID(input.UserID, "user ID")
	if err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to look up user")
	}
	if !exists {
		return nil, apperror.NotFound("User not found")
	}

	result, err := s.eligibility.Check(ctx, input.Longitude, input.Latitude, models.IssueType(input.Issue))
	if err != nil {
		return nil, apperror.Internal(err, "Failed to check report eligibility")
	}
	if !result.Eligible {
		return nil, apperror.Conflict(
			"A similar report exists (%d days old). Wait %d more days.",
			result.DaysSinceLastReport, result.DaysLeft,
		)
	}

	report := &models.Report{
		Issue:         models.IssueType(input.Issue),
		SeverityLevel: models.SeverityLevel(input.SeverityLevel),
		Location: models.Location{
			Address:     input.Address,
			Coordinates: models.NewGeoPoint(input.Longitude, input.Latitude),
		},
		Description: input.Description,
		User:        userID,
		Status:      models.StatusOpen,
		Images:      input.Images,
		Videos:      input.Videos,
	}

	created, err := s.reports.Create(ctx, report)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to create report")
	}

	s.cache.InvalidateReport(ctx, created.ID.Hex())
	return created, nil
}

// List serves the role-scoped report listing through the query cache.
// Citizens never see resolved or rejected reports, and their cache entries
// live under a separate key scope than admin ones. The scope comes from the
// authenticated role, never from the query map, so a caller cannot steer a
// result under the other scope's keys.
func (s *ReportService) List(ctx context.Context, query map[string]string, role models.UserRole) (*CachedList, error) {
	scope := scopeAdmin
	if role != models.RoleAdmin {
		scope = scopeCitizen
	}

	var cached CachedList
	if s.cache.GetListWithQuery(ctx, scope, query, &cached) {
		return &cached, nil
	}

	q, err := parseListQuery(query)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin {
		// Citizens never see resolved or rejected reports, not even by
		// filtering for them explicitly.
		q.ExcludeStatuses = citizenExcludedStatuses
	}

	items, meta, err := s.reports.List(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to retrieve reports")
	}

	result := &CachedList{Result: items, Meta: meta}
	s.cache.SetListWithQuery(ctx, scope, query, result)
	return result, nil
}

// MyReports lists the caller's own reports, any status, uncached.
func (s *ReportService) MyReports(ctx context.Context, userID string, query map[string]string) (*CachedList, error) {
	uid, err := parseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}

	q, err := parseListQuery(query)
	if err != nil {
		return nil, err
	}
	q.User = uid

	items, meta, err := s.reports.List(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to retrieve reports")
	}
	return &CachedList{Result: items, Meta: meta}, nil
}

// GetByID reads one report through the cache and attaches its verification
// rows. The ledger rows are always read fresh.
func (s *ReportService) GetByID(ctx context.Context, reportID string) (*ReportDetail, error) {
	id, err := parseObjectID(reportID, "report ID")
	if err != nil {
		return nil, err
	}

	var report models.Report
	if !s.cache.GetSingleReport(ctx, reportID, &report) {
		found, err := s.reports.FindByID(ctx, id)
		if err != nil {
			return nil, apperror.Internal(err, "Failed to retrieve report")
		}
		if found == nil {
			return nil, apperror.NotFound("Report not found")
		}
		report = *found
		s.cache.SetSingleReport(ctx, reportID, report)
	}

	verifications, err := s.verifications.ListByReport(ctx, id)
	if err != nil {
		log.WithError(err).WithField("report", reportID).Warn("verification lookup failed")
		verifications = nil
	}

	return &ReportDetail{Report: report, Verifications: verifications}, nil
}

// UpdateReportInput is a partial admin edit. Media URLs are appended to the
// existing lists, never substituted.
type UpdateReportInput struct {
	Issue         *string
	SeverityLevel *string
	Address       *string
	Longitude     *float64
	Latitude      *float64
	Description   *string
	Status        *string
	AddImages     []string
	AddVideos     []string
}

// Update applies a partial edit and invalidates the caches.
func (s *ReportService) Update(ctx context.Context, reportID string, input UpdateReportInput) (*models.Report, error) {
	id, err := parseObjectID(reportID, "report ID")
	if err != nil {
		return nil, err
	}

	upd, err := buildReportUpdate(input)
	if err != nil {
		return nil, err
	}

	report, err := s.reports.Update(ctx, id, upd)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to update report")
	}
	if report == nil {
		return nil, apperror.NotFound("Report not found")
	}

	s.cache.InvalidateReport(ctx, reportID)
	return report, nil
}

// UpdateStatus sets the report status. Transitions are a flat enum
// assignment: any status may follow any other, reopening included.
func (s *ReportService) UpdateStatus(ctx context.Context, reportID, status string) (*models.Report, error) {
	if !models.ValidReportStatus(status) {
		return nil, apperror.InvalidInput("%s is not a valid status", status)
	}

	id, err := parseObjectID(reportID, "report ID")
	if err != nil {
		return nil, err
	}

	report, err := s.reports.SetStatus(ctx, id, models.ReportStatus(status))
	if err != nil {
		return nil, apperror.Internal(err, "Failed to update report status")
	}
	if report == nil {
		return nil, apperror.NotFound("Report not found")
	}

	s.cache.InvalidateReport(ctx, reportID)
	return report, nil
}

// Delete removes the report first, then its verification rows. The two
// stores are not mutated atomically: an orphaned vote after a crash is
// acceptable, a report referencing deleted users is not, hence the order.
func (s *ReportService) Delete(ctx context.Context, reportID string) error {
	id, err := parseObjectID(reportID, "report ID")
	if err != nil {
		return err
	}

	deleted, err := s.reports.Delete(ctx, id)
	if err != nil {
		return apperror.Internal(err, "Failed to delete report")
	}
	if !deleted {
		return apperror.NotFound("Report not found")
	}

	if _, err := s.verifications.DeleteByReportIDs(ctx, []primitive.ObjectID{id}); err != nil {
		log.WithError(err).WithField("report", reportID).Warn("verification cleanup failed")
	}

	s.cache.InvalidateReport(ctx, reportID)
	return nil
}

// BulkSetStatus updates many reports in one set-based write. Zero matches
// means NotFound for the whole batch; per-id results are not reported.
func (s *ReportService) BulkSetStatus(ctx context.Context, reportIDs []string, status string) (int64, error) {
	if !models.ValidReportStatus(status) {
		return 0, apperror.InvalidInput("%s is not a valid status", status)
	}

	ids, err := parseObjectIDs(reportIDs)
	if err != nil {
		return 0, err
	}

	matched, err := s.reports.BulkSetStatus(ctx, ids, models.ReportStatus(status))
	if err != nil {
		return 0, apperror.Internal(err, "Failed to update report statuses")
	}
	if matched == 0 {
		return 0, apperror.NotFound("No reports found for the given IDs")
	}

	s.invalidateEach(ctx, reportIDs)
	return matched, nil
}

// BulkDelete removes many reports, then their verification rows, then the
// cache entries. Cache invalidation is per id and best-effort: one failure
// never aborts the rest.
func (s *ReportService) BulkDelete(ctx context.Context, reportIDs []string) (int64, error) {
	ids, err := parseObjectIDs(reportIDs)
	if err != nil {
		return 0, err
	}

	deleted, err := s.reports.BulkDelete(ctx, ids)
	if err != nil {
		return 0, apperror.Internal(err, "Failed to delete reports")
	}
	if deleted == 0 {
		return 0, apperror.NotFound("No reports found for the given IDs")
	}

	if _, err := s.verifications.DeleteByReportIDs(ctx, ids); err != nil {
		log.WithError(err).Warn("verification cleanup failed")
	}

	s.invalidateEach(ctx, reportIDs)
	return deleted, nil
}

// Nearby returns unresolved reports around a point, default radius 1 km.
func (s *ReportService) Nearby(ctx context.Context, longitude, latitude, maxDistanceMeters float64) ([]models.Report, error) {
	if !models.ValidCoordinates(longitude, latitude) {
		return nil, apperror.InvalidInput("Coordinates must be [longitude, latitude] with valid ranges")
	}
	if maxDistanceMeters <= 0 {
		maxDistanceMeters = NearbyRadiusMeters
	}

	reports, err := s.reports.FindNear(ctx, longitude, latitude, maxDistanceMeters, citizenExcludedStatuses)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to retrieve nearby reports")
	}
	return reports, nil
}

// Stats returns the named analytics counters. The open count is derived
// from the total rather than counted, so the four numbers always add up
// even though the counts are taken at slightly different instants.
func (s *ReportService) Stats(ctx context.Context) ([]StatItem, error) {
	counts, total, err := s.reports.CountByStatus(ctx)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to compute report stats")
	}

	resolved := counts[models.StatusResolved]
	inProgress := counts[models.StatusInProgress]
	rejected := counts[models.StatusRejected]

	return []StatItem{
		{Name: "totalReports", Value: total},
		{Name: "open", Value: total - (resolved + inProgress + rejected)},
		{Name: "resolved", Value: resolved},
		{Name: "inProgress", Value: inProgress},
		{Name: "rejected", Value: rejected},
	}, nil
}

func (s *ReportService) invalidateEach(ctx context.Context, reportIDs []string) {
	for _, id := range reportIDs {
		s.cache.InvalidateReport(ctx, id)
	}
}

func validateCreateInput(input CreateReportInput) error {
	if !models.ValidIssueType(input.Issue) {
		return apperror.InvalidInput("%s is not a valid issue type", input.Issue)
	}
	if !models.ValidSeverityLevel(input.SeverityLevel) {
		return apperror.InvalidInput("%s is not a valid severity level", input.SeverityLevel)
	}
	if len(input.Address) < 5 || len(input.Address) > 200 {
		return apperror.InvalidInput("Address must be between 5 and 200 characters")
	}
	if !models.ValidCoordinates(input.Longitude, input.Latitude) {
		return apperror.InvalidInput("Coordinates must be [longitude, latitude] with valid ranges")
	}
	if input.Description != "" && (len(input.Description) < 10 || len(input.Description) > 3000) {
		return apperror.InvalidInput("Description must be between 10 and 3000 characters")
	}
	return nil
}

func buildReportUpdate(input UpdateReportInput) (stores.ReportUpdate, error) {
	var upd stores.ReportUpdate

	if input.Issue != nil {
		if !models.ValidIssueType(*input.Issue) {
			return upd, apperror.InvalidInput("%s is not a valid issue type", *input.Issue)
		}
		issue := models.IssueType(*input.Issue)
		upd.Issue = &issue
	}
	if input.SeverityLevel != nil {
		if !models.ValidSeverityLevel(*input.SeverityLevel) {
			return upd, apperror.InvalidInput("%s is not a valid severity level", *input.SeverityLevel)
		}
		severity := models.SeverityLevel(*input.SeverityLevel)
		upd.SeverityLevel = &severity
	}
	if input.Status != nil {
		if !models.ValidReportStatus(*input.Status) {
			return upd, apperror.InvalidInput("%s is not a valid status", *input.Status)
		}
		status := models.ReportStatus(*input.Status)
		upd.Status = &status
	}
	if input.Address != nil || input.Longitude != nil || input.Latitude != nil {
		if input.Address == nil || input.Longitude == nil || input.Latitude == nil {
			return upd, apperror.InvalidInput("Location updates require address, longitude and latitude together")
		}
		if len(*input.Address) < 5 || len(*input.Address) > 200 {
			return upd, apperror.InvalidInput("Address must be between 5 and 200 characters")
		}
		if !models.ValidCoordinates(*input.Longitude, *input.Latitude) {
			return upd, apperror.InvalidInput("Coordinates must be [longitude, latitude] with valid ranges")
		}
		upd.Location = &models.Location{
			Address:     *input.Address,
			Coordinates: models.NewGeoPoint(*input.Longitude, *input.Latitude),
		}
	}
	if input.Description != nil {
		if len(*input.Description) < 10 || len(*input.Description) > 3000 {
			return upd, apperror.InvalidInput("Description must be between 10 and 3000 characters")
		}
		upd.Description = input.Description
	}
	upd.AddImages = input.AddImages
	upd.AddVideos = input.AddVideos
	return upd, nil
}

func parseListQuery(query map[string]string) (stores.ListQuery, error) {
	q := stores.ListQuery{
		SearchTerm: query["searchTerm"],
		Sort:       query["sort"],
	}

	if issue := query["issue"]; issue != "" {
		if !models.ValidIssueType(issue) {
			return q, apperror.InvalidInput("%s is not a valid issue type", issue)
		}
		q.Issue = issue
	}
	if severity := query["severityLevel"]; severity != "" {
		if !models.ValidSeverityLevel(severity) {
			return q, apperror.InvalidInput("%s is not a valid severity level", severity)
		}
		q.Severity = severity
	}
	if status := query["status"]; status != "" {
		if !models.ValidReportStatus(status) {
			return q, apperror.InvalidInput("%s is not a valid status", status)
		}
		q.Status = status
	}
	if page := query["page"]; page != "" {
		n, err := strconv.Atoi(page)
		if err != nil {
			return q, apperror.InvalidInput("page must be a number")
		}
		q.Page = n
	}
	if limit := query["limit"]; limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return q, apperror.InvalidInput("limit must be a number")
		}
		q.Limit = n
	}
	return q, nil
}

func parseObjectID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperror.InvalidInput("Invalid %s", what)
	}
	return id, nil
}

func parseObjectIDs(hexes []string) ([]primitive.ObjectID, error) {
	if len(hexes) == 0 {
		return nil, apperror.InvalidInput("At least one report ID is required")
	}
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := parseObjectID(h, "report ID")
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
