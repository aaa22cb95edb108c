package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"roadwatch-be/apperror"
	"roadwatch-be/cache"
	"roadwatch-be/models"
	"roadwatch-be/stores"
)

// memReportStore is an in-memory stores.ReportStore with the same absent-
// document semantics as the mongo implementation.
type memReportStore struct {
	mu      sync.Mutex
	reports map[primitive.ObjectID]*models.Report
}

func newMemReportStore() *memReportStore {
	return &memReportStore{reports: make(map[primitive.ObjectID]*models.Report)}
}

// put seeds a report directly, keeping whatever timestamps the test set.
func (s *memReportStore) put(r *models.Report) *models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.Status == "" {
		r.Status = models.StatusOpen
	}
	s.reports[r.ID] = r
	return r
}

func (s *memReportStore) Create(_ context.Context, report *models.Report) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	report.ID = primitive.NewObjectID()
	if report.Status == "" {
		report.Status = models.StatusOpen
	}
	report.CreatedAt = now
	report.UpdatedAt = now
	stored := *report
	s.reports[report.ID] = &stored
	return report, nil
}

func (s *memReportStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (s *memReportStore) Update(_ context.Context, id primitive.ObjectID, upd stores.ReportUpdate) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	if upd.Issue != nil {
		r.Issue = *upd.Issue
	}
	if upd.SeverityLevel != nil {
		r.SeverityLevel = *upd.SeverityLevel
	}
	if upd.Location != nil {
		r.Location = *upd.Location
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	if upd.Status != nil {
		r.Status = *upd.Status
	}
	r.Images = append(r.Images, upd.AddImages...)
	r.Videos = append(r.Videos, upd.AddVideos...)
	r.UpdatedAt = time.Now()
	copied := *r
	return &copied, nil
}

func (s *memReportStore) SetStatus(_ context.Context, id primitive.ObjectID, status models.ReportStatus) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	copied := *r
	return &copied, nil
}

func (s *memReportStore) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return false, nil
	}
	delete(s.reports, id)
	return true, nil
}

func (s *memReportStore) BulkSetStatus(_ context.Context, ids []primitive.ObjectID, status models.ReportStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched int64
	for _, id := range ids {
		if r, ok := s.reports[id]; ok {
			r.Status = status
			r.UpdatedAt = time.Now()
			matched++
		}
	}
	return matched, nil
}

func (s *memReportStore) BulkDelete(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if _, ok := s.reports[id]; ok {
			delete(s.reports, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memReportStore) List(_ context.Context, q stores.ListQuery) ([]models.Report, stores.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q = q.Normalize()

	var matched []models.Report
	for _, r := range s.reports {
		if q.SearchTerm != "" {
			term := strings.ToLower(q.SearchTerm)
			if !strings.Contains(strings.ToLower(r.Description), term) &&
				!strings.Contains(strings.ToLower(r.Location.Address), term) {
				continue
			}
		}
		if q.Issue != "" && string(r.Issue) != q.Issue {
			continue
		}
		if q.Severity != "" && string(r.SeverityLevel) != q.Severity {
			continue
		}
		if q.Status != "" && string(r.Status) != q.Status {
			continue
		}
		if statusExcluded(r.Status, q.ExcludeStatuses) {
			continue
		}
		if !q.User.IsZero() && r.User != q.User {
			continue
		}
		matched = append(matched, *r)
	}

	sort.Slice(matched, func(i, j int) bool {
		if q.Sort == "oldest" {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (q.Page - 1) * q.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], stores.NewMeta(q.Page, q.Limit, total), nil
}

func (s *memReportStore) FindNear(_ context.Context, longitude, latitude, maxDistanceMeters float64, excludeStatuses []models.ReportStatus) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found []models.Report
	for _, r := range s.reports {
		if statusExcluded(r.Status, excludeStatuses) {
			continue
		}
		d := DistanceMeters(longitude, latitude, r.Location.Coordinates.Longitude(), r.Location.Coordinates.Latitude())
		if d <= maxDistanceMeters {
			found = append(found, *r)
		}
	}
	return found, nil
}

func (s *memReportStore) FindNearestByIssue(_ context.Context, issue models.IssueType, longitude, latitude, maxDistanceMeters float64) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *models.Report
	for _, r := range s.reports {
		if r.Issue != issue {
			continue
		}
		d := DistanceMeters(longitude, latitude, r.Location.Coordinates.Longitude(), r.Location.Coordinates.Latitude())
		if d > maxDistanceMeters {
			continue
		}
		if newest == nil || r.CreatedAt.After(newest.CreatedAt) {
			newest = r
		}
	}
	if newest == nil {
		return nil, nil
	}
	copied := *newest
	return &copied, nil
}

func (s *memReportStore) CountByStatus(_ context.Context) (map[models.ReportStatus]int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[models.ReportStatus]int64{
		models.StatusResolved:   0,
		models.StatusInProgress: 0,
		models.StatusRejected:   0,
	}
	var total int64
	for _, r := range s.reports {
		total++
		if _, tracked := counts[r.Status]; tracked {
			counts[r.Status]++
		}
	}
	return counts, total, nil
}

func (s *memReportStore) AppendVerifier(_ context.Context, reportID, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[reportID]
	if !ok {
		return nil
	}
	for _, existing := range r.VerifiedBy {
		if existing == userID {
			return nil
		}
	}
	r.VerifiedBy = append(r.VerifiedBy, userID)
	return nil
}

func statusExcluded(status models.ReportStatus, excluded []models.ReportStatus) bool {
	for _, e := range excluded {
		if status == e {
			return true
		}
	}
	return false
}

// memVerificationStore is an in-memory stores.VerificationStore with the
// same duplicate-vote behavior as the mongo unique index.
type memVerificationStore struct {
	mu   sync.Mutex
	rows []models.Verification
}

func newMemVerificationStore() *memVerificationStore {
	return &memVerificationStore{}
}

func (s *memVerificationStore) Insert(_ context.Context, v *models.Verification) (*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.PotholeID == v.PotholeID && row.UserID == v.UserID {
			return nil, apperror.Conflict("User has already verified this report")
		}
	}
	v.ID = primitive.NewObjectID()
	v.CreatedAt = time.Now()
	s.rows = append(s.rows, *v)
	return v, nil
}

func (s *memVerificationStore) HasVoted(_ context.Context, reportID, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.PotholeID == reportID && row.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memVerificationStore) ListByReport(_ context.Context, reportID primitive.ObjectID) ([]models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found []models.Verification
	for _, row := range s.rows {
		if row.PotholeID == reportID {
			found = append(found, row)
		}
	}
	return found, nil
}

func (s *memVerificationStore) DeleteByReportIDs(_ context.Context, reportIDs []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[primitive.ObjectID]bool, len(reportIDs))
	for _, id := range reportIDs {
		ids[id] = true
	}
	var kept []models.Verification
	var deleted int64
	for _, row := range s.rows {
		if ids[row.PotholeID] {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return deleted, nil
}

// memUserDirectory is an in-memory stores.UserDirectory.
type memUserDirectory struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newMemUserDirectory() *memUserDirectory {
	return &memUserDirectory{users: make(map[primitive.ObjectID]*models.User)}
}

func (d *memUserDirectory) add() primitive.ObjectID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := primitive.NewObjectID()
	d.users[id] = &models.User{ID: id, Name: "test user", Role: models.RoleUser}
	return id
}

func (d *memUserDirectory) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.users[id]
	return ok, nil
}

func (d *memUserDirectory) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

// memBackend is an in-memory cache.Backend; fail switches every call into
// an erroring backend so the best-effort paths can be exercised.
type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (b *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return nil, errBackendDown
	}
	return b.data[key], nil
}

func (b *memBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errBackendDown
	}
	b.data[key] = value
	return nil
}

func (b *memBackend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errBackendDown
	}
	for _, key := range keys {
		delete(b.data, key)
	}
	return nil
}

func (b *memBackend) DeleteByPrefix(_ context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errBackendDown
	}
	for key := range b.data {
		if strings.HasPrefix(key, prefix) {
			delete(b.data, key)
		}
	}
	return nil
}

var errBackendDown = &backendError{}

type backendError struct{}

func (*backendError) Error() string { return "cache backend down" }

// fixture wires the services against the in-memory collaborators.
type fixture struct {
	reports       *memReportStore
	verifications *memVerificationStore
	users         *memUserDirectory
	backend       *memBackend
	engine        *EligibilityEngine
	svc           *ReportService
	votes         *VerificationService
}

func newFixture() *fixture {
	reports := newMemReportStore()
	verifications := newMemVerificationStore()
	users := newMemUserDirectory()
	backend := newMemBackend()
	reportCache := cache.NewReportCache(backend)
	engine := NewEligibilityEngine(reports)

	return &fixture{
		reports:       reports,
		verifications: verifications,
		users:         users,
		backend:       backend,
		engine:        engine,
		svc:           NewReportService(reports, verifications, users, reportCache, engine),
		votes:         NewVerificationService(verifications, reports, users, reportCache),
	}
}

// seedReport places a backdated report directly into the store.
func (f *fixture) seedReport(issue models.IssueType, lon, lat float64, age time.Duration, status models.ReportStatus) *models.Report {
	created := time.Now().Add(-age)
	return f.reports.put(&models.Report{
		Issue:         issue,
		SeverityLevel: models.Moderate,
		Location: models.Location{
			Address:     "1 Test Street",
			Coordinates: models.NewGeoPoint(lon, lat),
		},
		User:      primitive.NewObjectID(),
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	})
}
