package stores

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"roadwatch-be/models"
)

// ReportUpdate is a partial report mutation. Nil fields are untouched.
// Media lists are appended, never replaced: existing entries survive updates.
type ReportUpdate struct {
	Issue         *models.IssueType
	SeverityLevel *models.SeverityLevel
	Location      *models.Location
	Description   *string
	Status        *models.ReportStatus
	AddImages     []string
	AddVideos     []string
}

// ReportStore is the persistence contract for reports. Absent documents are
// reported as (nil, nil) rather than an error so callers own the error
// taxonomy.
type ReportStore interface {
	Create(ctx context.Context, report *models.Report) (*models.Report, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	Update(ctx context.Context, id primitive.ObjectID, upd ReportUpdate) (*models.Report, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.ReportStatus) (*models.Report, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	BulkSetStatus(ctx context.Context, ids []primitive.ObjectID, status models.ReportStatus) (int64, error)
	BulkDelete(ctx context.Context, ids []primitive.ObjectID) (int64, error)
	List(ctx context.Context, q ListQuery) ([]models.Report, Meta, error)
	FindNear(ctx context.Context, longitude, latitude, maxDistanceMeters float64, excludeStatuses []models.ReportStatus) ([]models.Report, error)
	FindNearestByIssue(ctx context.Context, issue models.IssueType, longitude, latitude, maxDistanceMeters float64) (*models.Report, error)
	CountByStatus(ctx context.Context) (map[models.ReportStatus]int64, int64, error)
	AppendVerifier(ctx context.Context, reportID, userID primitive.ObjectID) error
}

// MongoReportStore implements ReportStore over a mongo collection. This is
// the only layer that builds GeoJSON coordinate slices; the [longitude,
// latitude] order lives here and nowhere else.
type MongoReportStore struct {
	collection *mongo.Collection
}

func NewMongoReportStore(collection *mongo.Collection) *MongoReportStore {
	return &MongoReportStore{collection: collection}
}

func (s *MongoReportStore) Create(ctx context.Context, report *models.Report) (*models.Report, error) {
	now := time.Now()
	report.ID = primitive.NewObjectID()
	if report.Status == "" {
		report.Status = models.StatusOpen
	}
	report.CreatedAt = now
	report.UpdatedAt = now

	if _, err := s.collection.InsertOne(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *MongoReportStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	var report models.Report
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *MongoReportStore) Update(ctx context.Context, id primitive.ObjectID, upd ReportUpdate) (*models.Report, error) {
	set := bson.M{"updatedAt": time.Now()}
	if upd.Issue != nil {
		set["issue"] = *upd.Issue
	}
	if upd.SeverityLevel != nil {
		set["severityLevel"] = *upd.SeverityLevel
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}

	update := bson.M{"$set": set}
	push := bson.M{}
	if len(upd.AddImages) > 0 {
		push["images"] = bson.M{"$each": upd.AddImages}
	}
	if len(upd.AddVideos) > 0 {
		push["videos"] = bson.M{"$each": upd.AddVideos}
	}
	if len(push) > 0 {
		update["$push"] = push
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var report models.Report
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *MongoReportStore) SetStatus(ctx context.Context, id primitive.ObjectID, status models.ReportStatus) (*models.Report, error) {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var report models.Report
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *MongoReportStore) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (s *MongoReportStore) BulkSetStatus(ctx context.Context, ids []primitive.ObjectID, status models.ReportStatus) (int64, error) {
	result, err := s.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}})
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

func (s *MongoReportStore) BulkDelete(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (s *MongoReportStore) List(ctx context.Context, q ListQuery) ([]models.Report, Meta, error) {
	q = q.Normalize()
	filter := bson.M{}

	if q.SearchTerm != "" {
		filter["$or"] = []bson.M{
			{"description": bson.M{"$regex": q.SearchTerm, "$options": "i"}},
			{"location.address": bson.M{"$regex": q.SearchTerm, "$options": "i"}},
		}
	}
	if q.Issue != "" {
		filter["issue"] = q.Issue
	}
	if q.Severity != "" {
		filter["severityLevel"] = q.Severity
	}
	// Both an equality filter and a role-scoped exclusion can apply at once;
	// their intersection is what the caller may see.
	switch {
	case q.Status != "" && len(q.ExcludeStatuses) > 0:
		filter["status"] = bson.M{"$eq": q.Status, "$nin": q.ExcludeStatuses}
	case q.Status != "":
		filter["status"] = q.Status
	case len(q.ExcludeStatuses) > 0:
		filter["status"] = bson.M{"$nin": q.ExcludeStatuses}
	}
	if !q.User.IsZero() {
		filter["user"] = q.User
	}

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, Meta{}, err
	}

	sortOptions := bson.D{{Key: "createdAt", Value: -1}}
	if q.Sort == "oldest" {
		sortOptions = bson.D{{Key: "createdAt", Value: 1}}
	}

	skip := (q.Page - 1) * q.Limit
	findOptions := options.Find().
		SetSort(sortOptions).
		SetSkip(int64(skip)).
		SetLimit(int64(q.Limit))

	cursor, err := s.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, Meta{}, err
	}
	defer cursor.Close(ctx)

	reports := make([]models.Report, 0, q.Limit)
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, Meta{}, err
	}

	return reports, NewMeta(q.Page, q.Limit, total), nil
}

func (s *MongoReportStore) FindNear(ctx context.Context, longitude, latitude, maxDistanceMeters float64, excludeStatuses []models.ReportStatus) ([]models.Report, error) {
	filter := bson.M{
		"location.coordinates": bson.M{
			"$near": bson.M{
				"$geometry":    models.NewGeoPoint(longitude, latitude),
				"$maxDistance": maxDistanceMeters,
			},
		},
	}
	if len(excludeStatuses) > 0 {
		filter["status"] = bson.M{"$nin": excludeStatuses}
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// FindNearestByIssue returns the most recently created report of the given
// issue type within maxDistanceMeters, regardless of status.
func (s *MongoReportStore) FindNearestByIssue(ctx context.Context, issue models.IssueType, longitude, latitude, maxDistanceMeters float64) (*models.Report, error) {
	filter := bson.M{
		"issue": issue,
		"location.coordinates": bson.M{
			"$near": bson.M{
				"$geometry":    models.NewGeoPoint(longitude, latitude),
				"$maxDistance": maxDistanceMeters,
			},
		},
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var report models.Report
	err := s.collection.FindOne(ctx, filter, opts).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// CountByStatus runs one count per terminal-ish status. The counts are taken
// at slightly different instants; callers derive the open count from the
// total so the numbers always add up.
func (s *MongoReportStore) CountByStatus(ctx context.Context) (map[models.ReportStatus]int64, int64, error) {
	total, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	counts := make(map[models.ReportStatus]int64, 3)
	for _, status := range []models.ReportStatus{models.StatusResolved, models.StatusInProgress, models.StatusRejected} {
		n, err := s.collection.CountDocuments(ctx, bson.M{"status": status})
		if err != nil {
			return nil, 0, err
		}
		counts[status] = n
	}
	return counts, total, nil
}

// AppendVerifier adds a voter to the report's verifiedBy projection.
// $addToSet keeps the projection a set even under a replayed append.
func (s *MongoReportStore) AppendVerifier(ctx context.Context, reportID, userID primitive.ObjectID) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": reportID},
		bson.M{"$addToSet": bson.M{"verifiedBy": userID}})
	return err
}
