package stores

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"roadwatch-be/apperror"
	"roadwatch-be/models"
)

// VerificationStore is the append-only vote ledger. Votes are never updated;
// the only delete path is the referential cleanup after report deletion.
type VerificationStore interface {
	Insert(ctx context.Context, verification *models.Verification) (*models.Verification, error)
	HasVoted(ctx context.Context, reportID, userID primitive.ObjectID) (bool, error)
	ListByReport(ctx context.Context, reportID primitive.ObjectID) ([]models.Verification, error)
	DeleteByReportIDs(ctx context.Context, reportIDs []primitive.ObjectID) (int64, error)
}

// MongoVerificationStore implements VerificationStore. The unique
// (potholeId, userId) index is the hard one-vote-per-user guarantee; the
// HasVoted pre-check only exists for a friendlier error on the common path.
type MongoVerificationStore struct {
	collection *mongo.Collection
}

func NewMongoVerificationStore(collection *mongo.Collection) *MongoVerificationStore {
	return &MongoVerificationStore{collection: collection}
}

func (s *MongoVerificationStore) Insert(ctx context.Context, verification *models.Verification) (*models.Verification, error) {
	verification.ID = primitive.NewObjectID()
	verification.CreatedAt = time.Now()

	if _, err := s.collection.InsertOne(ctx, verification); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.Conflict("User has already verified this report")
		}
		return nil, err
	}
	return verification, nil
}

func (s *MongoVerificationStore) HasVoted(ctx context.Context, reportID, userID primitive.ObjectID) (bool, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{
		"potholeId": reportID,
		"userId":    userID,
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoVerificationStore) ListByReport(ctx context.Context, reportID primitive.ObjectID) ([]models.Verification, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"potholeId": reportID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var verifications []models.Verification
	if err := cursor.All(ctx, &verifications); err != nil {
		return nil, err
	}
	return verifications, nil
}

func (s *MongoVerificationStore) DeleteByReportIDs(ctx context.Context, reportIDs []primitive.ObjectID) (int64, error) {
	if len(reportIDs) == 0 {
		return 0, nil
	}
	result, err := s.collection.DeleteMany(ctx, bson.M{"potholeId": bson.M{"$in": reportIDs}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
