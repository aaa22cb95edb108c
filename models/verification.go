package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VerificationStatus enum
type VerificationStatus string

const (
	VoteYes     VerificationStatus = "Yes"
	VoteNo      VerificationStatus = "No"
	VoteUnknown VerificationStatus = "I don't know"
)

// AllVerificationStatuses is the fixed key set every consensus summary
// carries, zero-count statuses included.
var AllVerificationStatuses = []VerificationStatus{VoteYes, VoteNo, VoteUnknown}

// ValidVerificationStatus reports whether s is a known vote status.
func ValidVerificationStatus(s string) bool {
	switch VerificationStatus(s) {
	case VoteYes, VoteNo, VoteUnknown:
		return true
	}
	return false
}

// Verification is one user's corroboration judgment on an existing report.
// Rows are immutable once created.
type Verification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PotholeID primitive.ObjectID `bson:"potholeId" json:"potholeId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Status    VerificationStatus `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// EnsureVerificationIndex creates a unique compound index for (potholeId, userId)
func EnsureVerificationIndex(collection *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "potholeId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	return err
}
