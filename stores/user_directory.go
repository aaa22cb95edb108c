package stores

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"roadwatch-be/models"
)

// UserDirectory is the narrow user-lookup contract the report and
// verification flows need to validate references.
type UserDirectory interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type MongoUserDirectory struct {
	collection *mongo.Collection
}

func NewMongoUserDirectory(collection *mongo.Collection) *MongoUserDirectory {
	return &MongoUserDirectory{collection: collection}
}

func (d *MongoUserDirectory) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	count, err := d.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *MongoUserDirectory) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := d.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
