// Package catalog resolves flower references against the product catalog.
package catalog

import (
	"context"
	"errors"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type flowerDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	FloristID string             `bson:"floristId"`
}

// MongoCatalog reads flowers from the catalog collection shared with the product service.
type MongoCatalog struct {
	flowers *mongo.Collection
}

func NewMongoCatalog(flowers *mongo.Collection) *MongoCatalog {
	return &MongoCatalog{flowers: flowers}
}

func (c *MongoCatalog) Lookup(ctx context.Context, flowerID string) (models.Flower, error) {
	oid, err := primitive.ObjectIDFromHex(flowerID)
	if err != nil {
		return models.Flower{}, apperr.ValidationWithCause(err, "invalid flower id %q", flowerID)
	}

	var doc flowerDocument
	err = c.flowers.FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"name": 1, "floristId": 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Flower{}, apperr.NotFound("flower", flowerID)
		}
		return models.Flower{}, apperr.Wrap(err, "failed to load flower %s", flowerID)
	}

	return models.Flower{ID: doc.ID.Hex(), Name: doc.Name, FloristID: doc.FloristID}, nil
}
