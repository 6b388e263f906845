package repository

import (
	"time"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type itemDocument struct {
	FlowerID string  `bson:"flowerId"`
	Quantity int     `bson:"quantity"`
	Price    float64 `bson:"price"`
}

type orderDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OrderNumber     string             `bson:"orderNumber,omitempty"`
	UserID          string             `bson:"userId"`
	FloristID       string             `bson:"floristId,omitempty"`
	DeliverID       string             `bson:"deliverId,omitempty"`
	Status          string             `bson:"status"`
	TotalPrice      float64            `bson:"totalPrice"`
	City            string             `bson:"city"`
	DeliveryAddress string             `bson:"deliveryAddress,omitempty"`
	Items           []itemDocument     `bson:"items"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

func toDocument(o *models.Order) orderDocument {
	items := make([]itemDocument, len(o.Items))
	for i, item := range o.Items {
		items[i] = itemDocument{FlowerID: item.FlowerID, Quantity: item.Quantity, Price: item.Price}
	}
	return orderDocument{
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		FloristID:       o.FloristID,
		DeliverID:       o.DeliverID,
		Status:          string(o.Status),
		TotalPrice:      o.TotalPrice,
		City:            o.City,
		DeliveryAddress: o.DeliveryAddress,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}

func (d orderDocument) toModel() *models.Order {
	items := make([]models.LineItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = models.LineItem{FlowerID: item.FlowerID, Quantity: item.Quantity, Price: item.Price}
	}
	return &models.Order{
		ID:              d.ID.Hex(),
		OrderNumber:     d.OrderNumber,
		UserID:          d.UserID,
		FloristID:       d.FloristID,
		DeliverID:       d.DeliverID,
		Status:          models.Status(d.Status),
		TotalPrice:      d.TotalPrice,
		City:            d.City,
		DeliveryAddress: d.DeliveryAddress,
		Items:           items,
		CreatedAt:       d.CreatedAt,
	}
}

// objectID parses a hex id; malformed ids are client errors.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.ValidationWithCause(err, "invalid resource id %q", id)
	}
	return oid, nil
}
