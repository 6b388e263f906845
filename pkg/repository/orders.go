package repository

import (
	"context"
	"errors"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"github.com/example/bloomcart/pkg/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// unsetValues matches a field that is absent, null or empty.
var unsetValues = bson.D{{Key: "$in", Value: bson.A{nil, ""}}}

// recomputeTotal rewrites totalPrice as the sum of quantity*price over items.
var recomputeTotal = bson.D{{Key: "$set", Value: bson.D{{Key: "totalPrice", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$map", Value: bson.D{
	{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$items", bson.A{}}}}},
	{Key: "as", Value: "item"},
	{Key: "in", Value: bson.D{{Key: "$multiply", Value: bson.A{"$$item.quantity", "$$item.price"}}}},
}}}}}}}}}

func (m *MongoRepository) Insert(ctx context.Context, o *models.Order) error {
	doc := toDocument(o)
	res, err := m.orders.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict(err, "order number %s already exists", o.OrderNumber)
		}
		return apperr.Wrap(err, "failed to insert order")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = oid.Hex()
	}
	return nil
}

func (m *MongoRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc orderDocument
	if err := m.orders.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("order", id)
		}
		return nil, apperr.Wrap(err, "failed to load order %s", id)
	}
	return doc.toModel(), nil
}

func (m *MongoRepository) Find(ctx context.Context, filter models.OrderFilter, opts query.Options) ([]models.Order, error) {
	findOpts := options.Find().SetSort(sortDocument(opts.Sort))
	if len(opts.Fields) > 0 {
		findOpts.SetProjection(projectionDocument(opts.Fields))
	}
	if opts.Paginate {
		findOpts.SetSkip(opts.Skip()).SetLimit(int64(opts.Limit))
	}

	cursor, err := m.orders.Find(ctx, buildFilter(filter), findOpts)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to query orders")
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Wrap(err, "failed to decode orders")
	}

	orders := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, *doc.toModel())
	}
	return orders, nil
}

func (m *MongoRepository) Count(ctx context.Context, filter models.OrderFilter) (int64, error) {
	n, err := m.orders.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, apperr.Wrap(err, "failed to count orders")
	}
	return n, nil
}

func (m *MongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := m.orders.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return apperr.Wrap(err, "failed to delete order %s", id)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("order", id)
	}
	return nil
}

func (m *MongoRepository) PushItem(ctx context.Context, id string, item models.LineItem) (*models.Order, error) {
	update := bson.D{
		{Key: "$push", Value: bson.M{"items": itemDocument{FlowerID: item.FlowerID, Quantity: item.Quantity, Price: item.Price}}},
		{Key: "$inc", Value: bson.M{"totalPrice": item.Subtotal()}},
	}
	return m.findOneAndUpdate(ctx, id, bson.M{}, update)
}

func (m *MongoRepository) UpdateFirstItem(ctx context.Context, id, flowerID string, patch models.ItemPatch) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	o, err := m.findOneAndUpdate(ctx, id, bson.M{"items.flowerId": flowerID}, firstItemPatchPipeline(flowerID, patch))
	if err != nil && apperr.KindOf(err) == apperr.KindNotFound {
		return nil, m.missingItem(ctx, oid, id, flowerID)
	}
	return o, err
}

// itemIndexField holds the matched line item position while the pipeline runs.
const itemIndexField = "_itemIdx"

// firstItemPatchPipeline patches the first line item for flowerID and recomputes the
// total in a single update.
func firstItemPatchPipeline(flowerID string, patch models.ItemPatch) mongo.Pipeline {
	fields := bson.D{}
	if patch.Quantity != nil {
		fields = append(fields, bson.E{Key: "quantity", Value: *patch.Quantity})
	}
	if patch.Price != nil {
		fields = append(fields, bson.E{Key: "price", Value: *patch.Price})
	}
	if len(fields) == 0 {
		return mongo.Pipeline{recomputeTotal}
	}

	item := bson.D{{Key: "$arrayElemAt", Value: bson.A{"$items", "$$i"}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: itemIndexField, Value: bson.D{
			{Key: "$indexOfArray", Value: bson.A{"$items.flowerId", flowerID}},
		}}}}},
		{{Key: "$set", Value: bson.D{{Key: "items", Value: bson.D{{Key: "$map", Value: bson.D{
			{Key: "input", Value: bson.D{{Key: "$range", Value: bson.A{0, bson.D{{Key: "$size", Value: "$items"}}}}}},
			{Key: "as", Value: "i"},
			{Key: "in", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$$i", "$" + itemIndexField}}},
				bson.D{{Key: "$mergeObjects", Value: bson.A{item, fields}}},
				item,
			}}}},
		}}}}}}},
		recomputeTotal,
		{{Key: "$unset", Value: itemIndexField}},
	}
}

func (m *MongoRepository) PullItems(ctx context.Context, id, flowerID string) (*models.Order, error) {
	pull := bson.D{{Key: "$set", Value: bson.D{{Key: "items", Value: bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$items", bson.A{}}}}},
		{Key: "as", Value: "item"},
		{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$item.flowerId", flowerID}}}},
	}}}}}}}
	return m.findOneAndUpdate(ctx, id, bson.M{}, mongo.Pipeline{pull, recomputeTotal})
}

func (m *MongoRepository) SetStatus(ctx context.Context, id string, status models.Status) (*models.Order, error) {
	return m.findOneAndUpdate(ctx, id, bson.M{}, bson.M{"$set": bson.M{"status": string(status)}})
}

func (m *MongoRepository) SetDeliver(ctx context.Context, id, deliverID string, onlyUnassigned bool) (*models.Order, error) {
	guard := bson.M{}
	if onlyUnassigned {
		guard["deliverId"] = bson.M{"$in": bson.A{nil, "", deliverID}}
	}

	o, err := m.findOneAndUpdate(ctx, id, guard, bson.M{"$set": bson.M{"deliverId": deliverID}})
	if err != nil && onlyUnassigned && apperr.KindOf(err) == apperr.KindNotFound {
		// The guard filtered the order out if it exists but belongs to another agent.
		if _, findErr := m.FindByID(ctx, id); findErr == nil {
			return nil, apperr.Conflict(nil, "order %s is already assigned", id)
		}
	}
	return o, err
}

func (m *MongoRepository) SetFlorist(ctx context.Context, id, floristID string) (*models.Order, error) {
	return m.findOneAndUpdate(ctx, id, bson.M{}, bson.M{"$set": bson.M{"floristId": floristID}})
}

func (m *MongoRepository) FillFlorist(ctx context.Context, id, floristID string) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	res, err := m.orders.UpdateOne(ctx,
		bson.M{"_id": oid, "floristId": unsetValues},
		bson.M{"$set": bson.M{"floristId": floristID}},
	)
	if err != nil {
		return false, apperr.Wrap(err, "failed to set florist on order %s", id)
	}
	return res.ModifiedCount > 0, nil
}

func (m *MongoRepository) FloristReport(ctx context.Context, floristID string, topFlowers int) (*models.FloristReport, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"floristId": floristID}}},
		{{Key: "$facet", Value: bson.D{
			{Key: "summary", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: nil},
					{Key: "totalOrders", Value: bson.D{{Key: "$sum", Value: 1}}},
					{Key: "totalRevenue", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
				}}},
			}},
			{Key: "byStatus", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: "$status"},
					{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
					{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
				}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
			}},
			{Key: "topFlowers", Value: bson.A{
				bson.D{{Key: "$unwind", Value: "$items"}},
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: "$items.flowerId"},
					{Key: "quantity", Value: bson.D{{Key: "$sum", Value: "$items.quantity"}}},
					{Key: "revenue", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$multiply", Value: bson.A{"$items.quantity", "$items.price"}}}}}},
				}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "quantity", Value: -1}}}},
				bson.D{{Key: "$limit", Value: topFlowers}},
			}},
		}}},
	}

	cursor, err := m.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to aggregate florist report")
	}
	defer cursor.Close(ctx)

	var results []reportDocument
	if err := cursor.All(ctx, &results); err != nil {
		return nil, apperr.Wrap(err, "failed to decode florist report")
	}

	report := &models.FloristReport{}
	if len(results) == 0 {
		return report, nil
	}
	result := results[0]
	if len(result.Summary) > 0 {
		report.Summary = models.ReportSummary{
			TotalOrders:  result.Summary[0].TotalOrders,
			TotalRevenue: result.Summary[0].TotalRevenue,
		}
	}
	for _, s := range result.ByStatus {
		report.ByStatus = append(report.ByStatus, models.StatusBreakdown{
			Status: models.Status(s.Status), Count: s.Count, Revenue: s.Revenue,
		})
	}
	for _, f := range result.TopFlowers {
		report.TopFlowers = append(report.TopFlowers, models.FlowerSales{
			FlowerID: f.FlowerID, Quantity: f.Quantity, Revenue: f.Revenue,
		})
	}
	return report, nil
}

type reportDocument struct {
	Summary []struct {
		TotalOrders  int64   `bson:"totalOrders"`
		TotalRevenue float64 `bson:"totalRevenue"`
	} `bson:"summary"`
	ByStatus []struct {
		Status  string  `bson:"_id"`
		Count   int64   `bson:"count"`
		Revenue float64 `bson:"revenue"`
	} `bson:"byStatus"`
	TopFlowers []struct {
		FlowerID string  `bson:"_id"`
		Quantity int64   `bson:"quantity"`
		Revenue  float64 `bson:"revenue"`
	} `bson:"topFlowers"`
}

// findOneAndUpdate applies update to the order matching id plus guard and returns the
// updated document.
func (m *MongoRepository) findOneAndUpdate(ctx context.Context, id string, guard bson.M, update any) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": oid}
	for k, v := range guard {
		filter[k] = v
	}

	var doc orderDocument
	err = m.orders.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("order", id)
		}
		return nil, apperr.Wrap(err, "failed to update order %s", id)
	}
	return doc.toModel(), nil
}

func (m *MongoRepository) missingItem(ctx context.Context, oid primitive.ObjectID, id, flowerID string) error {
	n, err := m.orders.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return apperr.Wrap(err, "failed to load order %s", id)
	}
	if n == 0 {
		return apperr.NotFound("order", id)
	}
	return apperr.NotFound("line item", flowerID)
}

func buildFilter(f models.OrderFilter) bson.M {
	filter := bson.M{}
	if len(f.Statuses) > 0 {
		statuses := make(bson.A, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		filter["status"] = bson.M{"$in": statuses}
	}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.FloristID != "" {
		filter["floristId"] = f.FloristID
	} else if f.MissingFlorist {
		filter["floristId"] = unsetValues
	}
	if f.DeliverID != "" {
		filter["deliverId"] = f.DeliverID
	} else if f.Unassigned {
		filter["deliverId"] = unsetValues
	}
	if f.FlowerID != "" {
		filter["items.flowerId"] = f.FlowerID
	}
	return filter
}

func sortDocument(fields []query.SortField) bson.D {
	sort := make(bson.D, 0, len(fields)+1)
	hasID := false
	for _, f := range fields {
		key := bsonField(f.Field)
		hasID = hasID || key == "_id"
		dir := 1
		if f.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: key, Value: dir})
	}
	// Stable paging needs a unique tiebreaker.
	if !hasID {
		sort = append(sort, bson.E{Key: "_id", Value: 1})
	}
	return sort
}

func projectionDocument(fields []string) bson.D {
	projection := make(bson.D, 0, len(fields))
	for _, f := range fields {
		if key := bsonField(f); key != "_id" {
			projection = append(projection, bson.E{Key: key, Value: 1})
		}
	}
	return projection
}

func bsonField(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}
