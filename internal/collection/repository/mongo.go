package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/media"
)

const mongoUniquePrefix = "uniq_"

var dupIndexRe = regexp.MustCompile(mongoUniquePrefix + `([A-Za-z0-9_]+)`)

type mongoEntity struct {
	ID        string       `bson:"_id"`
	Order     int          `bson:"order"`
	IsActive  bool         `bson:"isActive"`
	Version   int64        `bson:"version"`
	Image     *media.Image `bson:"image"`
	Fields    bson.Raw     `bson:"fields"`
	CreatedAt time.Time    `bson:"createdAt"`
	UpdatedAt time.Time    `bson:"updatedAt"`
}

// MongoRepo keeps one MongoDB collection per content type.
type MongoRepo struct {
	db *mongo.Database
}

func NewMongo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{db: db}
}

// EnsureIndexes creates the order index and the unique field indexes.
func (r *MongoRepo) EnsureIndexes(ctx context.Context, schemas []*domain.Schema) error {
	for _, s := range schemas {
		models := []mongo.IndexModel{
			{Keys: bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: 1}}},
		}
		for _, field := range s.UniqueFields() {
			models = append(models, mongo.IndexModel{
				Keys: bson.D{{Key: "fields." + field, Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName(mongoUniquePrefix + field).
					SetPartialFilterExpression(bson.D{{Key: "fields." + field, Value: bson.D{{Key: "$type", Value: "string"}}}}),
			})
		}
		if _, err := r.db.Collection(s.Name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes for %s: %w", s.Name, err)
		}
	}
	return nil
}

func mapMongoWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		if m := dupIndexRe.FindStringSubmatch(err.Error()); m != nil {
			return uniqueConflict(m[1])
		}
		return uniqueConflict("id")
	}
	return err
}

func (m *mongoEntity) toDomain() (*domain.Entity, error) {
	e := &domain.Entity{
		ID:        m.ID,
		Order:     m.Order,
		IsActive:  m.IsActive,
		Version:   m.Version,
		Image:     m.Image,
		Fields:    map[string]any{},
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
	if len(m.Fields) == 0 {
		return e, nil
	}
	// Relaxed extended JSON keeps numbers plain, which matches the JSON shape
	// the other backends return.
	b, err := bson.MarshalExtJSON(m.Fields, false, false)
	if err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(b, &e.Fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return e, nil
}

func fieldsDoc(e *domain.Entity) map[string]any {
	if e.Fields == nil {
		return map[string]any{}
	}
	return e.Fields
}

func (r *MongoRepo) Insert(ctx context.Context, collection string, e *domain.Entity) error {
	doc := bson.D{
		{Key: "_id", Value: e.ID},
		{Key: "order", Value: e.Order},
		{Key: "isActive", Value: e.IsActive},
		{Key: "version", Value: e.Version},
		{Key: "image", Value: e.Image},
		{Key: "fields", Value: fieldsDoc(e)},
		{Key: "createdAt", Value: e.CreatedAt},
		{Key: "updatedAt", Value: e.UpdatedAt},
	}
	if _, err := r.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert %s: %w", collection, mapMongoWriteErr(err))
	}
	return nil
}

func (r *MongoRepo) find(ctx context.Context, collection string, filter bson.D) ([]*domain.Entity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: 1}})
	cur, err := r.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []mongoEntity
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*domain.Entity, 0, len(docs))
	for i := range docs {
		e, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *MongoRepo) FindAll(ctx context.Context, collection string, f Filter) ([]*domain.Entity, error) {
	filter := bson.D{}
	if f.ActiveOnly {
		filter = bson.D{{Key: "isActive", Value: true}}
	}
	items, err := r.find(ctx, collection, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return items, nil
}

func (r *MongoRepo) FindByID(ctx context.Context, collection, id string) (*domain.Entity, error) {
	var doc mongoEntity
	err := r.db.Collection(collection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc.toDomain()
}

func (r *MongoRepo) FindByField(ctx context.Context, collection, field string, value any) ([]*domain.Entity, error) {
	items, err := r.find(ctx, collection, bson.D{{Key: "fields." + field, Value: value}})
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", collection, field, err)
	}
	return items, nil
}

func (r *MongoRepo) Replace(ctx context.Context, collection string, e *domain.Entity, expectedVersion int64) error {
	filter := bson.D{{Key: "_id", Value: e.ID}}
	if expectedVersion > 0 {
		filter = append(filter, bson.E{Key: "version", Value: expectedVersion})
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "order", Value: e.Order},
			{Key: "isActive", Value: e.IsActive},
			{Key: "image", Value: e.Image},
			{Key: "fields", Value: fieldsDoc(e)},
			{Key: "updatedAt", Value: e.UpdatedAt},
		}},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	}

	var doc mongoEntity
	err := r.db.Collection(collection).
		FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, ferr := r.FindByID(ctx, collection, e.ID); ferr != nil {
			return ferr
		}
		return versionConflict(expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, e.ID, mapMongoWriteErr(err))
	}

	e.Version = doc.Version
	return nil
}

func (r *MongoRepo) Delete(ctx context.Context, collection, id string) error {
	res, err := r.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return notFound(collection, id)
	}
	return nil
}

// SetOrders issues one ordered bulk write. Writes before the first failing
// one stay applied; the returned count says how many that were.
func (r *MongoRepo) SetOrders(ctx context.Context, collection string, updates []domain.OrderUpdate) (int, error) {
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: u.ID}}).
			SetUpdate(bson.D{
				{Key: "$set", Value: bson.D{
					{Key: "order", Value: u.Order},
					{Key: "updatedAt", Value: now},
				}},
				{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
			}))
	}

	res, err := r.db.Collection(collection).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
			return bwe.WriteErrors[0].Index, fmt.Errorf("reorder %s: %w", collection, err)
		}
		return 0, fmt.Errorf("reorder %s: %w", collection, err)
	}

	if matched := int(res.MatchedCount); matched < len(updates) {
		cause := fmt.Errorf("reorder %s: %d of %d entities matched", collection, matched, len(updates))
		missing, err := r.missingIDs(ctx, collection, updates)
		if err != nil {
			return 0, fmt.Errorf("%w (listing unmatched: %v)", cause, err)
		}
		return matched, &PartialWriteError{Failed: missing, Err: cause}
	}
	return len(updates), nil
}

// missingIDs returns the ids of updates with no stored document, in
// update order.
func (r *MongoRepo) missingIDs(ctx context.Context, collection string, updates []domain.OrderUpdate) ([]string, error) {
	ids := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}
	cur, err := r.db.Collection(collection).Find(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	found := make([]string, len(docs))
	for i, d := range docs {
		found[i] = d.ID
	}
	return unmatched(ids, found), nil
}

func unmatched(ids, found []string) []string {
	present := make(map[string]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	var out []string
	for _, id := range ids {
		if !present[id] {
			out = append(out, id)
		}
	}
	return out
}

func (r *MongoRepo) Increment(ctx context.Context, collection, id, field string, delta int) error {
	res, err := r.db.Collection(collection).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "fields." + field, Value: delta}}}},
	)
	if err != nil {
		return fmt.Errorf("increment %s/%s.%s: %w", collection, id, field, err)
	}
	if res.MatchedCount == 0 {
		return notFound(collection, id)
	}
	return nil
}
