package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/description"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/todo-service/domain/todo"
)

// MongoDB server error codes.
const (
	codeNamespaceExists    = 48
	codeDocumentValidation = 121
)

// todoDocument is the BSON shape of a stored todo.
type todoDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Completed   bool               `bson:"completed"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *todoDocument) toEntity() *todo.Todo {
	return &todo.Todo{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// MongoStore stores todos in a MongoDB collection.
type MongoStore struct {
	coll  *mongo.Collection
	clock Clock
}

// NewMongoStore wraps a collection.
func NewMongoStore(coll *mongo.Collection, clock Clock) *MongoStore {
	return &MongoStore{coll: coll, clock: clock}
}

func (s *MongoStore) Insert(ctx context.Context, t *todo.Todo) (*todo.Todo, error) {
	now := s.clock.now()
	doc := todoDocument{
		ID:          primitive.NewObjectID(),
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, classifyMongoError("insert todo", err)
	}
	return doc.toEntity(), nil
}

func (s *MongoStore) FindAll(ctx context.Context, order todo.SortOrder) ([]*todo.Todo, error) {
	dir := -1
	if order == todo.OldestFirst {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: dir}, {Key: "_id", Value: dir}})

	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, classifyMongoError("list todos", err)
	}
	defer cur.Close(ctx)

	var docs []todoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classifyMongoError("list todos", err)
	}

	todos := make([]*todo.Todo, 0, len(docs))
	for i := range docs {
		todos = append(todos, docs[i].toEntity())
	}
	return todos, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*todo.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, todo.NewStoreError(todo.FailureNotFound, "find todo", err)
	}

	var doc todoDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, classifyMongoError("find todo", err)
	}
	return doc.toEntity(), nil
}

func (s *MongoStore) UpdateByID(ctx context.Context, id string, patch todo.Patch) (*todo.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, todo.NewStoreError(todo.FailureNotFound, "update todo", err)
	}

	// Pipeline update: updatedAt moves at least 1ms past the stored value.
	// Patch values go through $literal so a leading "$" is not read as a
	// field path.
	set := bson.M{
		"updatedAt": bson.M{"$max": bson.A{
			s.clock.now(),
			bson.M{"$add": bson.A{"$updatedAt", 1}},
		}},
	}
	if patch.Title != nil {
		set["title"] = bson.M{"$literal": *patch.Title}
	}
	if patch.Description != nil {
		set["description"] = bson.M{"$literal": *patch.Description}
	}
	if patch.Completed != nil {
		set["completed"] = bson.M{"$literal": *patch.Completed}
	}
	update := mongo.Pipeline{{{Key: "$set", Value: set}}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc todoDocument
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	if err != nil {
		return nil, classifyMongoError("update todo", err)
	}
	return doc.toEntity(), nil
}

func (s *MongoStore) DeleteByID(ctx context.Context, id string) (*todo.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, todo.NewStoreError(todo.FailureNotFound, "delete todo", err)
	}

	var doc todoDocument
	if err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, classifyMongoError("delete todo", err)
	}
	return doc.toEntity(), nil
}

// EnsureSchema creates the collection with a document validator and the
// index backing the list sort. An existing collection is left as is.
func (s *MongoStore) EnsureSchema(ctx context.Context) error {
	validator := bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "description", "completed", "createdAt", "updatedAt"},
			"properties": bson.M{
				"title":       bson.M{"bsonType": "string", "minLength": 1},
				"description": bson.M{"bsonType": "string"},
				"completed":   bson.M{"bsonType": "bool"},
				"createdAt":   bson.M{"bsonType": "date"},
				"updatedAt":   bson.M{"bsonType": "date"},
			},
		},
	}

	db := s.coll.Database()
	err := db.CreateCollection(ctx, s.coll.Name(), options.CreateCollection().SetValidator(validator))
	if err != nil && !hasServerCode(err, codeNamespaceExists) {
		return classifyMongoError("create collection", err)
	}

	index := mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
	}
	if _, err := s.coll.Indexes().CreateOne(ctx, index); err != nil {
		return classifyMongoError("create index", err)
	}
	return nil
}

// classifyMongoError tags a driver error by its type and code.
func classifyMongoError(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return todo.NewStoreError(todo.FailureNotFound, op, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, mongo.ErrClientDisconnected),
		mongo.IsNetworkError(err),
		mongo.IsTimeout(err):
		return todo.NewStoreError(todo.FailureConnectionLost, op, err)
	case hasServerCode(err, codeDocumentValidation):
		return todo.NewStoreError(todo.FailureValidation, op, err)
	default:
		return todo.NewStoreError(todo.FailureOther, op, err)
	}
}

func hasServerCode(err error, code int) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(code)
}

// mongoMonitor feeds topology changes into the tracker. Storage counts as
// connected while some server in the topology accepts writes, so a single
// failing replica set member does not close the gate.
func mongoMonitor(tracker *Tracker) *event.ServerMonitor {
	return &event.ServerMonitor{
		TopologyDescriptionChanged: func(e *event.TopologyDescriptionChangedEvent) {
			tracker.Observe(topologyState(e.NewDescription))
		},
		TopologyClosed: func(*event.TopologyClosedEvent) {
			tracker.Observe(Disconnected)
		},
	}
}

func topologyState(desc description.Topology) State {
	if desc.Kind == description.LoadBalanced || desc.HasWritableServer() {
		return Connected
	}
	return Disconnected
}

// connectMongo creates a client without waiting for the server. The driver
// connects in the background and reports through the tracker.
func connectMongo(ctx context.Context, uri string, timeout time.Duration, tracker *Tracker) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout).
		SetServerMonitor(mongoMonitor(tracker))

	tracker.BeginOpen()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		tracker.Observe(Disconnected)
		return nil, err
	}
	return client, nil
}
