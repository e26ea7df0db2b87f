package store

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devops-ftn-2024/accommodations/domain"
	apperrors "github.com/devops-ftn-2024/accommodations/errors"
)

type AccommodationMongoDBStore struct {
	accommodations *mongo.Collection
	tracer         trace.Tracer
	logger         *logrus.Logger
}

func NewAccommodationMongoDBStore(client *mongo.Client, database, collection string, tracer trace.Tracer, logger *logrus.Logger) *AccommodationMongoDBStore {
	accommodations := client.Database(database).Collection(collection)
	return &AccommodationMongoDBStore{
		accommodations: accommodations,
		tracer:         tracer,
		logger:         logger,
	}
}

// EnsureIndexes creates the owner index used by every cascade.
func (store *AccommodationMongoDBStore) EnsureIndexes(ctx context.Context) error {
	_, err := store.accommodations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ownerUsername", Value: 1}},
	})
	return err
}

func (store *AccommodationMongoDBStore) Get(ctx context.Context, id string) (*domain.Accommodation, error) {
	ctx, span := store.tracer.Start(ctx, "AccommodationStore.Get")
	defer span.End()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NotFound(apperrors.AccommodationNotFound)
	}

	accommodation, err := store.filterOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		if !apperrors.Is(err, apperrors.KindNotFound) {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	return accommodation, nil
}

func (store *AccommodationMongoDBStore) Create(ctx context.Context, accommodation *domain.Accommodation) (primitive.ObjectID, error) {
	ctx, span := store.tracer.Start(ctx, "AccommodationStore.Create")
	defer span.End()

	document := *accommodation
	document.ID = primitive.NilObjectID
	result, err := store.accommodations.InsertOne(ctx, document)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		store.logger.WithError(err).Error("Failed to insert accommodation")
		return primitive.NilObjectID, err
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, apperrors.Internal("Unexpected inserted id type", nil)
	}
	store.logger.WithField("id", id.Hex()).Info("Accommodation inserted")
	return id, nil
}

func (store *AccommodationMongoDBStore) ListByOwner(ctx context.Context, ownerUsername string) ([]*domain.Accommodation, error) {
	ctx, span := store.tracer.Start(ctx, "AccommodationStore.ListByOwner")
	defer span.End()

	accommodations, err := store.filter(ctx, bson.M{"ownerUsername": ownerUsername})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return accommodations, nil
}

func (store *AccommodationMongoDBStore) RenameOwner(ctx context.Context, oldUsername, newUsername string) (int64, error) {
	ctx, span := store.tracer.Start(ctx, "AccommodationStore.RenameOwner")
	defer span.End()

	filter := bson.M{"ownerUsername": oldUsername}
	update := bson.M{"$set": bson.M{"ownerUsername": newUsername}}

	result, err := store.accommodations.UpdateMany(ctx, filter, update)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int64("matched", result.MatchedCount))
	return result.ModifiedCount, nil
}

func (store *AccommodationMongoDBStore) DeleteByOwner(ctx context.Context, ownerUsername string) (int64, error) {
	ctx, span := store.tracer.Start(ctx, "AccommodationStore.DeleteByOwner")
	defer span.End()

	result, err := store.accommodations.DeleteMany(ctx, bson.M{"ownerUsername": ownerUsername})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return result.DeletedCount, nil
}

// AppendRating pushes the rating and recomputes the mean in one document update,
// so concurrent appends for the same id cannot overwrite each other.
func (store *AccommodationMongoDBStore) AppendRating(ctx context.Context, id string, rating float64) (*domain.Accommodation, error) {
	ctx, span := store.tracer.Start(ctx, "AccommodationStore.AppendRating")
	defer span.End()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NotFound(apperrors.AccommodationNotFound)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	result := store.accommodations.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, appendRatingPipeline(rating), opts)

	var accommodation domain.Accommodation
	if err := result.Decode(&accommodation); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound(apperrors.AccommodationNotFound)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &accommodation, nil
}

func appendRatingPipeline(rating float64) mongo.Pipeline {
	ratings := bson.D{{Key: "$ifNull", Value: bson.A{"$ratingsArray", bson.A{}}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "ratingsArray", Value: bson.D{{Key: "$concatArrays", Value: bson.A{ratings, bson.A{rating}}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "rating", Value: bson.D{{Key: "$avg", Value: "$ratingsArray"}}},
		}}},
	}
}

func (store *AccommodationMongoDBStore) filter(ctx context.Context, filter interface{}) ([]*domain.Accommodation, error) {
	cursor, err := store.accommodations.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decode(ctx, cursor)
}

func (store *AccommodationMongoDBStore) filterOne(ctx context.Context, filter interface{}) (*domain.Accommodation, error) {
	result := store.accommodations.FindOne(ctx, filter)

	var accommodation domain.Accommodation
	if err := result.Decode(&accommodation); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound(apperrors.AccommodationNotFound)
		}
		store.logger.WithError(err).Error("Error decoding accommodation")
		return nil, err
	}
	return &accommodation, nil
}

func decode(ctx context.Context, cursor *mongo.Cursor) ([]*domain.Accommodation, error) {
	accommodations := make([]*domain.Accommodation, 0)
	for cursor.Next(ctx) {
		var accommodation domain.Accommodation
		if err := cursor.Decode(&accommodation); err != nil {
			return nil, err
		}
		accommodations = append(accommodations, &accommodation)
	}
	return accommodations, cursor.Err()
}
