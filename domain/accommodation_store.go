package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AccommodationStore interface {
	Get(ctx context.Context, id string) (*Accommodation, error)
	Create(ctx context.Context, accommodation *Accommodation) (primitive.ObjectID, error)
	ListByOwner(ctx context.Context, ownerUsername string) ([]*Accommodation, error)
	RenameOwner(ctx context.Context, oldUsername, newUsername string) (int64, error)
	DeleteByOwner(ctx context.Context, ownerUsername string) (int64, error)
	AppendRating(ctx context.Context, id string, rating float64) (*Accommodation, error)
}

type AccommodationCache interface {
	Get(ctx context.Context, id string) (*Accommodation, error)
	Post(ctx context.Context, accommodation *Accommodation) error
	Delete(ctx context.Context, ids ...string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, payload interface{}, destination string) error
}

// MessageLedger remembers handled broker message ids. MarkProcessed reports
// true the first time an id is seen.
type MessageLedger interface {
	MarkProcessed(ctx context.Context, messageID string) (bool, error)
}
