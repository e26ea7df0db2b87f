package application

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devops-ftn-2024/accommodations/domain"
	apperrors "github.com/devops-ftn-2024/accommodations/errors"
)

// memoryStore keeps accommodations in insertion order.
type memoryStore struct {
	mu      sync.Mutex
	order   []primitive.ObjectID
	records map[primitive.ObjectID]domain.Accommodation
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[primitive.ObjectID]domain.Accommodation)}
}

func (s *memoryStore) Get(_ context.Context, id string) (*domain.Accommodation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NotFound(apperrors.AccommodationNotFound)
	}
	record, ok := s.records[objectID]
	if !ok {
		return nil, apperrors.NotFound(apperrors.AccommodationNotFound)
	}
	return &record, nil
}

func (s *memoryStore) Create(_ context.Context, accommodation *domain.Accommodation) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return primitive.NilObjectID, s.err
	}
	record := *accommodation
	record.ID = primitive.NewObjectID()
	s.records[record.ID] = record
	s.order = append(s.order, record.ID)
	return record.ID, nil
}

func (s *memoryStore) ListByOwner(_ context.Context, ownerUsername string) ([]*domain.Accommodation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	result := []*domain.Accommodation{}
	for _, id := range s.order {
		record, ok := s.records[id]
		if ok && record.OwnerUsername == ownerUsername {
			result = append(result, &record)
		}
	}
	return result, nil
}

func (s *memoryStore) RenameOwner(_ context.Context, oldUsername, newUsername string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var count int64
	for id, record := range s.records {
		if record.OwnerUsername == oldUsername && oldUsername != newUsername {
			record.OwnerUsername = newUsername
			s.records[id] = record
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) DeleteByOwner(_ context.Context, ownerUsername string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var count int64
	for id, record := range s.records {
		if record.OwnerUsername == ownerUsername {
			delete(s.records, id)
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) AppendRating(_ context.Context, id string, rating float64) (*domain.Accommodation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NotFound(apperrors.AccommodationNotFound)
	}
	record, ok := s.records[objectID]
	if !ok {
		return nil, apperrors.NotFound(apperrors.AccommodationNotFound)
	}
	record.RatingsArray = append(append([]float64{}, record.RatingsArray...), rating)
	sum := 0.0
	for _, r := range record.RatingsArray {
		sum += r
	}
	record.Rating = sum / float64(len(record.RatingsArray))
	s.records[objectID] = record
	return &record, nil
}

// memoryCache is a map-backed cache that can be told to fail.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]domain.Accommodation
	err     error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]domain.Accommodation)}
}

func (c *memoryCache) Get(_ context.Context, id string) (*domain.Accommodation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	entry, ok := c.entries[id]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return &entry, nil
}

func (c *memoryCache) Post(_ context.Context, accommodation *domain.Accommodation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[accommodation.ID.Hex()] = *accommodation
	return nil
}

func (c *memoryCache) Delete(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	for _, id := range ids {
		delete(c.entries, id)
	}
	return nil
}

func (c *memoryCache) has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, payload interface{}, destination string) error {
	args := m.Called(ctx, payload, destination)
	return args.Error(0)
}
