package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devops-ftn-2024/accommodations/domain"
)

const (
	cacheAccommodation = "accommodation:%s"
	cacheMessage       = "message:%s"
)

func constructKey(id string) string {
	return fmt.Sprintf(cacheAccommodation, id)
}

func constructMessageKey(messageID string) string {
	return fmt.Sprintf(cacheMessage, messageID)
}

type AccommodationRedisCache struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewAccommodationRedisCache(client *redis.Client, ttl time.Duration, tracer trace.Tracer, logger *logrus.Logger) domain.AccommodationCache {
	return &AccommodationRedisCache{
		client: client,
		ttl:    ttl,
		tracer: tracer,
		logger: logger,
	}
}

func (c *AccommodationRedisCache) Get(ctx context.Context, id string) (*domain.Accommodation, error) {
	_, span := c.tracer.Start(ctx, "AccommodationCache.Get")
	defer span.End()

	value, err := c.client.Get(constructKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	var accommodation domain.Accommodation
	if err := json.Unmarshal(value, &accommodation); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	c.logger.WithField("id", id).Debug("Cache hit - get accommodation")
	return &accommodation, nil
}

func (c *AccommodationRedisCache) Post(ctx context.Context, accommodation *domain.Accommodation) error {
	_, span := c.tracer.Start(ctx, "AccommodationCache.Post")
	defer span.End()

	value, err := json.Marshal(accommodation)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := c.client.Set(constructKey(accommodation.ID.Hex()), value, c.ttl).Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *AccommodationRedisCache) Delete(ctx context.Context, ids ...string) error {
	_, span := c.tracer.Start(ctx, "AccommodationCache.Delete")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, constructKey(id))
	}
	if err := c.client.Del(keys...).Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

type MessageRedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewMessageRedisLedger(client *redis.Client, ttl time.Duration) domain.MessageLedger {
	return &MessageRedisLedger{
		client: client,
		ttl:    ttl,
	}
}

func (l *MessageRedisLedger) MarkProcessed(_ context.Context, messageID string) (bool, error) {
	return l.client.SetNX(constructMessageKey(messageID), time.Now().Unix(), l.ttl).Result()
}
