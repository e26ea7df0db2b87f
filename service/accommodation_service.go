package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devops-ftn-2024/accommodations/domain"
	apperrors "github.com/devops-ftn-2024/accommodations/errors"
)

type AccommodationService struct {
	store     domain.AccommodationStore
	cache     domain.AccommodationCache
	publisher domain.EventPublisher
	tracer    trace.Tracer
	logger    *logrus.Logger
}

// NewAccommodationService wires the service; cache may be nil to disable read caching.
func NewAccommodationService(store domain.AccommodationStore, cache domain.AccommodationCache, publisher domain.EventPublisher, tracer trace.Tracer, logger *logrus.Logger) *AccommodationService {
	return &AccommodationService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		tracer:    tracer,
		logger:    logger,
	}
}

func (service *AccommodationService) GetByID(ctx context.Context, id string) (*domain.Accommodation, error) {
	ctx, span := service.tracer.Start(ctx, "AccommodationService.GetByID")
	defer span.End()

	if id == "" {
		return nil, apperrors.InvalidArgument(apperrors.MissingIDError)
	}

	if service.cache != nil {
		cached, err := service.cache.Get(ctx, id)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	accommodation, err := service.store.Get(ctx, id)
	if err != nil {
		return nil, service.fail(span, err, "Failed to get accommodation")
	}

	service.remember(ctx, accommodation)
	return accommodation, nil
}

// Create persists the accommodation and then announces it. A failed
// announcement does not undo the insert: the created accommodation is returned
// together with an Internal error.
func (service *AccommodationService) Create(ctx context.Context, caller domain.LoggedUser, input *domain.AccommodationInput) (*domain.Accommodation, error) {
	ctx, span := service.tracer.Start(ctx, "AccommodationService.Create")
	defer span.End()

	if caller.Role != domain.Host {
		return nil, apperrors.PermissionDenied(apperrors.OnlyHostsCreateError)
	}
	if caller.Username == "" {
		return nil, apperrors.InvalidArgument(apperrors.MissingLoggedUserError)
	}
	if input == nil {
		return nil, apperrors.InvalidArgument(apperrors.InvalidRequestFormatError)
	}
	if msg := input.Validate(); msg != "" {
		return nil, apperrors.InvalidArgument(msg)
	}

	accommodation := &domain.Accommodation{
		Name:               input.Name,
		Location:           input.Location,
		Benefits:           append([]domain.Benefit{}, input.Benefits...),
		Images:             append([]string{}, input.Images...),
		MinCapacity:        input.MinCapacity,
		MaxCapacity:        input.MaxCapacity,
		PriceLevel:         input.PriceLevel,
		OwnerUsername:      caller.Username,
		ConfirmationNeeded: bool(input.ConfirmationNeeded),
		Rating:             0,
		RatingsArray:       []float64{},
	}

	id, err := service.store.Create(ctx, accommodation)
	if err != nil {
		return nil, service.fail(span, err, "Failed to create accommodation")
	}
	accommodation.ID = id
	span.SetAttributes(attribute.String("accommodation.id", id.Hex()))

	service.logger.WithFields(logrus.Fields{
		"accommodation_id": id.Hex(),
		"owner":            caller.Username,
	}).Info("Accommodation created")

	if err := service.publisher.Publish(ctx, domain.NewAccommodationCreated(accommodation), domain.AccommodationCreatedQueue); err != nil {
		span.SetStatus(codes.Error, err.Error())
		service.logger.WithError(err).WithField("accommodation_id", id.Hex()).Error("Failed to announce created accommodation")
		return accommodation, apperrors.Internal(apperrors.AnnouncementFailedError, err)
	}
	return accommodation, nil
}

func (service *AccommodationService) ListByOwner(ctx context.Context, caller domain.LoggedUser) ([]*domain.Accommodation, error) {
	ctx, span := service.tracer.Start(ctx, "AccommodationService.ListByOwner")
	defer span.End()

	if caller.Username == "" {
		return nil, apperrors.InvalidArgument(apperrors.MissingUsernameError)
	}
	if caller.Role != domain.Host {
		return nil, apperrors.PermissionDenied(apperrors.OnlyHostsListError)
	}

	accommodations, err := service.store.ListByOwner(ctx, caller.Username)
	if err != nil {
		return nil, service.fail(span, err, "Failed to list accommodations")
	}
	return accommodations, nil
}

func (service *AccommodationService) ApplyRename(ctx context.Context, change domain.UsernameChange) (int64, error) {
	ctx, span := service.tracer.Start(ctx, "AccommodationService.ApplyRename")
	defer span.End()

	if change.OldUsername == "" || change.NewUsername == "" {
		return 0, apperrors.InvalidArgument(apperrors.MissingUsernamesError)
	}

	stale := service.ownedIDs(ctx, change.OldUsername)

	count, err := service.store.RenameOwner(ctx, change.OldUsername, change.NewUsername)
	if err != nil {
		return 0, service.fail(span, err, "Failed to rename accommodation owner")
	}
	service.forget(ctx, stale...)
	return count, nil
}

func (service *AccommodationService) ApplyDeletion(ctx context.Context, ownerUsername string) (int64, error) {
	ctx, span := service.tracer.Start(ctx, "AccommodationService.ApplyDeletion")
	defer span.End()

	if ownerUsername == "" {
		return 0, apperrors.InvalidArgument(apperrors.MissingUsernameError)
	}

	stale := service.ownedIDs(ctx, ownerUsername)

	count, err := service.store.DeleteByOwner(ctx, ownerUsername)
	if err != nil {
		return 0, service.fail(span, err, "Failed to delete accommodations")
	}
	service.forget(ctx, stale...)
	return count, nil
}

func (service *AccommodationService) RecordRating(ctx context.Context, id string, rating float64) (*domain.Accommodation, error) {
	ctx, span := service.tracer.Start(ctx, "AccommodationService.RecordRating")
	defer span.End()

	if id == "" {
		return nil, apperrors.InvalidArgument(apperrors.MissingIDError)
	}

	accommodation, err := service.store.AppendRating(ctx, id, rating)
	if err != nil {
		return nil, service.fail(span, err, "Failed to record rating")
	}

	service.remember(ctx, accommodation)
	return accommodation, nil
}

// ownedIDs lists the ids whose cache entries a bulk owner mutation makes stale.
func (service *AccommodationService) ownedIDs(ctx context.Context, ownerUsername string) []string {
	if service.cache == nil {
		return nil
	}
	owned, err := service.store.ListByOwner(ctx, ownerUsername)
	if err != nil {
		service.logger.WithError(err).WithField("owner", ownerUsername).Warn("Could not list cached accommodations to invalidate")
		return nil
	}
	ids := make([]string, 0, len(owned))
	for _, accommodation := range owned {
		ids = append(ids, accommodation.ID.Hex())
	}
	return ids
}

func (service *AccommodationService) remember(ctx context.Context, accommodation *domain.Accommodation) {
	if service.cache == nil {
		return
	}
	if err := service.cache.Post(ctx, accommodation); err != nil {
		service.logger.WithError(err).WithField("accommodation_id", accommodation.ID.Hex()).Warn("Failed to cache accommodation")
	}
}

func (service *AccommodationService) forget(ctx context.Context, ids ...string) {
	if service.cache == nil || len(ids) == 0 {
		return
	}
	if err := service.cache.Delete(ctx, ids...); err != nil {
		service.logger.WithError(err).WithField("count", len(ids)).Warn("Failed to evict cached accommodations")
	}
}

// fail keeps typed errors as they are and wraps anything else as Internal.
func (service *AccommodationService) fail(span trace.Span, err error, message string) error {
	var typed *apperrors.Error
	if errors.As(err, &typed) && typed.Kind != apperrors.KindInternal {
		return err
	}
	span.SetStatus(codes.Error, err.Error())
	service.logger.WithError(err).Error(message)
	if typed != nil {
		return err
	}
	return apperrors.Internal(message, err)
}
