package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/devops-ftn-2024/accommodations/authorization"
	"github.com/devops-ftn-2024/accommodations/domain"
	apperrors "github.com/devops-ftn-2024/accommodations/errors"
	application "github.com/devops-ftn-2024/accommodations/service"
)

type AccommodationHandler struct {
	service *application.AccommodationService
	tracer  trace.Tracer
	logger  *logrus.Logger
}

func NewAccommodationHandler(service *application.AccommodationService, tracer trace.Tracer, logger *logrus.Logger) *AccommodationHandler {
	return &AccommodationHandler{
		service: service,
		tracer:  tracer,
		logger:  logger,
	}
}

func (handler *AccommodationHandler) Init(router *mux.Router) {
	router.HandleFunc("/accommodation/health", handler.Health).Methods(http.MethodGet)
	router.HandleFunc("/accommodation/mine", handler.GetMine).Methods(http.MethodGet)
	router.HandleFunc("/accommodation/{id}", handler.Get).Methods(http.MethodGet)
	router.HandleFunc("/accommodation", handler.Create).Methods(http.MethodPost)
	router.HandleFunc("/accommodation/{id}/rating", handler.Rate).Methods(http.MethodPost)
}

type message struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func (handler *AccommodationHandler) Health(writer http.ResponseWriter, req *http.Request) {
	handler.writeJSON(writer, http.StatusOK, message{Message: "Hello, World!"})
}

func (handler *AccommodationHandler) GetMine(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AccommodationHandler.GetMine")
	defer span.End()

	caller, ok := authorization.LoggedUserFromContext(ctx)
	if !ok {
		handler.writeError(writer, span, apperrors.NotFound(apperrors.MissingUserDataError))
		return
	}

	accommodations, err := handler.service.ListByOwner(ctx, caller)
	if err != nil {
		handler.writeError(writer, span, err)
		return
	}
	handler.writeJSON(writer, http.StatusOK, accommodations)
}

func (handler *AccommodationHandler) Get(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AccommodationHandler.Get")
	defer span.End()

	id := mux.Vars(req)["id"]
	accommodation, err := handler.service.GetByID(ctx, id)
	if err != nil {
		handler.writeError(writer, span, err)
		return
	}
	handler.writeJSON(writer, http.StatusOK, accommodation)
}

func (handler *AccommodationHandler) Create(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AccommodationHandler.Create")
	defer span.End()

	caller, ok := authorization.LoggedUserFromContext(ctx)
	if !ok {
		handler.writeError(writer, span, apperrors.NotFound(apperrors.MissingUserDataError))
		return
	}

	var input domain.AccommodationInput
	if err := input.FromJSON(req.Body); err != nil {
		handler.logger.WithError(err).Debug("Unable to decode accommodation")
		handler.writeError(writer, span, apperrors.InvalidArgument(apperrors.InvalidRequestFormatError))
		return
	}

	accommodation, err := handler.service.Create(ctx, caller, &input)
	if err != nil && accommodation != nil {
		// stored but not announced; the client still needs the new id
		span.SetStatus(codes.Error, err.Error())
		handler.logger.WithError(err).WithField("accommodation_id", accommodation.ID.Hex()).Error("Request failed")
		handler.writeJSON(writer, apperrors.StatusOf(err), message{Message: messageOf(err), ID: accommodation.ID.Hex()})
		return
	}
	if err != nil {
		handler.writeError(writer, span, err)
		return
	}
	handler.writeJSON(writer, http.StatusCreated, accommodation)
}

func (handler *AccommodationHandler) Rate(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AccommodationHandler.Rate")
	defer span.End()

	var input domain.RatingInput
	if err := json.NewDecoder(req.Body).Decode(&input); err != nil {
		handler.writeError(writer, span, apperrors.InvalidArgument(apperrors.InvalidRequestFormatError))
		return
	}
	if input.Rating == nil {
		handler.writeError(writer, span, apperrors.InvalidArgument(apperrors.MissingRatingError))
		return
	}

	accommodation, err := handler.service.RecordRating(ctx, mux.Vars(req)["id"], *input.Rating)
	if err != nil {
		handler.writeError(writer, span, err)
		return
	}
	handler.writeJSON(writer, http.StatusOK, accommodation)
}

func (handler *AccommodationHandler) writeJSON(writer http.ResponseWriter, status int, body interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(body); err != nil {
		handler.logger.WithError(err).Error("Unable to encode response")
	}
}

func (handler *AccommodationHandler) writeError(writer http.ResponseWriter, span trace.Span, err error) {
	status := apperrors.StatusOf(err)
	span.SetStatus(codes.Error, err.Error())
	if status == http.StatusInternalServerError {
		handler.logger.WithError(err).Error("Request failed")
		handler.writeJSON(writer, status, message{Message: messageOf(err)})
		return
	}
	handler.writeJSON(writer, status, message{Message: err.Error()})
}

// messageOf hides wrapped causes of internal errors from clients.
func messageOf(err error) string {
	var typed *apperrors.Error
	if errors.As(err, &typed) {
		return typed.Message
	}
	return "Internal server error"
}

func MiddlewareContentTypeSet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		rw.Header().Add("Content-Type", "application/json")
		rw.Header().Set("X-Content-Type-Options", "nosniff")
		rw.Header().Set("X-Frame-Options", "DENY")

		next.ServeHTTP(rw, h)
	})
}

func ExtractTraceInfoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
