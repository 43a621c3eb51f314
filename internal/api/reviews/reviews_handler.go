package reviews

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/plansapp/go-plans-api/internal/api"
	"github.com/plansapp/go-plans-api/internal/api/auth"
	"github.com/plansapp/go-plans-api/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid user identity")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /reviews.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ReviewsHandler").Start(r.Context(), "Create", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/reviews"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Create"))

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req types.CreateReviewRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Create(ctx, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingPlace), errors.Is(err, ErrInvalidRating):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		default:
			l.ErrorContext(ctx, "Failed to create review", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Create failed")
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create review")
		}
		return
	}

	span.SetStatus(codes.Ok, "Review created")
	api.WriteJSONResponse(w, r, http.StatusCreated, resp)
}

// List handles GET /reviews.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ReviewsHandler").Start(r.Context(), "List", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/reviews"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "List"))

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	reviews, err := h.service.List(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list reviews", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list reviews")
		return
	}

	span.SetStatus(codes.Ok, "Reviews listed")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"reviews": reviews,
	})
}

// Delete handles DELETE /reviews/{reviewID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ReviewsHandler").Start(r.Context(), "Delete", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/reviews/{reviewID}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Delete"))

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	reviewID, err := uuid.Parse(chi.URLParam(r, "reviewID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.service.Delete(ctx, userID, reviewID); err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Review not found")
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, "You can only delete your own reviews")
		default:
			l.ErrorContext(ctx, "Failed to delete review", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Delete failed")
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete review")
		}
		return
	}

	span.SetStatus(codes.Ok, "Review deleted")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]bool{"ok": true})
}
