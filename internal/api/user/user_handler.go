package user

import (
	"errors"
	"log/slog"
	"net/http"

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

// GetMe handles GET /user/me.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "GetMe", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/user/me"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetMe"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	u, err := h.service.GetMe(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		l.ErrorContext(ctx, "Failed to fetch user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Fetch failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	span.SetStatus(codes.Ok, "User fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// UpdateHandle handles POST /user/handle.
func (h *Handler) UpdateHandle(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "UpdateHandle", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/user/handle"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UpdateHandle"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req types.UpdateHandleRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.service.UpdateHandle(ctx, userID, req.Handle)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidHandle):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Handle is already taken")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			l.ErrorContext(ctx, "Failed to update handle", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Update failed")
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update handle")
		}
		return
	}

	span.SetStatus(codes.Ok, "Handle updated")
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// CheckHandle handles GET /user/check-handle.
func (h *Handler) CheckHandle(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "CheckHandle", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/user/check-handle"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CheckHandle"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	hasHandle, err := h.service.HasHandle(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check handle", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Check failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to check handle")
		return
	}

	span.SetStatus(codes.Ok, "Handle checked")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]bool{"hasHandle": hasHandle})
}
